package copier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, content string) (Source, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	dest := filepath.Join(dir, "test")
	require.NoError(t, os.Mkdir(dest, 0o755))
	return Source{Path: src, DestDir: dest + string(filepath.Separator)}, dest
}

func TestCopyOnce_NamingAndContent(t *testing.T) {
	src, dest := setup(t, "hello")
	var out bytes.Buffer
	c := New(src, WithOutput(&out))

	for i := 0; i < 3; i++ {
		res, err := c.CopyOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, res.Seq)
		assert.Equal(t, int64(5), res.Bytes)
	}

	for _, name := range []string{"data.txt.0", "data.txt.1", "data.txt.2"} {
		got, err := os.ReadFile(filepath.Join(dest, name))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	}
	_, err := os.Stat(filepath.Join(dest, "data.txt.3"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, 3, c.Counter())
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("copy file done: ")))
	assert.Contains(t, out.String(), "copy file done: "+filepath.Join(dest, "data.txt.0")+"\n")
}

func TestCopyOnce_BinaryFidelity(t *testing.T) {
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	src, _ := setup(t, string(payload))
	c := New(src, WithOutput(&bytes.Buffer{}))

	res, err := c.CopyOnce(context.Background())
	require.NoError(t, err)

	got, err := os.ReadFile(res.Destination)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	sum := sha256.Sum256(payload)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
}

func TestCopyOnce_StartCounterAndBaseName(t *testing.T) {
	src, dest := setup(t, "x")
	src.BaseName = "snapshot"
	c := New(src, WithOutput(&bytes.Buffer{}), WithStartCounter(41))

	res, err := c.CopyOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "snapshot.41"), res.Destination)
	assert.Equal(t, 42, c.Counter())
}

func TestCopyOnce_TruncatesExisting(t *testing.T) {
	src, dest := setup(t, "hi")
	stale := filepath.Join(dest, "data.txt.0")
	require.NoError(t, os.WriteFile(stale, []byte("much longer stale content"), 0o644))

	c := New(src, WithOutput(&bytes.Buffer{}))
	_, err := c.CopyOnce(context.Background())
	require.NoError(t, err)

	got, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestCopyOnce_MissingSource(t *testing.T) {
	src, dest := setup(t, "hello")
	require.NoError(t, os.Remove(src.Path))

	var out bytes.Buffer
	c := New(src, WithOutput(&out))

	_, err := c.CopyOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCopyFailed))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, c.Counter())
	assert.Empty(t, out.String())
}

func TestCopyOnce_MissingDestDir(t *testing.T) {
	src, dest := setup(t, "hello")
	require.NoError(t, os.Remove(dest))

	c := New(src, WithOutput(&bytes.Buffer{}))
	_, err := c.CopyOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCopyFailed))
	assert.Equal(t, 0, c.Counter())
}

func TestCopyOnce_SourceIsDirectory(t *testing.T) {
	_, dest := setup(t, "hello")
	c := New(Source{Path: dest, DestDir: dest, BaseName: "dir"}, WithOutput(&bytes.Buffer{}))

	_, err := c.CopyOnce(context.Background())
	assert.True(t, errors.Is(err, ErrCopyFailed))
}

func TestCopyOnce_Hooks(t *testing.T) {
	src, _ := setup(t, "hello")
	var seen []int
	record := HookFunc(func(_ context.Context, r Result) error {
		seen = append(seen, r.Seq)
		return nil
	})
	failing := HookFunc(func(context.Context, Result) error { return errors.New("boom") })

	c := New(src, WithOutput(&bytes.Buffer{}), WithHooks(failing, record))
	for i := 0; i < 2; i++ {
		_, err := c.CopyOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1}, seen)
}

func TestCopyOnce_CancelledContext(t *testing.T) {
	src, _ := setup(t, "hello")
	c := New(src, WithOutput(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CopyOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Counter())
}
