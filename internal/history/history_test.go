package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cleverdata/tickcopy/internal/copier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 14, 19, 58, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.OnCopy(ctx, copier.Result{
			Seq:         i,
			Source:      "data.txt",
			Destination: "test/data.txt." + string(rune('0'+i)),
			Bytes:       5,
			SHA256:      "abc",
			CopiedAt:    at.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[0].Seq)
	assert.Equal(t, "test/data.txt.2", all[0].Destination)
	assert.Equal(t, s.RunID(), all[0].RunID)
	assert.True(t, all[2].CopiedAt.Equal(at))

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Reset(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, copier.Result{Seq: 0, Source: "a", Destination: "b", CopiedAt: time.Now()}))
	require.NoError(t, s.Record(ctx, copier.Result{Seq: 1, Source: "a", Destination: "c", CopiedAt: time.Now()}))

	n, err := s.Reset(ctx, "some-other-run")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Reset(ctx, s.RunID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpen_DistinctRunIDs(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.RunID(), b.RunID())
}
