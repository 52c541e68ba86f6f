package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/cleverdata/tickcopy/internal/copier"
	"github.com/cleverdata/tickcopy/internal/history"
	"github.com/cleverdata/tickcopy/internal/trigger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantDelayer struct{}

func (instantDelayer) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "test"), 0o755))

	return config.Config{
		Source: config.SourceConfig{
			Path:     src,
			DestDir:  filepath.Join(dir, "test") + "/",
			BaseName: "data.txt",
		},
		Trigger: config.TriggerConfig{Mode: config.ModeDelay, Interval: time.Minute, MaxTicks: 3},
		History: config.HistoryConfig{Enabled: true, DBPath: filepath.Join(dir, "state.db")},
	}
}

func TestAgent_RunDelayScenario(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	a, err := New(cfg, zerolog.Nop(), Options{
		Out:     &out,
		Trigger: trigger.NewDelay(cfg.Trigger.Interval, cfg.Trigger.MaxTicks, trigger.WithDelayer(instantDelayer{})),
	})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run(context.Background()))

	for i, name := range []string{"data.txt.0", "data.txt.1", "data.txt.2"} {
		got, err := os.ReadFile(filepath.Join(cfg.Source.DestDir, name))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got), "copy %d", i)
	}
	_, err = os.Stat(filepath.Join(cfg.Source.DestDir, "data.txt.3"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("copy file done: ")))

	store, err := history.Open(cfg.History.DBPath)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAgent_RunMissingSource(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Source.Path))
	cfg.History.Enabled = false

	var out bytes.Buffer
	a, err := New(cfg, zerolog.Nop(), Options{
		Out:     &out,
		Trigger: trigger.NewDelay(time.Minute, 3, trigger.WithDelayer(instantDelayer{})),
	})
	require.NoError(t, err)

	err = a.Run(context.Background())
	assert.ErrorIs(t, err, copier.ErrCopyFailed)
	assert.Empty(t, out.String())
	assert.Equal(t, 0, a.Copier().Counter())
}

func TestAgent_RunCancelledIsClean(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	cfg.Trigger = config.TriggerConfig{Mode: config.ModeDaily, DailyAt: "19:58", Timezone: "UTC"}

	a, err := New(cfg, zerolog.Nop(), Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, "daily", a.Trigger().Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestAgent_CopyOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.StartCounter = 7
	cfg.History.Enabled = false

	a, err := New(cfg, zerolog.Nop(), Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)

	res, err := a.CopyOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Source.DestDir, "data.txt.7"), res.Destination)
}
