package trigger

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_FiresAfterChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o644))

	tr := NewWatch(src, 20*time.Millisecond, 1, zerolog.Nop())

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(context.Background(), func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	<-tr.Ready()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o644))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch trigger did not fire")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatch_Cancel(t *testing.T) {
	dir := t.TempDir()
	tr := NewWatch(filepath.Join(dir, "data.txt"), time.Second, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx, func(context.Context) error { return nil }) }()

	<-tr.Ready()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{config.ModeDelay, "delay"},
		{config.ModeDaily, "daily"},
		{config.ModeWatch, "watch"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := config.TriggerConfig{
				Mode:          tt.mode,
				Interval:      time.Minute,
				MaxTicks:      3,
				DailyAt:       "19:58",
				Timezone:      "UTC",
				SettlingDelay: time.Second,
			}
			tr, err := FromConfig(cfg, "data.txt", zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Name())
		})
	}

	_, err := FromConfig(config.TriggerConfig{Mode: "hourly"}, "data.txt", zerolog.Nop())
	assert.Error(t, err)
}
