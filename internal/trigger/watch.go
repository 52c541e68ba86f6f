package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch fires the job once the source file has been quiet for the settling
// delay after a create or write. maxTicks of 0 means unbounded.
type Watch struct {
	path     string
	settling time.Duration
	maxTicks int
	log      zerolog.Logger
	ready    chan struct{}
	once     sync.Once
}

func NewWatch(path string, settling time.Duration, maxTicks int, log zerolog.Logger) *Watch {
	return &Watch{
		path:     path,
		settling: settling,
		maxTicks: maxTicks,
		log:      log,
		ready:    make(chan struct{}),
	}
}

func (t *Watch) Name() string { return "watch" }

// Ready is closed once the watcher is registered.
func (t *Watch) Ready() <-chan struct{} { return t.ready }

func (t *Watch) Run(ctx context.Context, job Job) error {
	abs, err := filepath.Abs(t.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", t.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	t.once.Do(func() { close(t.ready) })
	t.log.Info().Str("path", abs).Dur("settling", t.settling).Msg("Watching source for changes")

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	ticks := 0
	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			t.log.Debug().Str("op", e.Op.String()).Msg("Source changed, resetting settling timer")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(t.settling, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Warn().Err(err).Msg("Watcher error")

		case <-fire:
			ticks++
			if err := job(ctx); err != nil {
				return fmt.Errorf("watch tick %d: %w", ticks, err)
			}
			if t.maxTicks > 0 && ticks >= t.maxTicks {
				t.log.Info().Int("ticks", ticks).Msg("Tick limit reached, watcher stopped")
				return nil
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
