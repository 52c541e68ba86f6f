package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var dailyParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Daily fires the job once a day at a wall-clock time. Nothing runs at
// registration; the first tick waits for the next occurrence.
type Daily struct {
	at   string
	spec string
	loc  *time.Location
	log  zerolog.Logger
}

func NewDaily(at string, loc *time.Location, log zerolog.Logger) (*Daily, error) {
	spec, err := config.CronSpec(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Daily{at: at, spec: spec, loc: loc, log: log}, nil
}

func (t *Daily) Name() string { return "daily" }

// Next reports when the trigger fires after from.
func (t *Daily) Next(from time.Time) (time.Time, error) {
	sched, err := dailyParser.Parse(t.spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from.In(t.loc)), nil
}

func (t *Daily) Run(ctx context.Context, job Job) error {
	c := cron.New(cron.WithParser(dailyParser), cron.WithLocation(t.loc))

	var lock sync.Mutex
	errCh := make(chan error, 1)

	_, err := c.AddFunc(t.spec, func() {
		if !lock.TryLock() {
			t.log.Warn().Str("at", t.at).Msg("Previous copy still running, skipping tick")
			return
		}
		defer lock.Unlock()

		if err := job(ctx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid daily schedule %q: %w", t.at, err)
	}

	c.Start()
	defer func() { <-c.Stop().Done() }()

	if next, err := t.Next(time.Now()); err == nil {
		t.log.Info().Str("at", t.at).Time("next", next).Msg("Daily trigger registered")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("daily tick: %w", err)
	}
}
