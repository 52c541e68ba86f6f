package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/rs/zerolog"
)

// Job is the work a trigger fires. A returned error stops the trigger.
type Job func(ctx context.Context) error

// Trigger decides when a Job runs. Run blocks until the trigger reaches its
// terminal state, ctx is cancelled, or the job fails.
type Trigger interface {
	Name() string
	Run(ctx context.Context, job Job) error
}

type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FromConfig builds the trigger selected by cfg.Mode.
func FromConfig(cfg config.TriggerConfig, sourcePath string, log zerolog.Logger) (Trigger, error) {
	switch cfg.Mode {
	case config.ModeDelay:
		return NewDelay(cfg.Interval, cfg.MaxTicks, WithDelayLogger(log)), nil
	case config.ModeDaily:
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		return NewDaily(cfg.DailyAt, loc, log)
	case config.ModeWatch:
		return NewWatch(sourcePath, cfg.SettlingDelay, cfg.MaxTicks, log), nil
	default:
		return nil, fmt.Errorf("unknown trigger mode %q", cfg.Mode)
	}
}
