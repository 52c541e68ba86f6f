package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Delayer arms one future wake-up.
type Delayer interface {
	After(d time.Duration) <-chan time.Time
}

type timerDelayer struct{}

func (timerDelayer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Delay waits Interval before every tick and stops after MaxTicks delays, so
// the first copy happens one interval after Run starts. Only one delay is ever
// outstanding.
type Delay struct {
	interval time.Duration
	maxTicks int
	delayer  Delayer
	log      zerolog.Logger

	mu          sync.Mutex
	invocations int
	state       State
}

type DelayOption func(*Delay)

func WithDelayer(d Delayer) DelayOption { return func(t *Delay) { t.delayer = d } }

func WithDelayLogger(l zerolog.Logger) DelayOption { return func(t *Delay) { t.log = l } }

func NewDelay(interval time.Duration, maxTicks int, opts ...DelayOption) *Delay {
	t := &Delay{
		interval: interval,
		maxTicks: maxTicks,
		delayer:  timerDelayer{},
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Delay) Name() string { return "delay" }

func (t *Delay) Invocations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.invocations
}

func (t *Delay) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// arm reserves the next delay, or reports false once the cap is reached.
func (t *Delay) arm() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopped || t.invocations >= t.maxTicks {
		t.state = Stopped
		return t.invocations, false
	}
	t.invocations++
	return t.invocations, true
}

func (t *Delay) stop() {
	t.mu.Lock()
	t.state = Stopped
	t.mu.Unlock()
}

func (t *Delay) Run(ctx context.Context, job Job) error {
	for {
		n, ok := t.arm()
		if !ok {
			t.log.Info().Int("ticks", n).Msg("Tick limit reached, no further copies scheduled")
			return nil
		}

		t.log.Debug().Int("tick", n).Dur("interval", t.interval).Msg("Next tick scheduled")
		select {
		case <-ctx.Done():
			t.stop()
			return ctx.Err()
		case <-t.delayer.After(t.interval):
		}

		if err := job(ctx); err != nil {
			t.stop()
			return fmt.Errorf("tick %d: %w", n, err)
		}
	}
}
