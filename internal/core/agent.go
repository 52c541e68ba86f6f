package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/cleverdata/tickcopy/internal/copier"
	"github.com/cleverdata/tickcopy/internal/history"
	"github.com/cleverdata/tickcopy/internal/logging"
	"github.com/cleverdata/tickcopy/internal/notify"
	"github.com/cleverdata/tickcopy/internal/trigger"
	"github.com/rs/zerolog"
)

// Agent owns the copier and the trigger that drives it.
type Agent struct {
	cfg     config.Config
	copier  *copier.Copier
	trigger trigger.Trigger
	store   *history.Store
	log     zerolog.Logger
}

type Options struct {
	Out     io.Writer       // Confirmation lines, defaults to stdout
	Trigger trigger.Trigger // Overrides the configured trigger
}

func New(cfg config.Config, log zerolog.Logger, opts Options) (*Agent, error) {
	a := &Agent{cfg: cfg, log: logging.Component(log, "agent")}

	var hooks []copier.Hook
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = store
		hooks = append(hooks, store)
	}
	if cfg.Notify.Endpoint != "" {
		hooks = append(hooks, notify.New(cfg.Notify, logging.Component(log, "notify")))
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	a.copier = copier.New(copier.Source{
		Path:     cfg.Source.Path,
		DestDir:  cfg.Source.DestDir,
		BaseName: cfg.Source.BaseName,
	},
		copier.WithOutput(out),
		copier.WithStartCounter(cfg.Source.StartCounter),
		copier.WithLogger(logging.Component(log, "copier")),
		copier.WithHooks(hooks...),
	)

	a.trigger = opts.Trigger
	if a.trigger == nil {
		t, err := trigger.FromConfig(cfg.Trigger, cfg.Source.Path, logging.Component(log, "trigger"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.trigger = t
	}
	return a, nil
}

func (a *Agent) Copier() *copier.Copier { return a.copier }

func (a *Agent) Trigger() trigger.Trigger { return a.trigger }

// Run drives the trigger until it stops. Cancellation is a clean stop; a copy
// fault ends the run and is returned.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info().
		Str("trigger", a.trigger.Name()).
		Str("source", a.cfg.Source.Path).
		Str("dest", a.cfg.Source.DestDir).
		Msg("Agent starting")

	err := a.trigger.Run(ctx, func(ctx context.Context) error {
		_, err := a.copier.CopyOnce(ctx)
		return err
	})
	switch {
	case err == nil:
		a.log.Info().Int("copies", a.copier.Counter()-a.cfg.Source.StartCounter).Msg("Trigger stopped")
		return nil
	case errors.Is(err, context.Canceled):
		a.log.Info().Msg("Agent interrupted")
		return nil
	default:
		return fmt.Errorf("%s trigger: %w", a.trigger.Name(), err)
	}
}

// CopyOnce performs a single copy outside any trigger.
func (a *Agent) CopyOnce(ctx context.Context) (copier.Result, error) {
	return a.copier.CopyOnce(ctx)
}

func (a *Agent) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
