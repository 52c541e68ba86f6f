package copier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrCopyFailed marks any filesystem failure while duplicating the source.
var ErrCopyFailed = errors.New("copy failed")

// Source describes what gets copied and where. It is fixed for the life of a Copier.
type Source struct {
	Path     string
	DestDir  string
	BaseName string
}

// Result describes one successful copy.
type Result struct {
	Seq         int       `json:"seq"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Bytes       int64     `json:"bytes"`
	SHA256      string    `json:"sha256"`
	CopiedAt    time.Time `json:"copied_at"`
}

// Hook observes successful copies. Errors are logged and otherwise ignored.
type Hook interface {
	OnCopy(ctx context.Context, r Result) error
}

type HookFunc func(ctx context.Context, r Result) error

func (f HookFunc) OnCopy(ctx context.Context, r Result) error { return f(ctx, r) }

type Copier struct {
	src     Source
	out     io.Writer
	log     zerolog.Logger
	now     func() time.Time
	hooks   []Hook
	mu      sync.Mutex
	counter int
}

type Option func(*Copier)

// WithOutput sets where the "copy file done" confirmation lines are printed.
func WithOutput(w io.Writer) Option { return func(c *Copier) { c.out = w } }

func WithLogger(l zerolog.Logger) Option { return func(c *Copier) { c.log = l } }

// WithStartCounter sets the suffix of the first copy.
func WithStartCounter(n int) Option { return func(c *Copier) { c.counter = n } }

func WithHooks(h ...Hook) Option { return func(c *Copier) { c.hooks = append(c.hooks, h...) } }

func WithClock(now func() time.Time) Option { return func(c *Copier) { c.now = now } }

func New(src Source, opts ...Option) *Copier {
	if src.BaseName == "" {
		src.BaseName = filepath.Base(src.Path)
	}
	c := &Copier{
		src: src,
		out: os.Stdout,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Copier) Source() Source { return c.src }

// Counter returns the suffix the next copy will use.
func (c *Copier) Counter() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// DestinationPath renders the destination for counter n.
func (c *Copier) DestinationPath(n int) string {
	return filepath.Join(c.src.DestDir, c.src.BaseName+"."+strconv.Itoa(n))
}

// CopyOnce duplicates the source to the next destination path. The counter only
// advances when the copy completed; a missing source leaves no destination behind.
func (c *Copier) CopyOnce(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	res, err := c.copyLocked()
	c.mu.Unlock()
	if err != nil {
		c.log.Error().Err(err).Str("source", c.src.Path).Msg("Copy failed")
		return Result{}, err
	}

	fmt.Fprintf(c.out, "copy file done: %s\n", res.Destination)
	c.log.Debug().
		Int("seq", res.Seq).
		Str("destination", res.Destination).
		Int64("bytes", res.Bytes).
		Msg("Copy completed")

	for _, h := range c.hooks {
		if err := h.OnCopy(ctx, res); err != nil {
			c.log.Warn().Err(err).Int("seq", res.Seq).Msg("Copy hook failed")
		}
	}
	return res, nil
}

func (c *Copier) copyLocked() (Result, error) {
	seq := c.counter
	dest := c.DestinationPath(seq)

	in, err := os.Open(c.src.Path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open source: %w", ErrCopyFailed, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("%w: stat source: %w", ErrCopyFailed, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: source %s is a directory", ErrCopyFailed, c.src.Path)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create destination: %w", ErrCopyFailed, err)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hasher), in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return Result{}, fmt.Errorf("%w: write destination: %w", ErrCopyFailed, err)
	}

	c.counter++
	return Result{
		Seq:         seq,
		Source:      c.src.Path,
		Destination: dest,
		Bytes:       n,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		CopiedAt:    c.now(),
	}, nil
}
