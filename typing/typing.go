// Package typing simulates a fast typist: a toggleable periodic task that
// inserts a fixed string at the editor's insertion point.
package typing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/iw2rmb/desync/internal/clock"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultText     = "a"
)

// Inserter is the editor command the generator drives.
type Inserter interface {
	InsertContent(text string) error
}

// State is the generator's lifecycle state.
type State uint8

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Config parameterizes a Generator. Zero fields take DefaultInterval,
// DefaultText, the real clock and a discarding logger.
type Config struct {
	Interval time.Duration
	Text     string
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Generator owns at most one repeating timer. Every exit path (Toggle off,
// Close) stops it, and a tick belonging to a stopped timer does nothing.
type Generator struct {
	interval time.Duration
	text     string
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	ed     Inserter
	state  State
	ticker *clock.Ticker
	gen    uint64
	ticks  uint64
	closed bool
}

// New returns an idle generator. ed may be nil until the editor exists; see
// SetEditor.
func New(ed Inserter, cfg Config) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Text == "" {
		cfg.Text = DefaultText
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		interval: cfg.Interval,
		text:     cfg.Text,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		ed:       ed,
	}
}

// SetEditor attaches the editor handle once it is initialized.
func (g *Generator) SetEditor(ed Inserter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ed = ed
}

// Toggle flips between Idle and Running. Without an editor, or after Close,
// it does nothing.
func (g *Generator) Toggle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.ed == nil {
		return
	}

	if g.state == Running {
		g.stopLocked()
		g.logger.Debug("simulated typing stopped", "ticks", g.ticks)
		return
	}

	g.gen++
	gen := g.gen
	g.state = Running
	g.ticker = g.clock.Every(g.interval, func() { g.tick(gen) })
	g.logger.Debug("simulated typing started", "interval", g.interval, "text", g.text)
}

func (g *Generator) tick(gen uint64) {
	g.mu.Lock()
	if g.closed || g.state != Running || g.gen != gen {
		g.mu.Unlock()
		return
	}
	ed := g.ed
	g.ticks++
	g.mu.Unlock()

	if err := ed.InsertContent(g.text); err != nil {
		g.logger.Debug("insert failed", "error", err)
	}
}

func (g *Generator) stopLocked() {
	g.ticker.Stop()
	g.ticker = nil
	g.state = Idle
	g.gen++
}

// State reports whether a timer is currently active.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Ticks counts insertions attempted since the generator was created.
func (g *Generator) Ticks() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ticks
}

// Close tears the generator down. It stops the timer if one is active and
// makes later toggles no-ops. It is safe to call more than once.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	if g.state == Running {
		g.stopLocked()
	}
	g.closed = true
	return nil
}
