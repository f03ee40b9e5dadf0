// Package repro runs the two-client desync scenario without a terminal:
// client A types continuously while client B keeps selecting and deleting
// the tail of the document, then the clients are compared with the
// provider's copy.
package repro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/editor"
	"github.com/iw2rmb/desync/internal/clock"
	"github.com/iw2rmb/desync/internal/grapheme"
	"github.com/iw2rmb/desync/room"
	"github.com/iw2rmb/desync/typing"
)

// Config describes one scenario run. Key is required; see DefaultConfig for
// the rest.
type Config struct {
	Key      string
	RoomID   string
	Interval time.Duration
	Text     string

	// Duration is how long client A types.
	Duration time.Duration
	// EraseEvery is the period of client B's select-and-delete. Zero
	// disables client B's edits.
	EraseEvery time.Duration
	// EraseWidth is the number of trailing graphemes client B deletes.
	EraseWidth int
	// Settle bounds the wait for in-flight patches after typing stops.
	Settle time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig types for three seconds and erases three graphemes every
// 400ms, at the generator's default interval and text.
func DefaultConfig() Config {
	return Config{
		RoomID:     room.DefaultID,
		Interval:   typing.DefaultInterval,
		Text:       typing.DefaultText,
		Duration:   3 * time.Second,
		EraseEvery: 400 * time.Millisecond,
		EraseWidth: 3,
		Settle:     time.Second,
	}
}

// ClientReport is one client's final state.
type ClientReport struct {
	Name     string
	MemberID string
	Text     string
	// Length counts graphemes.
	Length        int
	ContentErrors int64
	Diverged      bool
}

// Report is the outcome of Run. Server is the provider's copy after the
// settle period.
type Report struct {
	Server  room.Snapshot
	Ticks   uint64
	Erases  int64
	Clients []ClientReport
}

// Diverged reports whether any client ended up with text that differs from
// the provider's copy.
func (r Report) Diverged() bool {
	for _, c := range r.Clients {
		if c.Diverged {
			return true
		}
	}
	return false
}

type client struct {
	name    string
	session *room.Session
	ed      *editor.Editor
	errs    atomic.Int64
}

// Run executes the scenario against provider.
func Run(ctx context.Context, provider room.Provider, cfg Config) (Report, error) {
	def := DefaultConfig()
	if cfg.RoomID == "" {
		cfg.RoomID = def.RoomID
	}
	if cfg.EraseWidth <= 0 {
		cfg.EraseWidth = def.EraseWidth
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	logger := cfg.Logger

	a, err := join(ctx, provider, cfg, "A")
	if err != nil {
		return Report{}, err
	}
	defer a.close()
	b, err := join(ctx, provider, cfg, "B")
	if err != nil {
		return Report{}, err
	}
	defer b.close()

	gen := typing.New(a.ed, typing.Config{
		Interval: cfg.Interval,
		Text:     cfg.Text,
		Clock:    cfg.Clock,
		Logger:   logger.With("client", a.name),
	})
	defer gen.Close()

	var erases atomic.Int64
	var eraser *clock.Ticker
	if cfg.EraseEvery > 0 {
		eraser = cfg.Clock.Every(cfg.EraseEvery, func() {
			if text := EraseTail(b.ed, cfg.EraseWidth); text != "" {
				erases.Add(1)
				logger.Debug("erased tail", "client", b.name, "text", text)
			}
		})
	}
	defer eraser.Stop()

	logger.Info("typing started", "room", cfg.RoomID, "interval", cfg.Interval, "duration", cfg.Duration)
	gen.Toggle()
	if err := sleep(ctx, cfg.Clock, cfg.Duration); err != nil {
		return Report{}, err
	}
	gen.Toggle()
	eraser.Stop()
	logger.Info("typing stopped", "ticks", gen.Ticks(), "erases", erases.Load())

	clients := []*client{a, b}
	if err := settle(ctx, cfg.Clock, cfg.Settle, clients); err != nil {
		return Report{}, err
	}

	rep := Report{
		Server: a.session.Document().Snapshot(),
		Ticks:  gen.Ticks(),
		Erases: erases.Load(),
	}
	for _, c := range clients {
		text := c.ed.Text()
		rep.Clients = append(rep.Clients, ClientReport{
			Name:          c.name,
			MemberID:      c.session.Document().MemberID(),
			Text:          text,
			Length:        grapheme.Count(text),
			ContentErrors: c.errs.Load(),
			Diverged:      text != rep.Server.Text,
		})
	}
	return rep, nil
}

func join(ctx context.Context, provider room.Provider, cfg Config, name string) (*client, error) {
	s, err := room.Bootstrap(ctx, provider, cfg.Key, cfg.RoomID)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", name, err)
	}
	if err := s.Wait(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("client %s: wait for sync: %w", name, err), s.Close())
	}

	c := &client{name: name, session: s}
	logger := cfg.Logger.With("client", name)
	c.ed = editor.Open(s.Document(), editor.Config{
		ClampMode: buffer.OffsetClamp,
		Logger:    logger,
		Hooks: editor.Hooks{
			OnContentError: func(ev editor.ContentError) {
				c.errs.Add(1)
				logger.Warn("content error", "op", ev.Patch.OpID, "seq", ev.Patch.Seq, "error", ev.Err)
			},
		},
	})
	return c, nil
}

func (c *client) close() {
	_ = c.ed.Close()
	_ = c.session.Close()
}

// EraseTail deletes the last width graphemes of the last line, the way a
// user drags over the tail and hits backspace. It returns the deleted text,
// or "" if the line was empty.
func EraseTail(ed *editor.Editor, width int) string {
	var erased string
	_ = ed.Edit(func(b *buffer.Buffer) {
		end := b.End()
		if end.GraphemeCol == 0 {
			return
		}
		start := buffer.Pos{Row: end.Row, GraphemeCol: max(end.GraphemeCol-width, 0)}
		before := b.Version()
		b.Apply(buffer.TextEdit{Range: buffer.Range{Start: start, End: end}})
		if ch, ok := b.LastChange(); ok && b.Version() != before {
			for _, e := range ch.AppliedEdits {
				erased += e.DeletedText
			}
		}
	})
	return erased
}

func sleep(ctx context.Context, c clock.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

const settlePoll = 10 * time.Millisecond

// settle waits until every client matches the provider's copy, or until
// limit has elapsed. Running out of time is not an error: that is what a
// desync looks like.
func settle(ctx context.Context, c clock.Clock, limit time.Duration, clients []*client) error {
	deadline := c.Now().Add(limit)
	for {
		server := clients[0].session.Document().Snapshot().Text
		converged := true
		for _, cl := range clients {
			if cl.ed.Text() != server {
				converged = false
				break
			}
		}
		if converged || !c.Now().Before(deadline) {
			return nil
		}
		if err := sleep(ctx, c, settlePoll); err != nil {
			return err
		}
	}
}
