package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries a log record to the status bar.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// msgSender is the part of *tea.Program the log handler needs.
type msgSender interface {
	Send(msg tea.Msg)
}

// logForwarder hands records to the program from a single goroutine, so they
// arrive in the order they were logged. The status bar shows one record, so
// only the newest undelivered record is kept.
type logForwarder struct {
	mu      sync.Mutex
	program msgSender
	pending *logRecordMsg

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newLogForwarder() *logForwarder {
	f := &logForwarder{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *logForwarder) setProgram(p msgSender) {
	f.mu.Lock()
	f.program = p
	f.mu.Unlock()
}

func (f *logForwarder) post(msg logRecordMsg) {
	select {
	case <-f.done:
		return
	default:
	}
	f.mu.Lock()
	if f.program == nil {
		f.mu.Unlock()
		return
	}
	f.pending = &msg
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *logForwarder) run() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		f.mu.Lock()
		msg, program := f.pending, f.program
		f.pending = nil
		f.mu.Unlock()
		if msg != nil {
			// Send blocks until the event loop reads the message.
			program.Send(*msg)
		}
	}
}

func (f *logForwarder) stop() {
	f.stopOnce.Do(func() { close(f.done) })
}

// tuiLogHandler routes log records into a bubbletea program as messages.
// Records arriving before SetProgram are dropped. Handlers derived via
// WithAttrs/WithGroup share the forwarder.
type tuiLogHandler struct {
	level slog.Level
	fwd   *logForwarder
	attrs []slog.Attr
	group string
}

func newTUILogHandler(level slog.Level) *tuiLogHandler {
	return &tuiLogHandler{level: level, fwd: newLogForwarder()}
}

func (h *tuiLogHandler) SetProgram(p msgSender) { h.fwd.setProgram(p) }

// Close stops forwarding. Later records are dropped.
func (h *tuiLogHandler) Close() { h.fwd.stop() }

func (h *tuiLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *tuiLogHandler) Handle(_ context.Context, record slog.Record) error {
	h.fwd.post(logRecordMsg{Summary: h.summary(record), Level: record.Level})
	return nil
}

// summary renders "message (key=value, ...)".
func (h *tuiLogHandler) summary(record slog.Record) string {
	var parts []string
	add := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, a.Value))
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	record.Attrs(add)
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *tuiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tuiLogHandler{
		level: h.level,
		fwd:   h.fwd,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
		group: h.group,
	}
}

func (h *tuiLogHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &tuiLogHandler{
		level: h.level,
		fwd:   h.fwd,
		attrs: append([]slog.Attr(nil), h.attrs...),
		group: group,
	}
}

func openFileLogHandler(path string, level slog.Level) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return handler, func() { file.Close() }, nil
}

// fanoutHandler sends each record to every sub-handler enabled for its level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
