package main

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender stands in for the program; each Send takes a while, the
// way a busy event loop does.
type recordingSender struct {
	mu   sync.Mutex
	msgs []logRecordMsg
}

func (s *recordingSender) Send(msg tea.Msg) {
	time.Sleep(100 * time.Microsecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg.(logRecordMsg))
}

func (s *recordingSender) received() []logRecordMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logRecordMsg(nil), s.msgs...)
}

func TestTUILogHandlerDeliversInOrder(t *testing.T) {
	handler := newTUILogHandler(slog.LevelDebug)
	defer handler.Close()
	sender := &recordingSender{}
	handler.SetProgram(sender)
	logger := slog.New(handler).With("client", "you")

	const n = 200
	for i := range n {
		logger.Debug(fmt.Sprintf("record %03d", i))
	}

	last := fmt.Sprintf("record %03d (client=you)", n-1)
	require.Eventually(t, func() bool {
		msgs := sender.received()
		return len(msgs) > 0 && msgs[len(msgs)-1].Summary == last
	}, 2*time.Second, time.Millisecond)

	msgs := sender.received()
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].Summary, msgs[i].Summary, "record %d arrived out of order", i)
	}
	assert.Equal(t, slog.LevelDebug, msgs[len(msgs)-1].Level)
}

func TestTUILogHandlerDropsBeforeProgramAndAfterClose(t *testing.T) {
	handler := newTUILogHandler(slog.LevelInfo)
	logger := slog.New(handler)
	logger.Info("too early")

	sender := &recordingSender{}
	handler.SetProgram(sender)
	logger.Debug("below level")
	logger.Info("joined room", "room", "my-room")
	require.Eventually(t, func() bool { return len(sender.received()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "joined room (room=my-room)", sender.received()[0].Summary)

	handler.Close()
	handler.Close()
	logger.Warn("too late")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sender.received(), 1)
}
