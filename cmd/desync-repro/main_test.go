package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/internal/config"
	"github.com/iw2rmb/desync/room"
	"github.com/iw2rmb/desync/typing"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestRunFailsWithoutKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(nil, env(nil), &stdout, &stderr)

	var missing *config.MissingKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, config.PublicKeyEnv, missing.Key)
	assert.Contains(t, err.Error(), "DESYNC_PUBLIC_KEY")
	assert.Empty(t, stdout.String())
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--version"}, env(nil), &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "desync-repro v"))
}

func TestRunRejectsExtraArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"extra"}, env(map[string]string{config.PublicKeyEnv: "pk_test"}), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected argument")
}

func TestRunHeadless(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"--headless", "--duration", "50ms", "--interval", "2ms", "--erase-every", "0", "--log-level", "warn"}
	require.NoError(t, run(args, env(map[string]string{config.PublicKeyEnv: "pk_test"}), &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "client A:")
	assert.Contains(t, out, "client B:")
	assert.Contains(t, out, "result: clients converged")
}

func TestRunHeadlessInvalidKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--headless"}, env(map[string]string{config.PublicKeyEnv: "sk_live"}), &stdout, &stderr)
	require.ErrorIs(t, err, room.ErrInvalidKey)
}

func newTestApp(t *testing.T) appModel {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PublicKey = "pk_test"
	app, err := newApp(context.Background(), room.NewHub(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func update(t *testing.T, m appModel, msg tea.Msg) appModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(appModel)
}

func readyApp(t *testing.T) appModel {
	t.Helper()
	m := newTestApp(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	msg := m.Init()()
	require.IsType(t, readyMsg{}, msg)
	return update(t, m, msg)
}

func TestAppShowsLoadingUntilReady(t *testing.T) {
	m := newTestApp(t)
	assert.Equal(t, loadingText, m.View())

	// Nothing to type into yet.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, typing.Idle, m.rt.gen.State())

	m = update(t, m, m.Init()())
	assert.Contains(t, m.View(), buttonLabel)
	assert.Contains(t, m.View(), "Steps to reproduce")
}

func TestAppToggleByKeyAndClick(t *testing.T) {
	m := readyApp(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, typing.Running, m.rt.gen.State())

	click := tea.MouseMsg{X: 2, Y: m.buttonRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	m = update(t, m, click)
	assert.Equal(t, typing.Idle, m.rt.gen.State())

	lines := strings.Split(m.View(), "\n")
	require.Greater(t, len(lines), m.buttonRow)
	assert.Contains(t, lines[m.buttonRow], buttonLabel)
}

func TestAppPeerEraseAndResync(t *testing.T) {
	m := readyApp(t)

	require.NoError(t, m.rt.youEd.InsertContent("hello"))
	require.Eventually(t, func() bool { return m.rt.peerEd.Text() == "hello" }, 2*time.Second, time.Millisecond)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Equal(t, "he", m.rt.peerEd.Text())
	require.Eventually(t, func() bool { return m.rt.youEd.Text() == "he" }, 2*time.Second, time.Millisecond)
}

func TestAppQuitClosesGenerator(t *testing.T) {
	m := readyApp(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, typing.Running, m.rt.gen.State())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(appModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, typing.Idle, m.rt.gen.State())

	// Closed generators ignore later toggles.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, typing.Idle, m.rt.gen.State())
}

func TestAppResyncRestoresProviderText(t *testing.T) {
	m := readyApp(t)
	require.NoError(t, m.rt.youEd.InsertContent("abc"))
	require.Eventually(t, func() bool { return m.rt.peerEd.Text() == "abc" }, 2*time.Second, time.Millisecond)

	// Leaving the room makes later local edits local-only.
	require.NoError(t, m.rt.peer.Document().Leave())
	_ = m.rt.peerEd.Edit(func(b *buffer.Buffer) { b.InsertText("zzz") })
	require.Equal(t, "zzzabc", m.rt.peerEd.Text())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, "abc", m.rt.peerEd.Text())
	assert.Contains(t, m.View(), "in sync")
}

func TestAppKeysReachYourEditor(t *testing.T) {
	m := readyApp(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	assert.Equal(t, "hi", m.rt.youEd.Text())
}
