package room

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/internal/clock"
	"github.com/iw2rmb/desync/internal/codec"
)

// KeyPrefix is the prefix the loopback provider requires on public keys.
const KeyPrefix = "pk_"

var serverPolicy = buffer.ApplyRemoteOptions{
	ClampPolicy:         buffer.ConvertPolicy{ClampMode: buffer.OffsetClamp, NewlineMode: buffer.NewlineAsSingleRune},
	VersionMismatchMode: buffer.VersionMismatchForceApply,
}

// Hub is an in-process Provider. It relays patches between the members of a
// room in the order it receives them and keeps the document that results
// from applying them in that order. It does not transform or merge anything.
type Hub struct {
	clock   clock.Clock
	latency time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	rooms map[string]*hubRoom
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithClock sets the clock latency is measured on. Tests pass a fake.
func WithClock(c clock.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

// WithLatency delays the initial sync and every delivery by d.
func WithLatency(d time.Duration) HubOption {
	return func(h *Hub) { h.latency = d }
}

// WithLogger sets the logger for membership and relay records.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// NewHub returns an empty hub. Rooms are created on first join.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clock: clock.Real(),
		rooms: make(map[string]*hubRoom),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

func (h *Hub) Connect(ctx context.Context, key string) (Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(key, KeyPrefix) || len(key) == len(KeyPrefix) {
		return nil, fmt.Errorf("%w: loopback keys start with %q", ErrInvalidKey, KeyPrefix)
	}
	return &hubClient{hub: h, id: uuid.NewString()}, nil
}

func (h *Hub) room(id string) *hubRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		r = &hubRoom{
			id:      id,
			hub:     h,
			doc:     buffer.New(""),
			members: make(map[string]*member),
		}
		h.rooms[id] = r
	}
	return r
}

type hubClient struct {
	hub *Hub
	id  string

	mu     sync.Mutex
	docs   []*member
	closed bool
}

func (c *hubClient) JoinRoom(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	m := c.hub.room(id).join()
	c.docs = append(c.docs, m)
	return m, nil
}

func (c *hubClient) Close() error {
	c.mu.Lock()
	docs := c.docs
	c.docs = nil
	c.closed = true
	c.mu.Unlock()

	for _, m := range docs {
		_ = m.Leave()
	}
	return nil
}

type hubRoom struct {
	id  string
	hub *Hub

	mu      sync.Mutex
	doc     *buffer.Buffer
	seq     uint64
	members map[string]*member
}

func (r *hubRoom) snapshotLocked() Snapshot {
	return Snapshot{Text: r.doc.Text(), Seq: r.seq}
}

func (r *hubRoom) join() *member {
	m := &member{
		id:   uuid.NewString(),
		room: r,
		subs: make(map[int]func(Patch)),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.members[m.id] = m
	initial := r.snapshotLocked()
	r.mu.Unlock()

	r.hub.logger.Debug("member joined", "room", r.id, "member", m.id, "seq", initial.Seq)
	go m.run(initial)
	return m
}

func (r *hubRoom) submit(from *member, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	p.Seq = r.seq
	p.Author = from.id
	if p.OpID == "" {
		p.OpID = uuid.NewString()
	}

	edits := make([]buffer.RemoteEdit, 0, len(p.Edits))
	for _, e := range p.Edits {
		edits = append(edits, buffer.RemoteEdit{
			Span: &buffer.RuneSpan{Start: e.Start, End: e.End},
			Text: e.Text,
			OpID: p.OpID,
		})
	}
	r.doc.ApplyRemote(edits, serverPolicy)

	data, err := codec.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	logger := r.hub.logger
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		diag, _ := codec.Diagnose(data)
		logger.Debug("patch relayed", "room", r.id, "seq", p.Seq, "author", p.Author, "bytes", len(data), "patch", diag)
	}
	for id, m := range r.members {
		if id != from.id {
			m.enqueue(data)
		}
	}
	return nil
}

func (r *hubRoom) leave(m *member) {
	r.mu.Lock()
	delete(r.members, m.id)
	r.mu.Unlock()
}

type member struct {
	id   string
	room *hubRoom

	mu       sync.Mutex
	state    ConnectionState
	subs     map[int]func(Patch)
	nextSub  int
	readyFns []func(Snapshot)
	ready    *Snapshot
	inbox    [][]byte

	wake chan struct{}
	done chan struct{}
}

func (m *member) MemberID() string { return m.id }

func (m *member) SubmitLocalEdit(p Patch) error {
	if m.ConnectionState() == StateClosed {
		return ErrClosed
	}
	if len(p.Edits) == 0 {
		return nil
	}
	return m.room.submit(m, p)
}

func (m *member) OnRemoteEdit(fn func(Patch)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *member) OnReady(fn func(Snapshot)) {
	m.mu.Lock()
	if m.ready == nil {
		m.readyFns = append(m.readyFns, fn)
		m.mu.Unlock()
		return
	}
	snap := *m.ready
	m.mu.Unlock()
	fn(snap)
}

func (m *member) ConnectionState() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *member) Snapshot() Snapshot {
	m.room.mu.Lock()
	defer m.room.mu.Unlock()
	return m.room.snapshotLocked()
}

func (m *member) Leave() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	m.subs = make(map[int]func(Patch))
	m.readyFns = nil
	m.inbox = nil
	m.mu.Unlock()

	close(m.done)
	m.room.leave(m)
	m.room.hub.logger.Debug("member left", "room", m.room.id, "member", m.id)
	return nil
}

func (m *member) enqueue(data []byte) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.inbox = append(m.inbox, data)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run performs the initial sync and then delivers queued patches until the
// member leaves.
func (m *member) run(initial Snapshot) {
	hub := m.room.hub
	if !m.delay(hub) {
		return
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.ready = &initial
	fns := m.readyFns
	m.readyFns = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn(initial)
	}

	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			data, ok := m.next()
			if !ok {
				break
			}
			if !m.delay(hub) {
				return
			}
			var p Patch
			if err := codec.Unmarshal(data, &p); err != nil {
				hub.logger.Warn("dropping undecodable patch", "member", m.id, "error", err)
				continue
			}
			for _, fn := range m.subscribers() {
				fn(p)
			}
		}
	}
}

func (m *member) delay(hub *Hub) bool {
	if hub.latency <= 0 {
		select {
		case <-m.done:
			return false
		default:
			return true
		}
	}
	select {
	case <-m.done:
		return false
	case <-hub.clock.After(hub.latency):
		return true
	}
}

func (m *member) next() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbox) == 0 {
		return nil, false
	}
	data := m.inbox[0]
	m.inbox[0] = nil
	m.inbox = m.inbox[1:]
	return data, true
}

func (m *member) subscribers() []func(Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Patch), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}
