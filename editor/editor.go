package editor

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/room"
)

// Editor is a live, thread-safe handle over a buffer bound to a shared
// document. Local and remote mutations are serialized by one mutex; nothing
// is reordered or merged.
type Editor struct {
	cfg    Config
	doc    room.Document
	logger *slog.Logger

	mu          sync.Mutex
	buf         *buffer.Buffer
	pending     []buffer.Change
	rev         uint64
	// synced is the sequence number of the snapshot the buffer was last
	// loaded from. Remote patches at or below it are already in the text.
	synced      uint64
	unsubscribe func()
	closed      bool
}

// Open creates an editor seeded from doc's snapshot and subscribes it to
// doc's remote edits. doc may be nil, in which case the editor is local only
// and starts with cfg.Text.
//
// The subscription is made before the snapshot is read, so no patch falls
// between the two; patches the snapshot already contains are skipped.
func Open(doc room.Document, cfg Config) *Editor {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	e := &Editor{
		cfg:    cfg,
		doc:    doc,
		logger: cfg.Logger,
	}
	if doc == nil {
		e.setBuffer(buffer.New(cfg.Text))
		return e
	}

	// applyRemote waits on mu until the buffer is in place.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unsubscribe = doc.OnRemoteEdit(e.applyRemote)
	snap := doc.Snapshot()
	e.synced = snap.Seq
	e.setBuffer(buffer.New(snap.Text))
	return e
}

func (e *Editor) setBuffer(b *buffer.Buffer) {
	b.SetOnChange(func(ch buffer.Change) {
		if ch.Source == buffer.ChangeSourceLocal {
			e.pending = append(e.pending, ch)
		}
	})
	e.buf = b
}

// InsertContent inserts text at the insertion point, replacing the selection
// if there is one.
func (e *Editor) InsertContent(text string) error {
	return e.Edit(func(b *buffer.Buffer) { b.InsertText(text) })
}

// Edit runs fn against the buffer as one local transaction. Text changes made
// by fn are submitted to the document as a single patch.
func (e *Editor) Edit(fn func(*buffer.Buffer)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	before := e.buf.Version()
	e.pending = e.pending[:0]
	fn(e.buf)

	changes := e.pending
	e.pending = nil
	tx := e.transactionLocked(OriginLocal, len(changes) > 0)
	text := e.buf.Text()

	var err error
	var edits []buffer.AppliedEdit
	for _, ch := range changes {
		edits = append(edits, ch.AppliedEdits...)
	}
	if len(edits) > 0 && e.doc != nil {
		p := room.Patch{OpID: uuid.NewString(), Edits: patchEdits(edits)}
		if serr := e.doc.SubmitLocalEdit(p); serr != nil {
			err = fmt.Errorf("submit patch: %w", serr)
		}
	}
	changed := e.buf.Version() != before
	if changed {
		e.rev++
	}
	e.mu.Unlock()

	if len(edits) > 0 {
		e.cfg.Hooks.update(UpdateEvent{Origin: OriginLocal, Version: tx.Version, Text: text, Edits: edits})
	}
	if changed {
		e.cfg.Hooks.transaction(tx)
	}
	return err
}

// patchEdits converts applied edits to wire edits. Each applied edit already
// carries its offset in the document as it stood before that edit, which is
// what sequential patch application expects.
func patchEdits(applied []buffer.AppliedEdit) []room.Edit {
	out := make([]room.Edit, 0, len(applied))
	for _, a := range applied {
		out = append(out, room.Edit{
			Start: a.OffsetBefore,
			End:   a.OffsetBefore + utf8.RuneCountInString(a.DeletedText),
			Text:  a.InsertText,
		})
	}
	return out
}

func (e *Editor) applyRemote(p room.Patch) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	// Seq zero marks a patch the provider did not sequence.
	if p.Seq != 0 && p.Seq <= e.synced {
		e.mu.Unlock()
		e.logger.Debug("skipping patch already in snapshot", "op", p.OpID, "seq", p.Seq, "synced", e.synced)
		return
	}

	edits := make([]buffer.RemoteEdit, 0, len(p.Edits))
	trivial := true
	for _, pe := range p.Edits {
		if pe.Start != pe.End || pe.Text != "" {
			trivial = false
		}
		edits = append(edits, buffer.RemoteEdit{
			Span: &buffer.RuneSpan{Start: pe.Start, End: pe.End},
			Text: pe.Text,
			OpID: p.OpID,
		})
	}
	res, changed := e.buf.ApplyRemote(edits, buffer.ApplyRemoteOptions{
		ClampPolicy:         e.policy(),
		VersionMismatchMode: buffer.VersionMismatchForceApply,
	})
	version := e.buf.Version()
	if !changed {
		e.mu.Unlock()
		if trivial {
			return
		}
		cause := ErrPatchNoEffect
		if e.cfg.ClampMode == buffer.OffsetError {
			cause = ErrPatchRejected
		}
		e.logger.Debug("remote patch not applied", "op", p.OpID, "seq", p.Seq, "author", p.Author, "error", cause)
		e.cfg.Hooks.contentError(ContentError{Patch: p, Err: cause, Version: version})
		return
	}
	e.rev++
	tx := e.transactionLocked(OriginRemote, true)
	remap := res.Remap
	tx.Remap = &remap
	text := e.buf.Text()
	e.mu.Unlock()

	e.cfg.Hooks.update(UpdateEvent{Origin: OriginRemote, Version: version, Text: text, Edits: res.Change.AppliedEdits})
	e.cfg.Hooks.transaction(tx)
}

// Resync replaces the local content with the provider's snapshot. The cursor
// keeps its position, clamped to the new content. Nothing is submitted.
// Patches still in flight that the snapshot already contains are skipped
// when they arrive.
func (e *Editor) Resync() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	snap := e.doc.Snapshot()
	e.synced = max(e.synced, snap.Seq)
	if snap.Text == e.buf.Text() {
		e.mu.Unlock()
		return nil
	}

	cursor := e.buf.Cursor()
	next := buffer.New(snap.Text)
	next.SetCursor(cursor)
	e.setBuffer(next)
	e.rev++
	tx := e.transactionLocked(OriginResync, true)
	e.mu.Unlock()

	e.logger.Debug("resynced from snapshot", "seq", snap.Seq)
	e.cfg.Hooks.update(UpdateEvent{Origin: OriginResync, Version: tx.Version, Text: snap.Text})
	e.cfg.Hooks.transaction(tx)
	return nil
}

func (e *Editor) transactionLocked(origin Origin, textChanged bool) TransactionEvent {
	tx := TransactionEvent{
		Origin:      origin,
		Version:     e.buf.Version(),
		Cursor:      e.buf.Cursor(),
		TextChanged: textChanged,
	}
	tx.Offset, _ = e.buf.RuneOffsetFromPos(tx.Cursor, e.policy())
	if r, ok := e.buf.Selection(); ok {
		tx.Selection = buffer.SelectionState{Active: true, Range: r}
	}
	return tx
}

func (e *Editor) policy() buffer.ConvertPolicy {
	return buffer.ConvertPolicy{ClampMode: e.cfg.ClampMode, NewlineMode: buffer.NewlineAsSingleRune}
}

// Close stops applying remote patches. It does not leave the document.
func (e *Editor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	return nil
}

// View runs fn with read access to the buffer. fn must not mutate it.
func (e *Editor) View(fn func(*buffer.Buffer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.buf)
}

// Revision increments on every effective change. Unlike the buffer version it
// survives Resync.
func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rev
}

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Text()
}

func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Version()
}

func (e *Editor) Cursor() buffer.Pos {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Cursor()
}
