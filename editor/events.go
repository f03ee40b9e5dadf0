package editor

import (
	"errors"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/room"
)

var (
	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("editor: closed")
	// ErrPatchRejected reports a remote patch whose offsets fall outside the
	// local document under OffsetError.
	ErrPatchRejected = errors.New("editor: remote patch rejected")
	// ErrPatchNoEffect reports a remote patch that carried edits but left the
	// local document unchanged.
	ErrPatchNoEffect = errors.New("editor: remote patch had no effect")
)

// Origin says what caused a state change.
type Origin uint8

const (
	OriginLocal Origin = iota
	OriginRemote
	OriginResync
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginResync:
		return "resync"
	default:
		return "local"
	}
}

// ContentError describes a remote patch the editor could not apply cleanly.
type ContentError struct {
	Patch   room.Patch
	Err     error
	Version uint64
}

func (e ContentError) Error() string { return e.Err.Error() }

func (e ContentError) Unwrap() error { return e.Err }

// UpdateEvent is emitted after the text changed.
type UpdateEvent struct {
	Origin  Origin
	Version uint64
	Text    string
	// Edits are the effective edits in application order. Empty for resync.
	Edits []buffer.AppliedEdit
}

// TransactionEvent is emitted after any effective state change.
type TransactionEvent struct {
	Origin      Origin
	Version     uint64
	Cursor      buffer.Pos
	// Offset is Cursor as a rune offset, the coordinate patches use.
	Offset      int
	Selection   buffer.SelectionState
	TextChanged bool
	// Remap is set for remote patches.
	Remap *buffer.RemapReport
}

// Hooks are observers. They run after the editor released its lock, may
// read the editor, and cannot influence what happened.
type Hooks struct {
	OnContentError func(ContentError)
	OnUpdate       func(UpdateEvent)
	OnTransaction  func(TransactionEvent)
}

func (h Hooks) contentError(ev ContentError) {
	if h.OnContentError != nil {
		h.OnContentError(ev)
	}
}

func (h Hooks) update(ev UpdateEvent) {
	if h.OnUpdate != nil {
		h.OnUpdate(ev)
	}
}

func (h Hooks) transaction(ev TransactionEvent) {
	if h.OnTransaction != nil {
		h.OnTransaction(ev)
	}
}
