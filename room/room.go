// Package room defines the presence/sync provider capabilities the harness
// depends on, the session bootstrap that joins the shared room, and an
// in-process loopback provider for running without a hosted service.
//
// The provider is a black box to the rest of the module: local edits go in
// through SubmitLocalEdit, remote edits come out through OnRemoteEdit, and
// readiness is signalled once through OnReady. Nothing here merges edits.
package room

import (
	"context"
	"errors"
)

// DefaultID is the room every client joins.
const DefaultID = "my-room"

var (
	// ErrInvalidKey is returned by Connect for a credential the provider
	// does not accept.
	ErrInvalidKey = errors.New("room: invalid public key")
	// ErrClosed is returned once a client or document has been closed.
	ErrClosed = errors.New("room: closed")
)

// ConnectionState is the provider's view of a joined document.
type ConnectionState uint8

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Edit replaces the runes in [Start, End) with Text. Offsets refer to the
// document the edit applies to, with newline counted as one rune.
type Edit struct {
	Start int    `cbor:"s"`
	End   int    `cbor:"e"`
	Text  string `cbor:"t,omitempty"`
}

// Patch is one local transaction as submitted to the provider. Edits apply
// in order, each against the result of the previous one. Author and Seq are
// assigned by the provider.
type Patch struct {
	OpID   string `cbor:"op"`
	Author string `cbor:"author"`
	Seq    uint64 `cbor:"seq"`
	Edits  []Edit `cbor:"edits"`
}

// Snapshot is the provider's copy of the shared document.
type Snapshot struct {
	Text string
	Seq  uint64
}

// Provider connects with an application key.
type Provider interface {
	Connect(ctx context.Context, key string) (Client, error)
}

// Client is a connected provider session.
type Client interface {
	JoinRoom(ctx context.Context, id string) (Document, error)
	Close() error
}

// Document is a joined room's shared document.
type Document interface {
	// MemberID identifies this participant; it is the Author of patches it
	// submits.
	MemberID() string
	SubmitLocalEdit(p Patch) error
	// OnRemoteEdit registers fn for patches authored by other members. fn is
	// called from the provider's delivery goroutine, one patch at a time.
	OnRemoteEdit(fn func(Patch)) (unsubscribe func())
	// OnReady calls fn once the initial synchronization has finished, or
	// right away if it already has.
	OnReady(fn func(Snapshot))
	ConnectionState() ConnectionState
	Snapshot() Snapshot
	Leave() error
}
