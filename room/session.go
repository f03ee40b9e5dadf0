package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Session is a joined room. It owns the client connection and the document
// and releases both on Close.
type Session struct {
	roomID string
	client Client
	doc    Document

	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Bootstrap connects to provider with key and joins roomID. It returns as soon
// as the room is joined; Ready reports when the initial sync is done. There is
// no retry: any failure is returned as is.
func Bootstrap(ctx context.Context, provider Provider, key, roomID string) (*Session, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	client, err := provider.Connect(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	doc, err := client.JoinRoom(ctx, roomID)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("join room %q: %w", roomID, err), client.Close())
	}

	s := &Session{
		roomID: roomID,
		client: client,
		doc:    doc,
		ready:  make(chan struct{}),
	}
	doc.OnReady(func(Snapshot) {
		s.readyOnce.Do(func() { close(s.ready) })
	})
	return s, nil
}

// RoomID is the id the session joined.
func (s *Session) RoomID() string { return s.roomID }

// Document is the shared document. Its content is only meaningful once
// Ready is closed.
func (s *Session) Document() Document { return s.doc }

// Ready is closed once the shared document finished its initial sync.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Wait blocks until the session is ready or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the room and closes the client. Later calls return the first
// call's result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.doc.Leave(), s.client.Close())
	})
	return s.closeErr
}
