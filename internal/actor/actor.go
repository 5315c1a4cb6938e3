// Package actor provides a minimal mailbox-actor runtime: one goroutine per actor,
// a bounded inbox, a uniform StopActor control message, and request/reply via
// one-shot callback channels embedded in typed messages. It replaces any notion
// of a shared base-class hierarchy with plain composition: every actor type defines
// its own message enum and a run loop built on top of Mailbox.
package actor

import (
	"context"
	"errors"
)

// DefaultInboxSize is the default bound used when callers don't need a custom one.
const DefaultInboxSize = 100

// ErrMessaging is returned by Handle.Send/Request when the actor's inbox is closed
// or its goroutine has already exited; callers treat it as the actor having shut down.
var ErrMessaging = errors.New("actor: messaging error: receiver closed")

// StopActor is the uniform control message interleaved with every actor's typed
// messages. An actor's run loop must treat it as "return now, drop remaining work."
type StopActor struct {
	// Done, if non-nil, is closed once the actor's state has been torn down.
	Done chan struct{}
}

// Mailbox is the bounded inbox shared by every actor implementation. T is the
// actor's message type, normally an interface implemented by its typed messages
// plus StopActor.
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox creates a mailbox with the given bound (DefaultInboxSize if size <= 0).
func NewMailbox[T any](size int) *Mailbox[T] {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Mailbox[T]{ch: make(chan T, size)}
}

// Handle is a cheaply cloneable sender onto an actor's mailbox. The zero value is
// not usable; obtain one from Mailbox.Handle. Handles are never mutated after
// construction, so they may be freely shared across goroutines and stored by
// downstream collaborators (per the "handle-back-reference" convention: an actor
// may hand its own Handle to the things it spawns or registers with).
type Handle[T any] struct {
	send chan<- T
}

// Handle returns a sender view of the mailbox.
func (m *Mailbox[T]) Handle() Handle[T] { return Handle[T]{send: m.ch} }

// Recv exposes the receive side for the actor's own run loop.
func (m *Mailbox[T]) Recv() <-chan T { return m.ch }

// Close closes the inbox; the owning actor must call this exactly once, from its
// own run loop, after it has stopped reading. Dropping every Handle does not by
// itself close the channel (Go has no refcounted channels) — an actor signals
// shutdown by returning from handleMessage(false), at which point its run loop
// closes the mailbox.
func (m *Mailbox[T]) Close() { close(m.ch) }

// Send enqueues msg, blocking if the inbox is full, until ctx is done or the
// mailbox is known closed. Returns ErrMessaging if the send cannot complete
// because the receiver is gone (detected via ctx cancellation by the caller,
// since a plain channel send blocks forever on a closed receiver end rather
// than erroring — callers that need liveness should pair Send with a context
// that they cancel on actor-death notification).
func (h Handle[T]) Send(ctx context.Context, msg T) error {
	select {
	case h.send <- msg:
		return nil
	case <-ctx.Done():
		return ErrMessaging
	}
}

// TrySend enqueues msg without blocking; returns false if the inbox is full.
func (h Handle[T]) TrySend(msg T) bool {
	select {
	case h.send <- msg:
		return true
	default:
		return false
	}
}

// Request sends msg and awaits a single reply on reply, a one-shot channel the
// caller owns and embeds in msg. It surfaces messaging failures uniformly.
func Request[T any, R any](ctx context.Context, h Handle[T], msg T, reply <-chan R) (R, error) {
	var zero R
	if err := h.Send(ctx, msg); err != nil {
		return zero, err
	}
	select {
	case r, ok := <-reply:
		if !ok {
			return zero, ErrMessaging
		}
		return r, nil
	case <-ctx.Done():
		return zero, ErrMessaging
	}
}

// Run drives an actor's message loop: it reads from mailbox until handle returns
// false (i.e. StopActor was processed) or the mailbox channel closes, then closes
// the mailbox itself and returns. A panic in handle also ends the loop: it is
// recovered here, so it stops only this actor. handle is the actor's own handleMessage function;
// it must never block on anything but the suspension points the spec allows
// (further mailbox/callback operations, timers, socket I/O).
func Run[T any](mailbox *Mailbox[T], handle func(T) bool) {
	defer mailbox.Close()
	// A panic in handle ends only this actor; it is not propagated further.
	defer func() { _ = recover() }()
	for msg := range mailbox.Recv() {
		if !handle(msg) {
			return
		}
	}
}
