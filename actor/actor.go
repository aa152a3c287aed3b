// Package actor implements a named-actor runtime: actors keyed by
// (name, prop id), each with its own unbounded mailbox and dedicated
// worker goroutine, supervised with a restart-on-failure policy.
package actor

import "errors"

// Actor is the interface user code implements. Receive is invoked
// sequentially for every message delivered to this actor's mailbox.
//
// Receive's return value expresses a partial function over message types:
// return nil when the message was handled, return ErrUnhandled when this
// actor has no case for the message (the message becomes a dead letter,
// the actor keeps running), or return/panic with any other error when
// something went wrong (the actor is considered crashed: its worker
// restarts a fresh instance on the same mailbox, per the OnMsgTermination
// rule).
type Actor interface {
	Receive(ctx Context) error
}

// ErrUnhandled is returned by Receive to decline a message without
// crashing the actor. The message is recorded as a dead letter.
var ErrUnhandled = errors.New("actor: message not handled")
