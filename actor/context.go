package actor

import "context"

// Context is passed to Actor.Receive for every message: the actor's own
// identity, the message itself, and the system's shared shutdown context.
type Context interface {
	// Self returns the identity of the actor processing this message.
	Self() ActorRefID
	// Message returns the message being processed.
	Message() any
	// Ctx returns a context.Context shared by every actor in the system,
	// cancelled once ShutdownAwait begins. A long-running Receive should
	// watch Ctx().Done() and return promptly so the system can drain.
	// It is independent of System.Cancel, which terminates one actor via
	// a mailbox signal rather than this shared context.
	Ctx() context.Context
	// System returns the System this actor is running on, so a handler
	// can Tell other actors (including other kinds, via the package-level
	// generic Tell[A]) without a package-level global.
	System() *System
}

type actorContext struct {
	sys     *System
	self    ActorRefID
	message any
	ctx     context.Context
}

func (c *actorContext) Self() ActorRefID     { return c.self }
func (c *actorContext) Message() any         { return c.message }
func (c *actorContext) Ctx() context.Context { return c.ctx }
func (c *actorContext) System() *System      { return c.sys }
