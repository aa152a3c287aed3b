package actor

// poisonPill is an unexported type so that PoisonPill cannot be
// constructed or type-asserted to by any package outside actor: the raw
// sentinel type is never exposed as an ordinary message.
type poisonPill struct{}

// PoisonPill is the sentinel message that causes the receiving actor's
// worker to terminate after processing it, with PoisonPillTermination as
// the lifecycle event. It is never delivered to Actor.Receive.
var PoisonPill = poisonPill{}
