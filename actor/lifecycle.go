package actor

// LifecycleKind enumerates the ways an actor's worker can terminate.
type LifecycleKind string

const (
	PoisonPillTermination     LifecycleKind = "PoisonPillTermination"
	InterruptedTermination    LifecycleKind = "InterruptedTermination"
	InitializationTermination LifecycleKind = "InitializationTermination"
	CancellationTermination   LifecycleKind = "CancellationTermination"
	OnMsgTermination          LifecycleKind = "OnMsgTermination"
	UnexpectedTermination     LifecycleKind = "UnexpectedTermination"
)

// LifecycleEvent describes how an actor's worker stopped processing a
// given instantiation. Cause is only set for OnMsgTermination and
// InitializationTermination.
type LifecycleEvent struct {
	Ref   ActorRefID
	Kind  LifecycleKind
	Cause error
}

// InstantiationError wraps the panic raised by the actor factory passed to
// RegisterProp.
type InstantiationError struct {
	Cause error
}

func (e *InstantiationError) Error() string {
	return "actor: instantiation failed: " + e.Cause.Error()
}

func (e *InstantiationError) Unwrap() error { return e.Cause }
