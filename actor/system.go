package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lguibr/keanu/internal/log"
	"github.com/lguibr/keanu/internal/queue"
)

const defaultDeadLetterCapacity = 10_000

// interruptSignal and cancelSignal are internal control sentinels,
// delivered through the same mailbox as ordinary messages so that
// Stop/Cancel observe the same strict-FIFO ordering as everything else.
// Like PoisonPill they are never passed to Actor.Receive.
type interruptSignal struct{}
type cancelSignal struct{}

// System owns the prop registry and, for every live actor, its mailbox and
// worker goroutine. It is the Go analogue of bollywood's Engine,
// generalized from PID-addressed spawned actors to name+propID-addressed
// virtual actors created on first Tell.
type System struct {
	propsMu sync.RWMutex
	props   map[string]*props

	actorsMu sync.Mutex
	actors   map[string]*actorEntry

	deadLetters *deadLetterQueue

	shuttingDown  atomic.Bool
	shutdownCtx   context.Context
	cancelShutdow context.CancelFunc

	onLifecycle func(LifecycleEvent)
}

type actorEntry struct {
	mailbox *queue.Queue
	done    chan struct{}
}

// SystemOption configures a System constructed by NewSystem.
type SystemOption func(*System)

// WithDeadLetterCapacity overrides the default bounded dead-letter queue
// size (10000).
func WithDeadLetterCapacity(capacity int) SystemOption {
	return func(s *System) { s.deadLetters = newDeadLetterQueue(capacity) }
}

// WithLifecycleObserver registers a callback invoked with every
// LifecycleEvent as actors terminate. It exists for tests and diagnostics;
// library code never relies on it. The callback must not block or call
// back into the System synchronously — it runs on the terminating actor's
// own worker goroutine.
func WithLifecycleObserver(fn func(LifecycleEvent)) SystemOption {
	return func(s *System) { s.onLifecycle = fn }
}

func (sys *System) notifyLifecycle(ref ActorRefID, kind LifecycleKind, cause error) {
	if sys.onLifecycle != nil {
		sys.onLifecycle(LifecycleEvent{Ref: ref, Kind: kind, Cause: cause})
	}
}

// NewSystem constructs an empty, running actor system.
func NewSystem(opts ...SystemOption) *System {
	ctx, cancel := context.WithCancel(context.Background())
	sys := &System{
		props:         make(map[string]*props),
		actors:        make(map[string]*actorEntry),
		deadLetters:   newDeadLetterQueue(defaultDeadLetterCapacity),
		shutdownCtx:   ctx,
		cancelShutdow: cancel,
	}
	for _, opt := range opts {
		opt(sys)
	}
	return sys
}

// Tell builds the ActorRefID for (name, A's prop id) and delivers msg to
// that actor's mailbox, creating the mailbox and spawning its worker on
// first use. name must be non-empty and msg must be non-nil.
func Tell[A Actor](sys *System, name string, msg any) error {
	return tellRefID(sys, ActorRefID{Name: name, PropID: propIDOf[A]()}, msg)
}

func tellRefID(sys *System, ref ActorRefID, msg any) error {
	if ref.Name == "" {
		return fmt.Errorf("%w: Tell: name must not be empty", ErrArgument)
	}
	if msg == nil {
		return fmt.Errorf("%w: Tell: message must not be nil", ErrArgument)
	}

	if sys.shuttingDown.Load() {
		sys.deadLetters.add(DeadLetter{
			Message:   msg,
			Recipient: ref,
			Timestamp: time.Now(),
			Reason:    ReasonDeliveryAfterShutdown,
		})
		return ErrSystemShuttingDown
	}

	sys.propsMu.RLock()
	p, ok := sys.props[ref.PropID]
	sys.propsMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: Tell: no props registered for %s", ErrArgument, ref.PropID)
	}

	key := ref.String()
	sys.actorsMu.Lock()
	entry, exists := sys.actors[key]
	if !exists {
		entry = &actorEntry{mailbox: queue.New(), done: make(chan struct{})}
		sys.actors[key] = entry
	}
	entry.mailbox.Push(msg)
	sys.actorsMu.Unlock()

	if !exists {
		go sys.runActor(ref, p, entry)
	}
	return nil
}

// Stop asks the actor identified by ref to terminate with
// InterruptedTermination. No-op if the actor isn't running.
func (sys *System) Stop(ref ActorRefID) {
	sys.signalIfRunning(ref, interruptSignal{})
}

// Cancel asks the actor identified by ref to terminate with
// CancellationTermination. No-op if the actor isn't running.
func (sys *System) Cancel(ref ActorRefID) {
	sys.signalIfRunning(ref, cancelSignal{})
}

func (sys *System) signalIfRunning(ref ActorRefID, sig any) {
	sys.actorsMu.Lock()
	entry, ok := sys.actors[ref.String()]
	sys.actorsMu.Unlock()
	if ok {
		entry.mailbox.Push(sig)
	}
}

// GetDeadLetters returns up to limit entries, oldest first, without
// removing them. limit must be positive.
func (sys *System) GetDeadLetters(limit int) []DeadLetter {
	if limit <= 0 {
		panic("actor: GetDeadLetters: limit must be positive")
	}
	return sys.deadLetters.get(limit)
}

// IsShutdown reports whether the system has begun (or finished) shutting
// down.
func (sys *System) IsShutdown() bool {
	return sys.shuttingDown.Load()
}

// ShutdownAwait stops every live actor and waits up to timeout for each of
// their workers to actually exit. It is idempotent: a second call while the
// first is still shutting down (or after it finished) simply reports the
// current state without re-running the drain algorithm.
//
// Once shuttingDown is set, tellRefID dead-letters instead of spawning, so
// the snapshot of entries taken here is final: no new actor can appear
// after it's captured.
func (sys *System) ShutdownAwait(timeout time.Duration) bool {
	if !sys.shuttingDown.CompareAndSwap(false, true) {
		return sys.actorCount() == 0
	}
	sys.cancelShutdow()

	entries := sys.snapshotEntries()
	for _, e := range entries {
		e.mailbox.Push(PoisonPill)
	}

	deadline := time.After(timeout)
	for _, e := range entries {
		select {
		case <-e.done:
		case <-deadline:
			return sys.actorCount() == 0
		}
	}
	return true
}

func (sys *System) actorCount() int {
	sys.actorsMu.Lock()
	defer sys.actorsMu.Unlock()
	return len(sys.actors)
}

func (sys *System) snapshotEntries() []*actorEntry {
	sys.actorsMu.Lock()
	defer sys.actorsMu.Unlock()
	entries := make([]*actorEntry, 0, len(sys.actors))
	for _, e := range sys.actors {
		entries = append(entries, e)
	}
	return entries
}

// remove deletes ref's entry from the actor table and releases its
// mailbox/done channel. Called exactly once, by the worker that owns ref,
// for every terminal lifecycle event except OnMsgTermination.
func (sys *System) remove(ref ActorRefID, entry *actorEntry) {
	sys.actorsMu.Lock()
	delete(sys.actors, ref.String())
	sys.actorsMu.Unlock()
	entry.mailbox.Close()
	close(entry.done)
}

// runActor is the per-actor worker loop: instantiate, then process
// messages one at a time until a terminal signal or an unrecoverable
// failure is observed. OnMsgTermination restarts in place (same goroutine,
// same mailbox, fresh actor instance) rather than spawning a new worker.
func (sys *System) runActor(ref ActorRefID, p *props, entry *actorEntry) {
	logger := log.WithComponent("actor")
	tracker := newRestartTracker(p.restart)

	a, err := p.new()
	if err != nil {
		logger.Error().Err(err).Str("actor", ref.String()).Msg("actor initialization failed")
		sys.remove(ref, entry)
		sys.notifyLifecycle(ref, InitializationTermination, &InstantiationError{Cause: err})
		return
	}

	for {
		msg, ok := entry.mailbox.Pop()
		if !ok {
			// Mailbox closed without a terminal signal having been
			// observed by this loop — shouldn't happen under normal
			// operation, but the mailbox must still be retired cleanly.
			logger.Warn().Str("actor", ref.String()).Msg("mailbox closed unexpectedly")
			sys.remove(ref, entry)
			sys.notifyLifecycle(ref, UnexpectedTermination, nil)
			return
		}

		switch msg.(type) {
		case poisonPill:
			sys.remove(ref, entry)
			sys.notifyLifecycle(ref, PoisonPillTermination, nil)
			return
		case interruptSignal:
			sys.remove(ref, entry)
			sys.notifyLifecycle(ref, InterruptedTermination, nil)
			return
		case cancelSignal:
			sys.remove(ref, entry)
			sys.notifyLifecycle(ref, CancellationTermination, nil)
			return
		}

		recvErr := invokeReceive(a, ref, msg, sys.shutdownCtx, sys)

		switch {
		case recvErr == nil:
			continue
		case errors.Is(recvErr, ErrUnhandled):
			sys.deadLetters.add(DeadLetter{
				Message:   msg,
				Recipient: ref,
				Timestamp: time.Now(),
				Reason:    ReasonUnhandledMessage,
			})
			continue
		default:
			logger.Error().Err(recvErr).Str("actor", ref.String()).Msg("actor crashed, restarting")
			if !tracker.allow(time.Now()) {
				logger.Error().Str("actor", ref.String()).Msg("restart budget exceeded, terminating actor")
				sys.remove(ref, entry)
				sys.notifyLifecycle(ref, InitializationTermination, recvErr)
				return
			}
			fresh, initErr := p.new()
			if initErr != nil {
				logger.Error().Err(initErr).Str("actor", ref.String()).Msg("actor re-initialization failed")
				sys.remove(ref, entry)
				sys.notifyLifecycle(ref, InitializationTermination, &InstantiationError{Cause: initErr})
				return
			}
			a = fresh
			sys.notifyLifecycle(ref, OnMsgTermination, recvErr)
			continue
		}
	}
}

// invokeReceive calls a.Receive, converting a panic into the same kind of
// error an OnMsgTermination-triggering return would produce.
func invokeReceive(a Actor, ref ActorRefID, msg any, ctx context.Context, sys *System) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return a.Receive(&actorContext{sys: sys, self: ref, message: msg, ctx: ctx})
}
