// Package eventbus implements a topic-tagged, filtered publish/subscribe
// hub with a dedicated mailbox and worker per subscriber. It shares the
// mailbox-plus-worker pattern with package actor, and delivery is a
// snapshot-under-lock, fire-and-forget fan-out over a generic payload
// type T.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lguibr/keanu/internal/queue"
)

// EventBusMessage is the envelope carried through the bus.
type EventBusMessage[T any] struct {
	Topic   string
	Payload T
}

// Subscriber is user code that reacts to bus messages. OnMsg is invoked
// once per delivered message, on that subscriber's own worker goroutine,
// with panics recovered and swallowed (a bad handler cannot kill the
// worker or the bus).
type Subscriber[T any] interface {
	OnMsg(msg EventBusMessage[T])
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc[T any] func(msg EventBusMessage[T])

func (f SubscriberFunc[T]) OnMsg(msg EventBusMessage[T]) { f(msg) }

// Filter decides whether msg should reach a subscription. The zero filter
// (nil) is treated as "always true".
type Filter[T any] func(msg EventBusMessage[T]) bool

// ErrorHandler is invoked synchronously, on the publisher's goroutine,
// when a filter panics or a mailbox insertion fails. It must not block.
type ErrorHandler[T any] func(err error, msg EventBusMessage[T], id uuid.UUID)

type subscription[T any] struct {
	id      uuid.UUID
	sub     Subscriber[T]
	filter  Filter[T]
	mailbox *queue.Queue
}

// EventBus is a generic, topic-tagged publish/subscribe hub. The zero
// value is not usable; construct with NewEventBus.
type EventBus[T any] struct {
	mu             sync.RWMutex
	subscriptions  map[uuid.UUID]*subscription[T]
	onPublishError ErrorHandler[T]
	shutdown       bool
}

// BusOption configures an EventBus constructed by NewEventBus.
type BusOption[T any] func(*EventBus[T])

// WithPublishErrorHandler overrides the default no-op onPublishError.
func WithPublishErrorHandler[T any](h ErrorHandler[T]) BusOption[T] {
	return func(b *EventBus[T]) { b.onPublishError = h }
}

// NewEventBus constructs an empty, running EventBus.
func NewEventBus[T any](opts ...BusOption[T]) *EventBus[T] {
	b := &EventBus[T]{
		subscriptions:  make(map[uuid.UUID]*subscription[T]),
		onPublishError: func(error, EventBusMessage[T], uuid.UUID) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers sub, optionally narrowed by filters (all of which
// must pass for a message to be delivered; no filters means "always
// true"), and starts its dedicated worker. Returns the subscription id
// used by Unsubscribe/UnsubscribeIDs.
func (b *EventBus[T]) Subscribe(sub Subscriber[T], filters ...Filter[T]) uuid.UUID {
	id := uuid.New()
	s := &subscription[T]{
		id:      id,
		sub:     sub,
		filter:  combineFilters(filters),
		mailbox: queue.New(),
	}

	b.mu.Lock()
	b.subscriptions[id] = s
	b.mu.Unlock()

	go runSubscriber(s)
	return id
}

func combineFilters[T any](filters []Filter[T]) Filter[T] {
	if len(filters) == 0 {
		return func(EventBusMessage[T]) bool { return true }
	}
	return func(msg EventBusMessage[T]) bool {
		for _, f := range filters {
			if f != nil && !f(msg) {
				return false
			}
		}
		return true
	}
}

// PublishTopic builds an EventBusMessage with topic and publishes it.
func (b *EventBus[T]) PublishTopic(topic string, payload T) {
	b.Publish(EventBusMessage[T]{Topic: topic, Payload: payload})
}

// PublishNoTopic publishes payload with the empty-string topic.
func (b *EventBus[T]) PublishNoTopic(payload T) {
	b.Publish(EventBusMessage[T]{Payload: payload})
}

// Publish delivers msg to every matching subscriber's mailbox. It never
// fails: a panicking filter or a failed mailbox insertion is routed to
// onPublishError and iteration continues with the next subscription.
func (b *EventBus[T]) Publish(msg EventBusMessage[T]) {
	b.mu.RLock()
	snapshot := make([]*subscription[T], 0, len(b.subscriptions))
	for _, s := range b.subscriptions {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		b.deliverOne(s, msg)
	}
}

func (b *EventBus[T]) deliverOne(s *subscription[T], msg EventBusMessage[T]) {
	matches, err := safeFilter(s.filter, msg)
	if err != nil {
		b.onPublishError(err, msg, s.id)
		return
	}
	if !matches {
		return
	}
	if err := safePush(s.mailbox, msg); err != nil {
		b.onPublishError(err, msg, s.id)
	}
}

func safeFilter[T any](f Filter[T], msg EventBusMessage[T]) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &filterPanicError{cause: r}
		}
	}()
	return f(msg), nil
}

func safePush(q *queue.Queue, msg any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &filterPanicError{cause: r}
		}
	}()
	q.Push(msg)
	return nil
}

// Unsubscribe removes one subscription registered for sub and shuts down
// its worker; if sub is subscribed more than once, which subscription is
// removed is not defined. A no-op if sub was never subscribed (or already
// removed).
func (b *EventBus[T]) Unsubscribe(sub Subscriber[T]) {
	b.mu.Lock()
	var found *subscription[T]
	for id, s := range b.subscriptions {
		if s.sub == nil {
			continue
		}
		if sameSubscriber(s.sub, sub) {
			found = s
			delete(b.subscriptions, id)
			break
		}
	}
	b.mu.Unlock()

	if found != nil {
		found.mailbox.Close()
	}
}

// sameSubscriber compares two Subscriber values for identity. Interface
// equality panics if the dynamic type isn't comparable (e.g. a
// SubscriberFunc closure); such subscribers simply never match by value
// and must be removed via the id returned from Subscribe instead.
func sameSubscriber[T any](a, b Subscriber[T]) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

// UnsubscribeIDs removes each listed subscription and shuts down its
// worker. Unknown ids are ignored.
func (b *EventBus[T]) UnsubscribeIDs(ids ...uuid.UUID) {
	b.mu.Lock()
	removed := make([]*subscription[T], 0, len(ids))
	for _, id := range ids {
		if s, ok := b.subscriptions[id]; ok {
			removed = append(removed, s)
			delete(b.subscriptions, id)
		}
	}
	b.mu.Unlock()

	for _, s := range removed {
		s.mailbox.Close()
	}
}

// Shutdown stops every subscriber's worker and clears the registry. It is
// idempotent.
func (b *EventBus[T]) Shutdown() {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return
	}
	b.shutdown = true
	all := make([]*subscription[T], 0, len(b.subscriptions))
	for _, s := range b.subscriptions {
		all = append(all, s)
	}
	b.subscriptions = make(map[uuid.UUID]*subscription[T])
	b.mu.Unlock()

	for _, s := range all {
		s.mailbox.Close()
	}
}

// IsShutdown reports whether Shutdown has been called.
func (b *EventBus[T]) IsShutdown() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shutdown
}

func runSubscriber[T any](s *subscription[T]) {
	for {
		msg, ok := s.mailbox.Pop()
		if !ok {
			return
		}
		invokeOnMsg(s.sub, msg.(EventBusMessage[T]))
	}
}

func invokeOnMsg[T any](sub Subscriber[T], msg EventBusMessage[T]) {
	defer func() {
		_ = recover()
	}()
	sub.OnMsg(msg)
}

type filterPanicError struct {
	cause any
}

func (e *filterPanicError) Error() string {
	return fmt.Sprintf("eventbus: panic: %v", e.cause)
}
