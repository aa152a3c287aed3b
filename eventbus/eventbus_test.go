package eventbus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguibr/keanu/eventbus"
)

type recorder struct {
	mu      sync.Mutex
	payloads []int
}

func (r *recorder) OnMsg(msg eventbus.EventBusMessage[int]) {
	r.mu.Lock()
	r.payloads = append(r.payloads, msg.Payload)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.payloads))
	copy(out, r.payloads)
	return out
}

func TestEventBus_FilterOrdering(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	defer bus.Shutdown()

	r := &recorder{}
	bus.Subscribe(r, func(msg eventbus.EventBusMessage[int]) bool {
		return msg.Topic == "a"
	})

	bus.PublishTopic("a", 1)
	bus.PublishTopic("b", 2)
	bus.PublishTopic("a", 3)

	require.Eventually(t, func() bool {
		return len(r.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{1, 3}, r.snapshot())
}

func TestEventBus_NoFilterReceivesEverything(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	defer bus.Shutdown()

	r := &recorder{}
	bus.Subscribe(r)

	bus.PublishNoTopic(1)
	bus.PublishTopic("x", 2)

	require.Eventually(t, func() bool {
		return len(r.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestEventBus_PublishResilience(t *testing.T) {
	var mu sync.Mutex
	var errCount int
	bus := eventbus.NewEventBus[int](eventbus.WithPublishErrorHandler(
		func(err error, msg eventbus.EventBusMessage[int], id uuid.UUID) {
			mu.Lock()
			errCount++
			mu.Unlock()
		},
	))
	defer bus.Shutdown()

	good := &recorder{}
	bus.Subscribe(good)
	bus.Subscribe(good, func(eventbus.EventBusMessage[int]) bool {
		panic("filter boom")
	})

	bus.PublishNoTopic(42)

	require.Eventually(t, func() bool {
		return len(good.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errCount == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEventBus_UnsubscribeByIDStopsDelivery(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	defer bus.Shutdown()

	r := &recorder{}
	id := bus.Subscribe(r)

	bus.PublishNoTopic(1)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	bus.UnsubscribeIDs(id)
	bus.PublishNoTopic(2)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []int{1}, r.snapshot())
}

func TestEventBus_UnsubscribeBySubscriberStopsDelivery(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	defer bus.Shutdown()

	r := &recorder{}
	bus.Subscribe(r)

	bus.Unsubscribe(r)
	bus.PublishNoTopic(1)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, r.snapshot())
}

func TestEventBus_ShutdownIsIdempotentAndStopsDelivery(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	r := &recorder{}
	bus.Subscribe(r)

	bus.Shutdown()
	bus.Shutdown()
	assert.True(t, bus.IsShutdown())

	bus.PublishNoTopic(1)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.snapshot())
}

func TestEventBus_PanickingHandlerDoesNotStopWorker(t *testing.T) {
	bus := eventbus.NewEventBus[int]()
	defer bus.Shutdown()

	var mu sync.Mutex
	var seen []int
	bus.Subscribe(eventbus.SubscriberFunc[int](func(msg eventbus.EventBusMessage[int]) {
		if msg.Payload == 0 {
			panic("boom")
		}
		mu.Lock()
		seen = append(seen, msg.Payload)
		mu.Unlock()
	}))

	bus.PublishNoTopic(0)
	bus.PublishNoTopic(1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)
}
