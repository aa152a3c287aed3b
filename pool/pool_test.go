package pool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguibr/keanu/pool"
)

type resource struct {
	id int
}

func TestPool_ConcurrencyCap(t *testing.T) {
	var created int32
	p := pool.New(3, func() (*resource, error) {
		id := int(atomic.AddInt32(&created, 1))
		return &resource{id: id}, nil
	})
	defer p.Shutdown()

	var counter int32
	var peak int32
	var peakMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Use(p, func(r *resource) (struct{}, error) {
				n := atomic.AddInt32(&counter, 1)
				peakMu.Lock()
				if n > peak {
					peak = n
				}
				peakMu.Unlock()
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&counter, -1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(3))
	assert.Equal(t, int32(0), atomic.LoadInt32(&counter))

	p.Shutdown()
	assert.True(t, p.IsShutdown())
}

func TestPool_InvalidResourceIsReleasedNotReused(t *testing.T) {
	var created, released int32
	p := pool.New(1, func() (*resource, error) {
		atomic.AddInt32(&created, 1)
		return &resource{}, nil
	},
		pool.WithTest[*resource](func(*resource) bool { return false }),
		pool.WithRelease[*resource](func(*resource) { atomic.AddInt32(&released, 1) }),
	)
	defer p.Shutdown()

	for i := 0; i < 3; i++ {
		_, err := pool.Use(p, func(r *resource) (int, error) { return 0, nil })
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&created))
	assert.Equal(t, int32(3), atomic.LoadInt32(&released))
}

func TestPool_UseAfterShutdownFails(t *testing.T) {
	p := pool.New(1, func() (*resource, error) { return &resource{}, nil })
	p.Shutdown()
	p.Shutdown() // idempotent

	_, err := pool.Use(p, func(r *resource) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, pool.ErrPoolShuttingDown)
}

func TestPool_ErrorFromFnPropagatesAfterReturn(t *testing.T) {
	p := pool.New(1, func() (*resource, error) { return &resource{}, nil })
	defer p.Shutdown()

	boom := assert.AnError
	_, err := pool.Use(p, func(r *resource) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	// The resource must have been returned: a second Use should not block.
	done := make(chan struct{})
	go func() {
		_, _ = pool.Use(p, func(r *resource) (int, error) { return 0, nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Use blocked; resource was not returned after fn error")
	}
}

func TestPool_PanicFromFnStillReturnsResource(t *testing.T) {
	p := pool.New(1, func() (*resource, error) { return &resource{}, nil })
	defer p.Shutdown()

	assert.Panics(t, func() {
		_, _ = pool.Use(p, func(r *resource) (int, error) {
			panic("boom")
		})
	})

	// The permit and resource must have been returned despite the panic: a
	// second Use should not block.
	done := make(chan struct{})
	go func() {
		_, _ = pool.Use(p, func(r *resource) (int, error) { return 0, nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Use blocked; resource was not returned after fn panicked")
	}
}

func TestPool_FillThenDrain(t *testing.T) {
	var created, released int32
	p := pool.New(2, func() (*resource, error) {
		atomic.AddInt32(&created, 1)
		return &resource{}, nil
	}, pool.WithRelease[*resource](func(*resource) { atomic.AddInt32(&released, 1) }))

	require.NoError(t, p.FillPool())
	assert.Equal(t, int32(2), atomic.LoadInt32(&created))

	p.DrainPool()
	assert.Equal(t, int32(2), atomic.LoadInt32(&released))
}
