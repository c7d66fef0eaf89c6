package reactor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedfw/pneumareactor/halsim"
)

func newTestReactor(t *testing.T, opts ...Option) *Reactor {
	t.Helper()
	r, err := New(&halsim.CriticalSection{}, opts...)
	require.NoError(t, err)
	return r
}

func TestRegister_BeforeRunOnly(t *testing.T) {
	r := newTestReactor(t)
	_, err := r.Register(func(Payload) {}, 0, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitForState(t, r, StateRunning, StateSleeping)

	_, err = r.Register(func(Payload) {}, 0, 4)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRegister_CapacityExceeded(t *testing.T) {
	r := newTestReactor(t, WithMaxHandlers(1))
	_, err := r.Register(func(Payload) {}, 0, 4)
	require.NoError(t, err)

	_, err = r.Register(func(Payload) {}, 0, 4)
	assert.ErrorIs(t, err, ErrHandlerCapacityExceeded)
}

func TestDispatch_PriorityOrdering(t *testing.T) {
	r := newTestReactor(t)

	var mu sync.Mutex
	var order []string

	lo, err := r.Register(func(Payload) {
		mu.Lock()
		order = append(order, "lo")
		mu.Unlock()
	}, 0, 4)
	require.NoError(t, err)

	hi, err := r.Register(func(Payload) {
		mu.Lock()
		order = append(order, "hi")
		mu.Unlock()
	}, 10, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Notify(lo, nil))
	require.NoError(t, r.Notify(hi, nil))

	go r.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, "hi", order[0], "higher priority handler must dispatch first")
	assert.Equal(t, "lo", order[1])
}

func TestDispatch_RoundRobinFairness(t *testing.T) {
	r := newTestReactor(t)

	var mu sync.Mutex
	var order []string

	a, err := r.Register(func(Payload) {
		mu.Lock()
		order = append(order, "a")
		mu.Unlock()
	}, 5, 4)
	require.NoError(t, err)

	b, err := r.Register(func(Payload) {
		mu.Lock()
		order = append(order, "b")
		mu.Unlock()
	}, 5, 4)
	require.NoError(t, err)

	// Both at equal priority, both with two pending payloads: round-robin
	// must interleave (a, b, a, b), not drain a's queue before touching b.
	require.NoError(t, r.Notify(a, 1))
	require.NoError(t, r.Notify(b, 1))
	require.NoError(t, r.Notify(a, 2))
	require.NoError(t, r.Notify(b, 2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestNotify_OverflowOverwritesOldest(t *testing.T) {
	r := newTestReactor(t)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{}, 1)

	h, err := r.Register(func(p Payload) {
		mu.Lock()
		got = append(got, p.(int))
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}, 0, 2)
	require.NoError(t, err)

	// Queue capacity 2: push three values before Run ever drains, the
	// oldest (1) must be silently dropped.
	require.NoError(t, r.Notify(h, 1))
	require.NoError(t, r.Notify(h, 2))
	require.NoError(t, r.Notify(h, 3))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 3}, got)
}

func TestNotify_UnknownHandle(t *testing.T) {
	r := newTestReactor(t)
	err := r.Notify(Handle(99), nil)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRun_WatchdogKickedPerDispatch(t *testing.T) {
	wd := &halsim.Watchdog{}
	r := newTestReactor(t, WithWatchdog(wd))

	h, err := r.Register(func(Payload) {}, 0, 4)
	require.NoError(t, err)

	require.NoError(t, r.Notify(h, nil))
	require.NoError(t, r.Notify(h, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool {
		return wd.Kicks() >= 2
	}, time.Second, time.Millisecond)
}

func TestRun_SleepsWhenIdleThenWakesOnNotify(t *testing.T) {
	r := newTestReactor(t)

	fired := make(chan struct{}, 1)
	h, err := r.Register(func(Payload) {
		fired <- struct{}{}
	}, 0, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitForState(t, r, StateSleeping)

	require.NoError(t, r.Notify(h, nil))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("handler never fired after waking from sleep")
	}
}

func TestStop_EndsRun(t *testing.T) {
	r := newTestReactor(t)

	runErr := make(chan error, 1)
	go func() {
		runErr <- r.Run(context.Background())
	}()

	waitForState(t, r, StateRunning, StateSleeping)
	r.Stop()

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, StateStopped, r.state.Load())
}

func TestRun_AlreadyRunning(t *testing.T) {
	r := newTestReactor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitForState(t, r, StateRunning, StateSleeping)
	assert.ErrorIs(t, r.Run(context.Background()), ErrAlreadyRunning)
}

func TestPopHighestPriority_EmptyQueueInvariantPanics(t *testing.T) {
	r := newTestReactor(t)
	h, err := r.Register(func(Payload) {}, 0, 4)
	require.NoError(t, err)

	r.freeze()
	// Force the invariant violation directly: bit set with an empty FIFO.
	r.notified |= uint64(1) << uint(r.handlers[h].bit)

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrEmptyQueueInvariant))
	}()
	r.popHighestPriority()
}

// waitForState blocks until the reactor reaches one of the given states.
func waitForState(t *testing.T, r *Reactor, states ...State) {
	t.Helper()
	require.Eventually(t, func() bool {
		cur := r.state.Load()
		for _, s := range states {
			if cur == s {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}
