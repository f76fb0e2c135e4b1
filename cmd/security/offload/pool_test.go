package offload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool(size, prometheus.NewRegistry())
	require.NoError(t, err)
	return p
}

func TestRun_ReturnsValueAndError(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	v, err := Run(context.Background(), p, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Run(context.Background(), p, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestRun_NilArguments(t *testing.T) {
	t.Parallel()

	_, err := Run[int](context.Background(), nil, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrNilPool)

	_, err = Run[int](context.Background(), newTestPool(t, 1), nil)
	assert.ErrorIs(t, err, ErrNilTask)
}

func TestNewPool_DefaultSize(t *testing.T) {
	t.Parallel()
	p, err := NewPool(0, nil)
	require.NoError(t, err)
	assert.Positive(t, p.Size())
}

func TestNewPool_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewPool(1, reg)
	require.NoError(t, err)
	_, err = NewPool(1, reg)
	assert.Error(t, err)
}

func TestRun_QueuesWhenExhausted(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), p, func() (struct{}, error) {
			close(started)
			<-release
			return struct{}{}, nil
		})
		firstDone <- err
	}()
	<-started

	secondDone := make(chan int, 1)
	go func() {
		v, _ := Run(context.Background(), p, func() (int, error) { return 7, nil })
		secondDone <- v
	}()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(p.queued) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.inFlight))

	select {
	case <-secondDone:
		t.Fatal("second task ran while the only slot was busy")
	default:
	}

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 7, <-secondDone)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(p.inFlight) == 0 && testutil.ToFloat64(p.queued) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	t.Parallel()
	const size = 3
	p := newTestPool(t, size)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(context.Background(), p, func() (struct{}, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(size))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(p.inFlight) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRun_CancelWhileQueuedNeverStarts(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Run(context.Background(), p, func() (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		_, err := Run(ctx, p, func() (int, error) {
			ran.Store(true)
			return 1, nil
		})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(p.queued) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.False(t, ran.Load())
	assert.Equal(t, float64(0), testutil.ToFloat64(p.queued))
}

func TestRun_AlreadyCanceledNeverStarts(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	_, err := Run(ctx, p, func() (int, error) {
		ran.Store(true)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestRun_CancelWhileRunningDiscardsResult(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	errCh := make(chan error, 1)
	go func() {
		_, err := Run(ctx, p, func() (int, error) {
			close(started)
			<-release
			finished.Store(true)
			return 1, nil
		})
		errCh <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// The task keeps its slot until it returns.
	assert.Equal(t, float64(1), testutil.ToFloat64(p.inFlight))
	close(release)

	// Once released the slot is usable again.
	v, err := Run(context.Background(), p, func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, finished.Load())
}

func TestRun_RecoversPanic(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	_, err := Run(context.Background(), p, func() (int, error) {
		panic("kaboom")
	})
	require.ErrorIs(t, err, ErrTaskPanicked)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, float64(1), testutil.ToFloat64(p.panics))

	// The slot was released.
	v, err := Run(context.Background(), p, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)
	cause := errors.New("cause")

	_, err := Run(context.Background(), p, func() (int, error) {
		panic(cause)
	})
	assert.ErrorIs(t, err, ErrTaskPanicked)
	assert.ErrorIs(t, err, cause)
}
