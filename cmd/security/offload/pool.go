package offload

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many offloaded closures run at once.
// It is safe for concurrent use and must be created with NewPool.
type Pool struct {
	size int64
	sem  *semaphore.Weighted

	inFlight prometheus.Gauge
	queued   prometheus.Gauge
	duration prometheus.Histogram
	panics   prometheus.Counter
}

// NewPool creates a pool with size slots. size <= 0 means runtime.NumCPU().
// Collectors are registered on reg when it is non-nil.
func NewPool(size int, reg prometheus.Registerer) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "herald",
			Subsystem: "offload",
			Name:      "in_flight",
			Help:      "Offloaded tasks currently running.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "herald",
			Subsystem: "offload",
			Name:      "queued",
			Help:      "Callers waiting for a free offload slot.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "herald",
			Subsystem: "offload",
			Name:      "task_duration_seconds",
			Help:      "Wall time of offloaded tasks.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "offload",
			Name:      "panics_total",
			Help:      "Offloaded tasks that panicked.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{p.inFlight, p.queued, p.duration, p.panics} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("offload: register metrics: %w", err)
			}
		}
	}

	return p, nil
}

// Size is the number of slots.
func (p *Pool) Size() int { return int(p.size) }

type result[T any] struct {
	val T
	err error
}

// Run executes fn on a pool slot and returns its result.
//
// It blocks until a slot is free, fn returns, or ctx is done, whichever comes
// first. Errors from fn are returned unchanged.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if p == nil {
		return zero, ErrNilPool
	}
	if fn == nil {
		return zero, ErrNilTask
	}

	p.queued.Inc()
	err := p.sem.Acquire(ctx, 1)
	p.queued.Dec()
	if err != nil {
		return zero, err
	}
	// Acquire can win the race against a context that just ended.
	if err := ctx.Err(); err != nil {
		p.sem.Release(1)
		return zero, err
	}

	// Buffered so the worker never blocks on a caller that has gone away.
	done := make(chan result[T], 1)
	p.inFlight.Inc()

	go func() {
		start := time.Now()
		defer func() {
			if v := recover(); v != nil {
				p.panics.Inc()
				done <- result[T]{err: &PanicError{Value: v, Stack: debug.Stack()}}
			}
			p.duration.Observe(time.Since(start).Seconds())
			p.inFlight.Dec()
			p.sem.Release(1)
		}()

		v, err := fn()
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
