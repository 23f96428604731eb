package sshtunnel

import (
	"context"
)

// job is one unit of work submitted to a Runtime.
type job struct {
	run  func()
}

// Runtime is a dedicated, fixed-size worker pool SSH work runs on, so
// host-key verification or channel-open latency never blocks the
// application's main goroutines (spec §4.5, §5: "SSH work runs on a
// dedicated executor (2 worker threads)").
type Runtime struct {
	jobs chan job
	done chan struct{}
}

// DefaultWorkers matches spec §4.5's "2 worker threads".
const DefaultWorkers = 2

// NewRuntime starts workers goroutines draining a shared job queue. Call
// Stop to shut it down.
func NewRuntime(workers int) *Runtime {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	r := &Runtime{jobs: make(chan job), done: make(chan struct{})}
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

func (r *Runtime) worker() {
	for {
		select {
		case j := <-r.jobs:
			j.run()
		case <-r.done:
			return
		}
	}
}

// Stop signals every worker goroutine to exit. It does not wait for
// in-flight jobs to finish.
func (r *Runtime) Stop() {
	close(r.done)
}

// RunOn schedules fn on the runtime and blocks the caller until it
// completes or ctx is cancelled. This is the run_on_ssh_runtime adaptor of
// spec §4.5: callers await it, scheduling-unaware.
func RunOn[T any](ctx context.Context, r *Runtime, fn func(context.Context) (T, error)) (T, error) {
	resultCh := make(chan struct {
		val T
		err error
	}, 1)

	select {
	case r.jobs <- job{run: func() {
		v, err := fn(ctx)
		resultCh <- struct {
			val T
			err error
		}{v, err}
	}}:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
