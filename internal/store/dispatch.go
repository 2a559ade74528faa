package store

import (
	"context"
	"sync"
)

// job runs on the dispatcher goroutine.
type job func(ctx context.Context)

// dispatcher runs jobs one at a time in submission order, off the caller's
// goroutine. submit never blocks, so a stalled job delays later jobs but
// never the goroutine that queued them. Callers wait only via flush or close.
type dispatcher struct {
	mu     sync.Mutex
	queue  []job
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	ctx := context.Background()
	for {
		j, ok := d.next()
		if !ok {
			return
		}
		j(ctx)
	}
}

// next waits for a job. It reports false once the dispatcher is closed and
// the queue is drained.
func (d *dispatcher) next() (job, bool) {
	for {
		d.mu.Lock()
		if len(d.queue) > 0 {
			j := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()
			return j, true
		}
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return nil, false
		}
		<-d.wake
	}
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// submit queues j. It reports false once the dispatcher is closed.
func (d *dispatcher) submit(j job) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, j)
	d.mu.Unlock()
	d.signal()
	return true
}

// flush blocks until every job submitted before the call has run.
func (d *dispatcher) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !d.submit(func(context.Context) { close(barrier) }) {
		return d.wait(ctx)
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for the queue to drain.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
	return d.wait(ctx)
}

func (d *dispatcher) wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
