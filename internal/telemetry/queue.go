package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the number of reports a Queue buffers before dropping.
const DefaultQueueSize = 64

// ErrQueueFull is returned when a report is dropped because the buffer is full.
var ErrQueueFull = errors.New("telemetry queue full")

// Queue delivers reports to a Sink from a single background goroutine.
// Report never blocks; reports that do not fit in the buffer are dropped.
type Queue struct {
	sink    Sink
	reports chan ErrorReport
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewQueue starts a queue in front of sink. size <= 0 means DefaultQueueSize.
func NewQueue(sink Sink, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{
		sink:    sink,
		reports: make(chan ErrorReport, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Report implements Sink. It only enqueues; ctx is not used for delivery.
func (q *Queue) Report(_ context.Context, report ErrorReport) error {
	select {
	case <-q.stop:
		q.dropped.Add(1)
		return ErrQueueFull
	default:
	}
	select {
	case q.reports <- report:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns the number of reports discarded so far.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting reports and delivers what is buffered, giving up
// when ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.once.Do(func() { close(q.stop) })
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case r := <-q.reports:
			q.deliver(r)
		case <-q.stop:
			for {
				select {
				case r := <-q.reports:
					q.deliver(r)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(r ErrorReport) {
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()
	// Best effort; a failing collector must not affect the caller.
	_ = q.sink.Report(ctx, r)
}
