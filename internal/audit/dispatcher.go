package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher decouples engine operations from sink latency. Events are
// queued on a buffered channel and delivered by a single goroutine, so
// a slow sink never stalls an authentication path unless the caller
// opted into blocking emission.
//
// Dropped counts every event that was offered for emission but never
// reached the sink: buffer overflow in drop mode, context cancellation
// in blocking mode, and emission after Close.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	stop       chan struct{}
	delivering sync.WaitGroup

	dropIfFull bool
	dropped    atomic.Uint64
	stopped    atomic.Bool
	stopOnce   sync.Once
}

// NewDispatcher returns nil when auditing is disabled; all Dispatcher
// methods tolerate a nil receiver so callers emit unconditionally.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, buffer),
		stop:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.delivering.Add(1)
	go d.deliver()

	return d
}

func (d *Dispatcher) deliver() {
	defer d.delivering.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes events that were queued before shutdown. Emit rejects
// new events once stopped is set, so the queue only shrinks here.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues an event for delivery. In drop mode a full buffer loses
// the event and bumps Dropped; otherwise Emit blocks until the event is
// queued, the context is canceled, or the dispatcher shuts down.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if d.stopped.Load() {
		d.dropped.Add(1)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, flushes the queue to the sink, and
// waits for the delivery goroutine to exit. Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		d.delivering.Wait()
	})
}

// Dropped reports how many events were lost rather than delivered.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
