package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the queue is full instead of making the
	// login wait for the sink.
	DropIfFull bool
}

// Dispatcher delivers login audit events to a Sink on its own goroutine so a
// slow sink never sits on the login path.
type Dispatcher struct {
	dropIfFull bool
	sink       Sink
	queue      chan Event
	now        func() time.Time

	stop     context.Context
	cancel   context.CancelFunc
	finished chan struct{}
	once     sync.Once

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts delivery. It returns nil when auditing is disabled;
// every method is a no-op on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}

	stop, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		queue:      make(chan Event, size),
		now:        time.Now,
		stop:       stop,
		cancel:     cancel,
		finished:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.finished)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop.Done():
			for len(d.queue) > 0 {
				d.deliver(<-d.queue)
			}
			return
		}
	}
}

// deliver hands ev to the sink. A panicking sink loses the event, not the
// dispatcher.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit stamps event and queues it. With DropIfFull a full queue drops and
// counts the event; otherwise Emit waits for room, for ctx, or for Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stop.Err() != nil {
		return
	}
	event.Stamp(d.now())

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop.Done():
	}
}

// Close stops intake, flushes queued events to the sink and waits for the
// delivery goroutine. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(d.cancel)
	<-d.finished
}

// Dropped counts events lost to a full queue, a cancelled caller or a
// panicking sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
