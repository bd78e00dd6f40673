package audit

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// Now stamps events that arrive without a Timestamp. Defaults to
	// time.Now.
	Now func() time.Time
}

// TypeCount is the number of events of one type accepted for delivery.
type TypeCount struct {
	EventType string
	Count     uint64
}

// Dispatcher relays events to a sink on its own goroutine so the session
// operation that produced them never waits on the sink.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	// lost counts events that never reached the sink: the buffer was
	// full or the sink panicked.
	lost      atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu       sync.Mutex
	accepted map[string]uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
// A nil *Dispatcher accepts and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		ch:       make(chan Event, cfg.BufferSize),
		done:     make(chan struct{}),
		accepted: make(map[string]uint64),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for len(d.ch) > 0 {
				d.deliver(<-d.ch)
			}
			return
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event
// but keeps the worker alive.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.lost.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. EventID and Timestamp are filled in when missing.
// With DropIfFull a full buffer loses the event; otherwise Emit waits for
// room, ctx or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.cfg.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
			d.count(event.EventType)
		case <-d.done:
		default:
			d.lost.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
		d.count(event.EventType)
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *Dispatcher) count(eventType string) {
	d.mu.Lock()
	d.accepted[eventType]++
	d.mu.Unlock()
}

// Close stops accepting events and delivers everything already queued
// before returning.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.lost.Load()
}

// Counts returns accepted events per type, sorted by type.
func (d *Dispatcher) Counts() []TypeCount {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TypeCount, 0, len(d.accepted))
	for t, n := range d.accepted {
		out = append(out, TypeCount{EventType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out
}
