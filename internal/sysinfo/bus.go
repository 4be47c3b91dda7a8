package sysinfo

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one completed query result, successful or sentinel.
type Event struct {
	Category  Category  `json:"category"`
	Record    Record    `json:"record"`
	Failed    bool      `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives update events on the bus dispatch goroutine. Implementations
// must confine their mutable state to OnUpdate; events always cross a channel
// boundary before reaching a sink.
type Sink interface {
	OnUpdate(ev Event)
}

// Emitter is the producer side of the event hand-off. The loader and poller
// depend only on this; Bus is the standard implementation.
type Emitter interface {
	Publish(ev Event)
}

// Bus is a bounded queue between the collection goroutines and the
// presentation sinks. Publishing never blocks the producer: when the buffer
// is full the oldest event is dropped, since each category is superseded by
// its next emission anyway.
type Bus struct {
	logger *zap.Logger
	ch     chan Event

	mu    sync.Mutex
	sinks []Sink

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewBus creates a bus with the given buffer size.
func NewBus(logger *zap.Logger, buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		logger: logger,
		ch:     make(chan Event, buffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Attach registers a sink. Safe to call before or after Start.
func (b *Bus) Attach(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Start launches the dispatch goroutine.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		go b.dispatch()
	})
}

// Publish enqueues an event, dropping the oldest queued event if the buffer
// is full.
func (b *Bus) Publish(ev Event) {
	for {
		select {
		case b.ch <- ev:
			return
		default:
		}
		select {
		case dropped := <-b.ch:
			b.logger.Warn("Event queue full, dropping oldest",
				zap.String("dropped_category", dropped.Category.String()))
		default:
		}
	}
}

// Stop drains queued events to the sinks and terminates dispatch. Idempotent;
// returns after the dispatch goroutine has exited.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
	<-b.done
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		select {
		case ev := <-b.ch:
			b.deliver(ev)
		case <-b.stop:
			// Flush whatever was queued before the stop request.
			for {
				select {
				case ev := <-b.ch:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.Lock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()

	for _, s := range sinks {
		s.OnUpdate(ev)
	}
}
