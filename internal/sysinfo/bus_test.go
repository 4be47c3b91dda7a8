package sysinfo

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordingSink collects delivered events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnUpdate(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestBusDeliversToAllSinks(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	a := &recordingSink{}
	b := &recordingSink{}
	bus.Attach(a)
	bus.Attach(b)
	bus.Start()

	bus.Publish(Event{Category: CategoryUptime, Record: Uptime{Seconds: 60, Display: "1m"}})
	bus.Publish(Event{Category: CategoryMemory, Record: Memory{TotalGB: 16}})
	bus.Stop()

	for name, s := range map[string]*recordingSink{"a": a, "b": b} {
		events := s.snapshot()
		if len(events) != 2 {
			t.Fatalf("sink %s got %d events, want 2", name, len(events))
		}
		if events[0].Category != CategoryUptime || events[1].Category != CategoryMemory {
			t.Errorf("sink %s got categories %v, %v", name, events[0].Category, events[1].Category)
		}
	}
}

func TestBusStopFlushesQueuedEvents(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	s := &recordingSink{}
	bus.Attach(s)

	// Publish before Start so everything is queued.
	bus.Publish(Event{Category: CategoryDisk, Record: Disk{Volume: "C:"}})
	bus.Start()
	bus.Stop()

	if got := len(s.snapshot()); got != 1 {
		t.Errorf("got %d events after Stop, want 1 (queued event flushed)", got)
	}
}

func TestBusPublishDropsOldestWhenFull(t *testing.T) {
	// Capacity 2 and no dispatcher running: the third publish must evict the
	// oldest rather than block.
	bus := NewBus(zap.NewNop(), 2)
	s := &recordingSink{}
	bus.Attach(s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Publish(Event{Category: CategoryUptime})
		bus.Publish(Event{Category: CategoryMemory})
		bus.Publish(Event{Category: CategoryDisk})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	bus.Start()
	bus.Stop()

	events := s.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Category != CategoryMemory || events[1].Category != CategoryDisk {
		t.Errorf("oldest event not dropped: got %v, %v", events[0].Category, events[1].Category)
	}
}

func TestBusStopIsIdempotent(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	bus.Start()
	bus.Stop()
	bus.Stop()
}
