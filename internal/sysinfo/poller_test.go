package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordingEmitter captures published events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (e *recordingEmitter) Publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) snapshot() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

// fakeQuerier routes each category to a canned response and counts calls.
type fakeQuerier struct {
	mu      sync.Mutex
	calls   map[Category]int
	respond func(cat Category) (Record, error)
}

func newFakeQuerier(respond func(cat Category) (Record, error)) *fakeQuerier {
	return &fakeQuerier{
		calls:   make(map[Category]int),
		respond: respond,
	}
}

func (q *fakeQuerier) Query(_ context.Context, cat Category) (Record, error) {
	q.mu.Lock()
	q.calls[cat]++
	q.mu.Unlock()
	return q.respond(cat)
}

func (q *fakeQuerier) callCount(cat Category) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[cat]
}

// notInstalledErr mimics an adapter error for a host that cannot answer.
type notInstalledErr struct{}

func (notInstalledErr) Error() string     { return "tool not installed" }
func (notInstalledErr) Unsupported() bool { return true }

func healthyRespond(cat Category) (Record, error) {
	switch cat {
	case CategoryUptime:
		return Uptime{Seconds: 3600, Display: "1h"}, nil
	case CategoryCPUUsage:
		return CPUUsage{Percent: 12.5}, nil
	case CategoryCPUFreq:
		return CPUFreq{CurrentMHz: 3600}, nil
	case CategoryMemory:
		return Memory{TotalGB: 16.0, UsedGB: 8.0, AvailableGB: 8.0, Percent: 50.0}, nil
	case CategoryDisk:
		return Disk{Volume: "C:", TotalGB: 500, UsedGB: 250, FreeGB: 250, UsedPercent: 50.0}, nil
	case CategoryStorage:
		return StorageInventory{TotalGB: 500}, nil
	case CategoryGPU:
		return GPU{Available: true, Name: "RTX 4080", Utilization: 5}, nil
	}
	return nil, fmt.Errorf("unexpected category %s", cat)
}

func TestPollerEmitsEveryVolatileCategoryPerTick(t *testing.T) {
	q := newFakeQuerier(healthyRespond)
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval:      time.Hour, // one tick only
		ErrorInterval: time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= len(VolatileCategories()) })
	p.Stop()

	events := emitter.snapshot()
	if len(events) != len(VolatileCategories()) {
		t.Fatalf("got %d events, want %d", len(events), len(VolatileCategories()))
	}
	for i, cat := range VolatileCategories() {
		if events[i].Category != cat {
			t.Errorf("event %d category = %s, want %s", i, events[i].Category, cat)
		}
		if events[i].Failed {
			t.Errorf("event %d marked failed", i)
		}
	}
}

func TestPollerValuesPassThroughUnchanged(t *testing.T) {
	q := newFakeQuerier(healthyRespond)
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval: time.Hour, ErrorInterval: time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= len(VolatileCategories()) })
	p.Stop()

	for _, ev := range emitter.snapshot() {
		switch rec := ev.Record.(type) {
		case Memory:
			want := Memory{TotalGB: 16.0, UsedGB: 8.0, AvailableGB: 8.0, Percent: 50.0}
			if rec != want {
				t.Errorf("memory record = %+v, want %+v", rec, want)
			}
		case Disk:
			if rec.UsedPercent != 50.0 {
				t.Errorf("disk UsedPercent = %v, want 50.0", rec.UsedPercent)
			}
		}
	}
}

func TestPollerFailureYieldsSentinelWithoutBlockingOthers(t *testing.T) {
	q := newFakeQuerier(func(cat Category) (Record, error) {
		if cat == CategoryMemory {
			return nil, errors.New("query exploded")
		}
		return healthyRespond(cat)
	})
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval: time.Hour, ErrorInterval: time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= len(VolatileCategories()) })
	p.Stop()

	events := emitter.snapshot()
	if len(events) != len(VolatileCategories()) {
		t.Fatalf("got %d events, want %d (failure must not skip categories)", len(events), len(VolatileCategories()))
	}

	for _, ev := range events {
		if ev.Category == CategoryMemory {
			if !ev.Failed {
				t.Error("memory event not marked failed")
			}
			if rec := ev.Record.(Memory); rec != (Memory{}) {
				t.Errorf("memory sentinel = %+v, want zero values", rec)
			}
		} else if ev.Failed {
			t.Errorf("%s marked failed, want success", ev.Category)
		}
	}
}

func TestPollerUnsupportedUsesUnknownSentinel(t *testing.T) {
	q := newFakeQuerier(func(cat Category) (Record, error) {
		if cat == CategoryUptime {
			return nil, notInstalledErr{}
		}
		return healthyRespond(cat)
	})
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval: time.Hour, ErrorInterval: time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= len(VolatileCategories()) })
	p.Stop()

	for _, ev := range emitter.snapshot() {
		if ev.Category == CategoryUptime {
			if rec := ev.Record.(Uptime); rec.Display != ValueUnknown {
				t.Errorf("uptime sentinel Display = %q, want %q", rec.Display, ValueUnknown)
			}
		}
	}
}

func TestPollerGPUFreshnessWindow(t *testing.T) {
	q := newFakeQuerier(healthyRespond)
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval:      20 * time.Millisecond,
		ErrorInterval: 20 * time.Millisecond,
		GPUFreshness:  time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= 3*len(VolatileCategories()) })
	p.Stop()

	if got := q.callCount(CategoryGPU); got != 1 {
		t.Errorf("GPU queried %d times, want 1 (fresh result must be reused)", got)
	}
	if got := q.callCount(CategoryMemory); got < 3 {
		t.Errorf("memory queried %d times, want at least 3", got)
	}

	// The cached GPU record is still emitted every tick.
	gpuEvents := 0
	for _, ev := range emitter.snapshot() {
		if ev.Category == CategoryGPU {
			gpuEvents++
		}
	}
	if gpuEvents < 3 {
		t.Errorf("GPU emitted %d times, want at least 3", gpuEvents)
	}
}

func TestPollerGPUFailureCachedInWindow(t *testing.T) {
	q := newFakeQuerier(func(cat Category) (Record, error) {
		if cat == CategoryGPU {
			return nil, errors.New("nvidia-smi crashed")
		}
		return healthyRespond(cat)
	})
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval:      20 * time.Millisecond,
		ErrorInterval: 20 * time.Millisecond,
		GPUFreshness:  time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= 3*len(VolatileCategories()) })
	p.Stop()

	// The failed result counts as fresh too; no retry inside the window.
	if got := q.callCount(CategoryGPU); got != 1 {
		t.Errorf("GPU queried %d times after failure, want 1", got)
	}
}

func TestPollerStopEmitsNothingAfterReturn(t *testing.T) {
	q := newFakeQuerier(healthyRespond)
	emitter := &recordingEmitter{}
	interval := 20 * time.Millisecond
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval: interval, ErrorInterval: interval,
	})

	p.Start()
	waitFor(t, func() bool { return emitter.count() >= 1 })
	p.Stop()

	after := emitter.count()
	time.Sleep(2 * interval)
	if got := emitter.count(); got != after {
		t.Errorf("%d events published after Stop returned", got-after)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := NewPoller(zap.NewNop(), newFakeQuerier(healthyRespond), NewCache(), &recordingEmitter{}, PollerConfig{
		Interval: time.Hour, ErrorInterval: time.Hour,
	})
	p.Start()
	p.Stop()
	p.Stop()
}

func TestPollerErrorBackoffShortensSleep(t *testing.T) {
	q := newFakeQuerier(func(cat Category) (Record, error) {
		return nil, errors.New("everything is down")
	})
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval:      time.Hour, // would allow only one tick without backoff
		ErrorInterval: 20 * time.Millisecond,
	})

	p.Start()
	waitFor(t, func() bool { return p.Stats().Ticks >= 3 })
	p.Stop()

	if ticks := p.Stats().Ticks; ticks < 3 {
		t.Errorf("ticks = %d, want at least 3 under error backoff", ticks)
	}
}

func TestPollerStats(t *testing.T) {
	q := newFakeQuerier(func(cat Category) (Record, error) {
		if cat == CategoryDisk {
			return nil, errors.New("disk query failed")
		}
		return healthyRespond(cat)
	})
	emitter := &recordingEmitter{}
	p := NewPoller(zap.NewNop(), q, NewCache(), emitter, PollerConfig{
		Interval: time.Hour, ErrorInterval: time.Hour,
	})

	p.Start()
	waitFor(t, func() bool { return p.Stats().Ticks >= 1 })
	p.Stop()

	stats := p.Stats()
	if stats.QueryFailures < 1 {
		t.Errorf("QueryFailures = %d, want at least 1", stats.QueryFailures)
	}
	if stats.LastTick.IsZero() {
		t.Error("LastTick not stamped")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
