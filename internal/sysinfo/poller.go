package sysinfo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollerConfig bounds the dynamic polling loop.
type PollerConfig struct {
	// Interval between ticks under normal operation.
	Interval time.Duration
	// ErrorInterval replaces Interval for the sleep after a tick in which
	// every query failed.
	ErrorInterval time.Duration
	// QueryTimeout bounds each individual category query.
	QueryTimeout time.Duration
	// GPUFreshness is the window during which a GPU result (success or
	// failure) is reused without re-invoking the adapter.
	GPUFreshness time.Duration
}

func (c *PollerConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 8 * time.Second
	}
	if c.ErrorInterval <= 0 {
		c.ErrorInterval = 5 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.GPUFreshness <= 0 {
		c.GPUFreshness = 10 * time.Second
	}
}

// PollerStats is a snapshot of loop activity, used by the health command.
type PollerStats struct {
	Ticks         int64     `json:"ticks"`
	QueryFailures int64     `json:"query_failures"`
	LastTick      time.Time `json:"last_tick"`
}

// Poller re-queries the volatile categories on a fixed interval and emits one
// event per category per tick. A failure in one query never blocks or skips
// the others; failed queries emit sentinel records. The loop runs on its own
// goroutine and hands every result to the Emitter, never to a sink directly.
type Poller struct {
	logger  *zap.Logger
	querier Querier
	cache   *Cache
	emitter Emitter
	cfg     PollerConfig

	statsMu sync.Mutex
	stats   PollerStats

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewPoller creates a poller. Zero config fields fall back to defaults.
func NewPoller(logger *zap.Logger, querier Querier, cache *Cache, emitter Emitter, cfg PollerConfig) *Poller {
	cfg.applyDefaults()
	return &Poller{
		logger:  logger,
		querier: querier,
		cache:   cache,
		emitter: emitter,
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the polling loop. The first tick runs immediately.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Stop terminates the loop and waits for any in-flight tick to finish.
// Idempotent. After Stop returns, no further events are published.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}

// Stats returns a snapshot of loop activity.
func (p *Poller) Stats() PollerStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Poller) run() {
	defer close(p.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-timer.C:
		}

		allFailed := p.tick()

		wait := p.cfg.Interval
		if allFailed {
			wait = p.cfg.ErrorInterval
			p.logger.Warn("All queries failed this tick, backing off",
				zap.Duration("retry_in", wait))
		}
		timer.Reset(wait)
	}
}

// tick queries every volatile category once and reports whether all of them
// failed.
func (p *Poller) tick() bool {
	failures := 0
	categories := VolatileCategories()

	for _, cat := range categories {
		select {
		case <-p.stop:
			// Finish the loop without starting further queries; events
			// already published this tick stand.
			return false
		default:
		}

		if !p.collect(cat) {
			failures++
		}
	}

	p.statsMu.Lock()
	p.stats.Ticks++
	p.stats.QueryFailures += int64(failures)
	p.stats.LastTick = time.Now().UTC()
	p.statsMu.Unlock()

	return failures == len(categories)
}

// collect resolves one category and publishes its event. Returns false on
// query failure. The GPU category reuses any cached result younger than the
// freshness window, successful or not, to avoid redundant external calls.
func (p *Poller) collect(cat Category) bool {
	if cat == CategoryGPU {
		if entry, ok := p.cache.FreshWithin(cat, p.cfg.GPUFreshness); ok {
			p.emitter.Publish(Event{
				Category:  cat,
				Record:    entry.Record,
				Failed:    entry.Failed,
				Timestamp: time.Now().UTC(),
			})
			return !entry.Failed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.QueryTimeout)
	defer cancel()

	rec, err := p.querier.Query(ctx, cat)
	failed := err != nil
	if failed {
		p.logger.Warn("Query failed",
			zap.String("category", cat.String()),
			zap.Error(err))
		rec = SentinelRecord(cat, sentinelText(err))
	}

	p.cache.Put(cat, rec, failed)
	p.emitter.Publish(Event{
		Category:  cat,
		Record:    rec,
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	})
	return !failed
}
