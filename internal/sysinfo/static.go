package sysinfo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaticLoader fetches the static categories once and caches them for the
// process lifetime. The four queries run concurrently, each with its own
// timeout, and results are emitted category-by-category as they complete.
// A failure in one category never affects the others.
type StaticLoader struct {
	logger  *zap.Logger
	querier Querier
	cache   *Cache
	emitter Emitter
	timeout time.Duration
}

// NewStaticLoader creates a loader. timeout bounds each individual query.
func NewStaticLoader(logger *zap.Logger, querier Querier, cache *Cache, emitter Emitter, timeout time.Duration) *StaticLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StaticLoader{
		logger:  logger,
		querier: querier,
		cache:   cache,
		emitter: emitter,
		timeout: timeout,
	}
}

// Load fans out over the static categories and blocks until all have been
// resolved and emitted. Categories already in the cache are re-emitted
// without touching the adapter, so repeated Load calls query each category
// at most once per cache lifetime; InvalidateAll on the cache permits a full
// reload.
func (l *StaticLoader) Load(ctx context.Context) {
	var wg sync.WaitGroup
	for _, cat := range StaticCategories() {
		if entry, ok := l.cache.Get(cat); ok {
			l.emitter.Publish(Event{
				Category:  cat,
				Record:    entry.Record,
				Failed:    entry.Failed,
				Timestamp: time.Now().UTC(),
			})
			continue
		}

		wg.Add(1)
		go func(cat Category) {
			defer wg.Done()
			l.loadOne(ctx, cat)
		}(cat)
	}
	wg.Wait()
}

func (l *StaticLoader) loadOne(ctx context.Context, cat Category) {
	queryCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rec, err := l.querier.Query(queryCtx, cat)
	failed := err != nil
	if failed {
		l.logger.Warn("Static query failed",
			zap.String("category", cat.String()),
			zap.Error(err))
		rec = SentinelRecord(cat, sentinelText(err))
	}

	l.cache.Put(cat, rec, failed)
	l.emitter.Publish(Event{
		Category:  cat,
		Record:    rec,
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	})
}
