// Package fetchpool fans per-entity fetches out over a bounded set of workers.
package fetchpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"SectorPulse/internal/domain/repository"
	"SectorPulse/pkg/cache"
	"SectorPulse/pkg/logger"
)

const cachePrefix = "fetch"

type Config struct {
	Workers       int
	RatePerSecond float64 // <= 0 disables the shared limiter
	Burst         int
	CacheTTL      time.Duration
}

// Pool runs fetch functions with a worker limit, a shared rate limiter and
// at most one in-flight call per (need, entity).
type Pool struct {
	workers int
	limiter *rate.Limiter
	flight  singleflight.Group
	cache   cache.Service
	ttl     time.Duration
	log     *logger.Logger
	metrics repository.Metrics
}

// New builds a pool. c may be nil to disable result caching.
func New(cfg Config, c cache.Service, log *logger.Logger, metrics repository.Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	return &Pool{
		workers: cfg.Workers,
		limiter: lim,
		cache:   c,
		ttl:     cfg.CacheTTL,
		log:     log.With(logger.String("component", "fetchpool")),
		metrics: metrics,
	}
}

// Release drops every cached result of runID.
func (p *Pool) Release(ctx context.Context, runID string) error {
	if p.cache == nil || runID == "" {
		return nil
	}
	return p.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKeyWithParams(cachePrefix, runID)+":"))
}

// Result is what one entity's fetch produced. Value may be set alongside
// Err when the fetch returns partial information about its failure.
type Result[T any] struct {
	Value  T
	Err    error
	Cached bool
}

// CacheKey is the cache key for one entity's result within a run.
func CacheKey(runID, need, id string) string {
	return cache.GenerateKeyWithParams(cachePrefix, runID, need, id)
}

// Dedupe keeps the first occurrence of every non-empty id.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Collect runs fn for every distinct id and returns once each one has a
// result. A failure for one id never cancels the others; only ctx does, in
// which case the remaining ids are marked with ctx's error.
func Collect[T any](ctx context.Context, p *Pool, runID, need string, ids []string, fn func(ctx context.Context, id string) (T, error)) map[string]Result[T] {
	ids = Dedupe(ids)
	results := make(map[string]Result[T], len(ids))
	var mu sync.Mutex
	store := func(id string, r Result[T]) {
		mu.Lock()
		results[id] = r
		mu.Unlock()
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(p.workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			store(id, fetchOne(ctx, p, runID, need, id, fn))
			return nil
		})
	}
	_ = g.Wait()

	p.metrics.RecordLatency("collect_"+need, time.Since(start).Seconds())
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.log.Debug("collect finished",
		logger.String("need", need),
		logger.Int("entities", len(ids)),
		logger.Int("failed", failed),
		logger.Duration("elapsed", time.Since(start)))
	return results
}

func fetchOne[T any](ctx context.Context, p *Pool, runID, need, id string, fn func(ctx context.Context, id string) (T, error)) Result[T] {
	key := CacheKey(runID, need, id)
	if p.cache != nil && runID != "" {
		var cached T
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			return Result[T]{Value: cached, Cached: true}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Debug("cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Result[T]{Err: fmt.Errorf("wait for rate limit: %w", err)}
	}

	v, err, _ := p.flight.Do(need+"/"+id, func() (interface{}, error) {
		return call(ctx, id, fn)
	})
	var value T
	if v != nil {
		value = v.(T)
	}
	if err != nil {
		return Result[T]{Value: value, Err: err}
	}

	if p.cache != nil && runID != "" {
		if cerr := p.cache.Set(ctx, key, value, p.ttl); cerr != nil {
			p.log.Debug("cache write failed", logger.String("key", key), logger.Error(cerr))
		}
	}
	return Result[T]{Value: value}
}

// call runs fn, turning a panic into an error.
func call[T any](ctx context.Context, id string, fn func(ctx context.Context, id string) (T, error)) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s panicked: %v", id, r)
		}
	}()
	res, err := fn(ctx, id)
	return res, err
}
