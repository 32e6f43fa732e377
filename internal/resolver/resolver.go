package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/metrics"
)

// Entity is a canonical record with a registry-assigned natural key.
type Entity[K comparable] interface {
	NaturalKey() K
	FetchedAt() time.Time
}

// Store is the persistent tier consulted between cache and upstream.
type Store[K comparable, F any, E Entity[K]] interface {
	GetByKey(ctx context.Context, key K) (E, bool, error)
	Search(ctx context.Context, filter F, limit int) ([]E, error)
	Upsert(ctx context.Context, entity *E) error
}

// Upstream fetches raw payloads from the authoritative registry.
type Upstream[K comparable, F any, R any] interface {
	FetchByKey(ctx context.Context, key K) (R, error)
	Search(ctx context.Context, filter F, limit int) ([]R, error)
}

// Source identifies which tier answered a resolution.
type Source string

const (
	SourceCache    Source = "cache"
	SourceStore    Source = "store"
	SourceUpstream Source = "upstream"
)

// Config tunes a Resolver for one registry.
type Config struct {
	Registry           string
	CacheEnabled       bool
	CacheTTL           time.Duration
	SearchCacheTTL     time.Duration
	StalenessThreshold time.Duration
}

func (c Config) normalised() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.SearchCacheTTL <= 0 {
		c.SearchCacheTTL = time.Hour
	}
	if c.StalenessThreshold <= 0 {
		c.StalenessThreshold = 24 * time.Hour
	}
	return c
}

// Resolver answers point lookups and searches through a cache-aside chain of
// volatile cache, persistent store and upstream registry. It holds no
// request-scoped state and is safe for concurrent use. Concurrent cold-cache
// lookups for the same key may each reach upstream; the store's upsert
// semantics make those writes converge on a single row.
type Resolver[K comparable, F any, R any, E Entity[K]] struct {
	cfg       Config
	cache     cache.Store
	store     Store[K, F, E]
	upstream  Upstream[K, F, R]
	transform func(R) E

	// bypassStore reports whether a filter must skip the persistent tier,
	// e.g. free-text terms the store cannot match as well as upstream.
	bypassStore func(F) bool

	// filterParams projects a filter onto the map used for cache keys.
	filterParams func(F) map[string]any

	log *zap.Logger
}

// Options carries the per-registry behaviour that cannot be expressed in
// Config values.
type Options[K comparable, F any, R any, E Entity[K]] struct {
	Transform    func(R) E
	BypassStore  func(F) bool
	FilterParams func(F) map[string]any
}

// New constructs a Resolver. The cache store may be nil only when caching is
// disabled in the config.
func New[K comparable, F any, R any, E Entity[K]](
	cfg Config,
	cacheStore cache.Store,
	store Store[K, F, E],
	upstream Upstream[K, F, R],
	opts Options[K, F, R, E],
) (*Resolver[K, F, R, E], error) {
	if cfg.Registry == "" {
		return nil, errors.New("resolver: registry name is required")
	}
	if store == nil {
		return nil, errors.New("resolver: persistent store is required")
	}
	if upstream == nil {
		return nil, errors.New("resolver: upstream client is required")
	}
	if opts.Transform == nil {
		return nil, errors.New("resolver: transform function is required")
	}
	if cfg.CacheEnabled && cacheStore == nil {
		return nil, errors.New("resolver: cache store is required when caching is enabled")
	}

	r := &Resolver[K, F, R, E]{
		cfg:          cfg.normalised(),
		cache:        cacheStore,
		store:        store,
		upstream:     upstream,
		transform:    opts.Transform,
		bypassStore:  opts.BypassStore,
		filterParams: opts.FilterParams,
		log:          logger.WithModule("resolver." + cfg.Registry),
	}
	return r, nil
}

// GetByKey resolves a single entity by natural key. The boolean reports
// presence; the error is non-nil only when the upstream registry failed hard
// after retries. Absence is a valid answer, not an error.
func (r *Resolver[K, F, R, E]) GetByKey(ctx context.Context, key K, forceRefresh bool) (E, bool, error) {
	var zero E
	cacheKey := cache.PointKey(r.cfg.Registry, key)

	if !forceRefresh {
		if entity, ok := r.cacheGet(ctx, cacheKey); ok {
			metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceCache)).Inc()
			return entity, true, nil
		}

		entity, found, err := r.store.GetByKey(ctx, key)
		if err != nil {
			r.log.Warn("store lookup failed, falling through to upstream", zap.Error(err))
		} else if found && !r.stale(entity) {
			r.cachePut(ctx, cacheKey, entity, r.cfg.CacheTTL)
			metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceStore)).Inc()
			return entity, true, nil
		}
	}

	raw, err := r.upstream.FetchByKey(ctx, key)
	if errors.Is(err, registry.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	entity := r.transform(raw)
	r.persist(ctx, &entity)
	r.cachePut(ctx, cacheKey, entity, r.cfg.CacheTTL)
	metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceUpstream)).Inc()
	return entity, true, nil
}

// Search resolves a filtered listing. Upstream failures degrade to an empty
// result rather than an error; an empty list is a valid "no data" answer.
func (r *Resolver[K, F, R, E]) Search(ctx context.Context, filter F, limit int, forceRefresh bool) ([]E, error) {
	if limit <= 0 {
		limit = 20
	}

	params := map[string]any{"limit": limit}
	if r.filterParams != nil {
		for k, v := range r.filterParams(filter) {
			params[k] = v
		}
	}
	cacheKey := cache.Key(r.cfg.Registry, "search", params)

	if !forceRefresh {
		if results, ok := r.cacheGetList(ctx, cacheKey); ok {
			metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceCache)).Inc()
			return results, nil
		}

		if r.bypassStore == nil || !r.bypassStore(filter) {
			results, err := r.store.Search(ctx, filter, limit)
			if err != nil {
				r.log.Warn("store search failed, falling through to upstream", zap.Error(err))
			} else if len(results) > 0 {
				r.cachePutList(ctx, cacheKey, results, r.cfg.SearchCacheTTL)
				metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceStore)).Inc()
				return results, nil
			}
		}
	}

	raws, err := r.upstream.Search(ctx, filter, limit)
	if err != nil {
		r.log.Warn("upstream search failed, degrading to empty result", zap.Error(err))
		return []E{}, nil
	}

	results := make([]E, 0, len(raws))
	for _, raw := range raws {
		entity := r.transform(raw)
		r.persist(ctx, &entity)
		results = append(results, entity)
	}

	r.cachePutList(ctx, cacheKey, results, r.cfg.SearchCacheTTL)
	metrics.ResolverSource.WithLabelValues(r.cfg.Registry, string(SourceUpstream)).Inc()
	return results, nil
}

func (r *Resolver[K, F, R, E]) stale(entity E) bool {
	fetched := entity.FetchedAt()
	if fetched.IsZero() {
		return true
	}
	return time.Since(fetched) > r.cfg.StalenessThreshold
}

// persist writes through to the store; a failure is logged as a durability
// warning and the freshly transformed entity is still served.
func (r *Resolver[K, F, R, E]) persist(ctx context.Context, entity *E) {
	if err := r.store.Upsert(ctx, entity); err != nil {
		r.log.Warn("persist failed, serving unpersisted entity", zap.Error(err))
	}
}

func (r *Resolver[K, F, R, E]) cacheGet(ctx context.Context, key string) (E, bool) {
	var zero E
	if !r.cfg.CacheEnabled {
		return zero, false
	}

	payload, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "error").Inc()
		r.log.Warn("cache read failed, treating as miss", zap.Error(err))
		return zero, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "miss").Inc()
		return zero, false
	}

	var entity E
	if err := json.Unmarshal(payload, &entity); err != nil {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "error").Inc()
		r.log.Warn("cache payload corrupt, treating as miss", zap.Error(err))
		_ = r.cache.Delete(ctx, key)
		return zero, false
	}

	metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "hit").Inc()
	return entity, true
}

func (r *Resolver[K, F, R, E]) cacheGetList(ctx context.Context, key string) ([]E, bool) {
	if !r.cfg.CacheEnabled {
		return nil, false
	}

	payload, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "error").Inc()
		r.log.Warn("cache read failed, treating as miss", zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "miss").Inc()
		return nil, false
	}

	var results []E
	if err := json.Unmarshal(payload, &results); err != nil {
		metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "error").Inc()
		r.log.Warn("cache payload corrupt, treating as miss", zap.Error(err))
		_ = r.cache.Delete(ctx, key)
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues(r.cfg.Registry, "hit").Inc()
	return results, true
}

func (r *Resolver[K, F, R, E]) cachePut(ctx context.Context, key string, entity E, ttl time.Duration) {
	if !r.cfg.CacheEnabled {
		return
	}
	payload, err := json.Marshal(entity)
	if err != nil {
		r.log.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, key, payload, ttl); err != nil {
		r.log.Warn("cache write failed", zap.Error(err))
	}
}

func (r *Resolver[K, F, R, E]) cachePutList(ctx context.Context, key string, results []E, ttl time.Duration) {
	if !r.cfg.CacheEnabled {
		return
	}
	payload, err := json.Marshal(results)
	if err != nil {
		r.log.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, key, payload, ttl); err != nil {
		r.log.Warn("cache write failed", zap.Error(err))
	}
}
