package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
)

type widget struct {
	Key     int64     `json:"key"`
	Name    string    `json:"name"`
	Fetched time.Time `json:"fetched"`
}

func (w widget) NaturalKey() int64    { return w.Key }
func (w widget) FetchedAt() time.Time { return w.Fetched }

type rawWidget struct {
	ID    int64
	Label string
}

type widgetFilter struct {
	Name string
	Term string
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	getErr  error
	setErr  error
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	val, ok := c.data[key]
	return val, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	return 0, false, nil
}

func (c *fakeCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = map[string][]byte{}
	return nil
}

func (c *fakeCache) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("not supported")
}

func (c *fakeCache) calls() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

type fakeStore struct {
	mu        sync.Mutex
	rows      map[int64]widget
	gets      int
	searches  int
	upserts   int
	getErr    error
	searchErr error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]widget{}}
}

func (s *fakeStore) GetByKey(ctx context.Context, key int64) (widget, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return widget{}, false, s.getErr
	}
	row, ok := s.rows[key]
	return row, ok, nil
}

func (s *fakeStore) Search(ctx context.Context, filter widgetFilter, limit int) ([]widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var out []widget
	for _, row := range s.rows {
		if filter.Name == "" || strings.Contains(row.Name, filter.Name) {
			out = append(out, row)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Upsert(ctx context.Context, entity *widget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.rows[entity.Key] = *entity
	return nil
}

type fakeUpstream struct {
	mu        sync.Mutex
	raws      map[int64]rawWidget
	fetches   int
	searches  int
	fetchErr  error
	searchErr error
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{raws: map[int64]rawWidget{}}
}

func (u *fakeUpstream) FetchByKey(ctx context.Context, key int64) (rawWidget, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fetches++
	if u.fetchErr != nil {
		return rawWidget{}, u.fetchErr
	}
	raw, ok := u.raws[key]
	if !ok {
		return rawWidget{}, registry.ErrNotFound
	}
	return raw, nil
}

func (u *fakeUpstream) Search(ctx context.Context, filter widgetFilter, limit int) ([]rawWidget, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.searches++
	if u.searchErr != nil {
		return nil, u.searchErr
	}
	var out []rawWidget
	for _, raw := range u.raws {
		out = append(out, raw)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func transformWidget(raw rawWidget) widget {
	return widget{Key: raw.ID, Name: raw.Label, Fetched: time.Now()}
}

func newTestResolver(t *testing.T, cfg Config, c *fakeCache, s *fakeStore, u *fakeUpstream) *Resolver[int64, widgetFilter, rawWidget, widget] {
	t.Helper()
	if cfg.Registry == "" {
		cfg.Registry = "test"
	}
	r, err := New[int64, widgetFilter, rawWidget, widget](cfg, c, s, u, Options[int64, widgetFilter, rawWidget, widget]{
		Transform:   transformWidget,
		BypassStore: func(f widgetFilter) bool { return f.Term != "" },
		FilterParams: func(f widgetFilter) map[string]any {
			return map[string]any{"name": f.Name, "term": f.Term}
		},
	})
	require.NoError(t, err)
	return r
}

func defaultConfig() Config {
	return Config{
		Registry:           "test",
		CacheEnabled:       true,
		CacheTTL:           time.Hour,
		SearchCacheTTL:     time.Minute,
		StalenessThreshold: 24 * time.Hour,
	}
}

func TestGetByKeyCacheHitShortCircuits(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)
	ctx := context.Background()

	u.raws[1] = rawWidget{ID: 1, Label: "one"}

	// First call warms the cache via upstream.
	_, found, err := r.GetByKey(ctx, 1, false)
	require.NoError(t, err)
	require.True(t, found)

	// Second call must be answered by the cache alone.
	got, found, err := r.GetByKey(ctx, 1, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "one", got.Name)
	require.Equal(t, 1, s.gets)
	require.Equal(t, 1, u.fetches)
}

func TestGetByKeyFreshStoreHitPopulatesCache(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)
	ctx := context.Background()

	s.rows[7] = widget{Key: 7, Name: "seven", Fetched: time.Now().Add(-23 * time.Hour)}

	got, found, err := r.GetByKey(ctx, 7, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "seven", got.Name)
	require.Equal(t, 0, u.fetches)

	_, sets := c.calls()
	require.Equal(t, 1, sets)
}

func TestGetByKeyStaleStoreRowRevalidates(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)
	ctx := context.Background()

	s.rows[7] = widget{Key: 7, Name: "old seven", Fetched: time.Now().Add(-25 * time.Hour)}
	u.raws[7] = rawWidget{ID: 7, Label: "new seven"}

	got, found, err := r.GetByKey(ctx, 7, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "new seven", got.Name)
	require.Equal(t, 1, u.fetches)
	require.Equal(t, 1, s.upserts)
	require.Equal(t, "new seven", s.rows[7].Name)
}

func TestGetByKeyNotFoundIsAbsentNotError(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	_, found, err := r.GetByKey(context.Background(), 404, false)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 0, s.upserts)
}

func TestGetByKeyUpstreamFailurePropagates(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	u.fetchErr = &registry.UpstreamError{Registry: "test", Op: "fetch", Attempts: 3, Err: errors.New("boom")}

	_, found, err := r.GetByKey(context.Background(), 1, false)
	require.Error(t, err)
	require.False(t, found)

	var upstreamErr *registry.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
}

func TestGetByKeyForceRefreshSkipsCacheAndStore(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)
	ctx := context.Background()

	s.rows[1] = widget{Key: 1, Name: "stored", Fetched: time.Now()}
	u.raws[1] = rawWidget{ID: 1, Label: "fresh"}

	got, found, err := r.GetByKey(ctx, 1, true)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "fresh", got.Name)
	require.Equal(t, 0, s.gets)
	require.Equal(t, 1, u.fetches)
}

func TestGetByKeyStoreErrorFallsThroughToUpstream(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	s.getErr = errors.New("disk on fire")
	u.raws[1] = rawWidget{ID: 1, Label: "one"}

	got, found, err := r.GetByKey(context.Background(), 1, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "one", got.Name)
}

func TestGetByKeyPersistFailureStillServes(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	s.upsertErr = errors.New("constraint violation")
	u.raws[1] = rawWidget{ID: 1, Label: "one"}

	got, found, err := r.GetByKey(context.Background(), 1, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "one", got.Name)
}

func TestSearchStoreHitSkipsUpstream(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	s.rows[1] = widget{Key: 1, Name: "alpha cafe", Fetched: time.Now()}

	results, err := r.Search(context.Background(), widgetFilter{Name: "alpha"}, 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 0, u.searches)
}

func TestSearchEmptyStoreFallsBackToUpstream(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	u.raws[1] = rawWidget{ID: 1, Label: "one"}
	u.raws[2] = rawWidget{ID: 2, Label: "two"}

	results, err := r.Search(context.Background(), widgetFilter{Name: "zzz"}, 10, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, s.searches)
	require.Equal(t, 1, u.searches)
	// Every upstream row is persisted exactly once.
	require.Equal(t, 2, s.upserts)
}

func TestSearchFreeTextBypassesStore(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	s.rows[1] = widget{Key: 1, Name: "stored", Fetched: time.Now()}
	u.raws[2] = rawWidget{ID: 2, Label: "upstream"}

	results, err := r.Search(context.Background(), widgetFilter{Term: "anything"}, 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "upstream", results[0].Name)
	require.Equal(t, 0, s.searches)
}

func TestSearchUpstreamFailureDegradesToEmpty(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	u.searchErr = &registry.UpstreamError{Registry: "test", Op: "search", Attempts: 3, Err: errors.New("boom")}

	results, err := r.Search(context.Background(), widgetFilter{Term: "anything"}, 10, false)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchCachesResults(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)
	ctx := context.Background()

	u.raws[1] = rawWidget{ID: 1, Label: "one"}

	_, err := r.Search(ctx, widgetFilter{Term: "x"}, 10, false)
	require.NoError(t, err)

	results, err := r.Search(ctx, widgetFilter{Term: "x"}, 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, u.searches)
}

func TestCacheDisabledNeverTouchesCache(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	cfg := defaultConfig()
	cfg.CacheEnabled = false
	r := newTestResolver(t, cfg, c, s, u)
	ctx := context.Background()

	u.raws[1] = rawWidget{ID: 1, Label: "one"}

	for i := 0; i < 3; i++ {
		got, found, err := r.GetByKey(ctx, 1, false)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "one", got.Name)
	}

	_, err := r.Search(ctx, widgetFilter{Name: "one"}, 10, false)
	require.NoError(t, err)

	gets, sets := c.calls()
	require.Zero(t, gets)
	require.Zero(t, sets)
}

func TestCacheErrorTreatedAsMiss(t *testing.T) {
	c, s, u := newFakeCache(), newFakeStore(), newFakeUpstream()
	r := newTestResolver(t, defaultConfig(), c, s, u)

	c.getErr = errors.New("connection refused")
	s.rows[1] = widget{Key: 1, Name: "one", Fetched: time.Now()}

	got, found, err := r.GetByKey(context.Background(), 1, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "one", got.Name)
}
