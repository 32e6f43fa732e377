package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(store RateStore, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(store, limit, time.Minute))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func doRequest(router *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	router := newLimitedRouter(NewMemoryRateStore(), 3)

	for i := 0; i < 3; i++ {
		rec := doRequest(router)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	router := newLimitedRouter(NewMemoryRateStore(), 2)

	doRequest(router)
	doRequest(router)
	rec := doRequest(router)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}

type failingRateStore struct{}

func (failingRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("backend down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	router := newLimitedRouter(failingRateStore{}, 1)

	for i := 0; i < 5; i++ {
		rec := doRequest(router)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	router := newLimitedRouter(nil, 0)

	for i := 0; i < 5; i++ {
		rec := doRequest(router)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMemoryRateStoreWindowReset(t *testing.T) {
	store := &memoryRateStore{
		data:  map[string]*memoryCounter{},
		tick:  time.NewTicker(time.Minute),
		clock: time.Now,
	}

	now := time.Now()
	store.clock = func() time.Time { return now }

	count, _, err := store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, _, err = store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Advance past the window; the counter starts over.
	store.clock = func() time.Time { return now.Add(2 * time.Minute) }
	count, _, err = store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
