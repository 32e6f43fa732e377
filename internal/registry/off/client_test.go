package off

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
)

const productFixture = `{
	"status": 1,
	"code": "5000112637922",
	"product": {
		"code": "5000112637922",
		"product_name": "Sparkling Orange",
		"brands": "Fizzico",
		"categories": "Beverages, Sodas",
		"ecoscore_grade": "b",
		"ecoscore_score": 71,
		"ecoscore_data": {"agribalyse": {"score": 71}},
		"nutriscore_grade": "e",
		"nutriments": {
			"energy-kcal_100g": 19,
			"sugars_100g": 4.5,
			"salt_100g": 0.01,
			"carbon-footprint_100g": 42.5
		},
		"completeness": 0.85
	}
}`

func testPolicy() registry.RetryPolicy {
	return registry.RetryPolicy{MaxAttempts: 3, InitialBackoff: 5 * time.Millisecond, MaxBackoff: 20 * time.Millisecond}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithRetryPolicy(testPolicy()),
	)
}

func TestFetchProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/product/5000112637922", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(productFixture))
	})

	raw, err := client.FetchProduct(context.Background(), "5000112637922")
	require.NoError(t, err)
	require.Equal(t, "5000112637922", raw.Code)
	require.Equal(t, "Sparkling Orange", raw.ProductName)
	require.Equal(t, "b", raw.EcoscoreGrade)
	require.NotNil(t, raw.Nutriments.Sugars100g)
	require.InDelta(t, 4.5, *raw.Nutriments.Sugars100g, 1e-9)
}

func TestFetchProductStatusZeroIsNotFound(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found", "code": "000"}`))
	})

	_, err := client.FetchProduct(context.Background(), "000")
	require.ErrorIs(t, err, registry.ErrNotFound)
	require.Equal(t, 1, calls)
}

func TestFetchProductRetriesServerError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(productFixture))
	})

	raw, err := client.FetchProduct(context.Background(), "5000112637922")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, "Sparkling Orange", raw.ProductName)
}

func TestSearchProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cgi/search.pl", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "process", q.Get("action"))
		require.Equal(t, "1", q.Get("json"))
		require.Equal(t, "oat milk", q.Get("search_terms"))
		require.Equal(t, "categories", q.Get("tagtype_0"))
		require.Equal(t, "plant-based-milks", q.Get("tag_0"))
		_, _ = w.Write([]byte(`{"count": 1, "products": [{"code": "1", "product_name": "Oat Drink", "ecoscore_grade": "a"}]}`))
	})

	raws, err := client.SearchProducts(context.Background(), SearchParams{
		Terms:    "oat milk",
		Category: "plant-based-milks",
	})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, "Oat Drink", raws[0].ProductName)
}

func TestCategories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/categories.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"count": 2, "tags": [{"id": "en:beverages", "name": "Beverages", "products": 120000}]}`))
	})

	cats, err := client.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, "en:beverages", cats[0].ID)
}
