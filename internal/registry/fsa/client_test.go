package fsa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
)

const establishmentFixture = `{
	"FHRSID": 123456,
	"BusinessName": "Test Cafe",
	"BusinessType": "Restaurant/Cafe/Canteen",
	"BusinessTypeID": 1,
	"AddressLine1": "1 High Street",
	"PostCode": "LS1 1AA",
	"RatingValue": "5",
	"RatingKey": "fhrs_5_en-gb",
	"RatingDate": "2024-03-15T00:00:00",
	"LocalAuthorityName": "Leeds",
	"scores": {"Hygiene": 5, "Structural": 5, "ConfidenceInManagement": 0},
	"geocode": {"longitude": "-1.549077", "latitude": "53.800755"}
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

func TestFetchEstablishment(t *testing.T) {
	var gotVersion string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("x-api-version")
		require.Equal(t, "/Establishments/123456", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(establishmentFixture))
	})

	raw, err := client.FetchEstablishment(context.Background(), 123456)
	require.NoError(t, err)
	require.Equal(t, "2", gotVersion)
	require.EqualValues(t, 123456, raw.FHRSID)
	require.Equal(t, "Test Cafe", raw.BusinessName)
	require.Equal(t, "5", raw.RatingValue)
	require.NotNil(t, raw.Scores.Hygiene)
	require.Equal(t, 5, *raw.Scores.Hygiene)
}

func TestFetchEstablishmentNotFound(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchEstablishment(context.Background(), 999)
	require.ErrorIs(t, err, registry.ErrNotFound)
	require.Equal(t, 1, calls)
}

func TestFetchEstablishmentRetriesServerError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(establishmentFixture))
	})

	raw, err := client.FetchEstablishment(context.Background(), 123456)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, "Test Cafe", raw.BusinessName)
}

func TestFetchEstablishmentUpstreamFailure(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchEstablishment(context.Background(), 123456)
	require.Error(t, err)
	require.Equal(t, 3, calls)

	var upstreamErr *registry.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, "fsa", upstreamErr.Registry)
	require.Equal(t, 3, upstreamErr.Attempts)
}

func TestSearchEstablishments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Establishments", r.URL.Path)
		require.Equal(t, "cafe", r.URL.Query().Get("name"))
		require.Equal(t, "fhrs_5_en-gb", r.URL.Query().Get("ratingKey"))
		require.Equal(t, "20", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"establishments": [` + establishmentFixture + `], "meta": {"totalCount": 1}}`))
	})

	raws, err := client.SearchEstablishments(context.Background(), SearchParams{Name: "cafe", RatingKey: "fhrs_5_en-gb"})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, "Test Cafe", raws[0].BusinessName)
}

func TestNearbyEstablishments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "53.800755", r.URL.Query().Get("latitude"))
		require.Equal(t, "distance", r.URL.Query().Get("sortOptionKey"))
		_, _ = w.Write([]byte(`{"establishments": [` + establishmentFixture + `]}`))
	})

	raws, err := client.NearbyEstablishments(context.Background(), NearbyParams{
		Latitude: 53.800755, Longitude: -1.549077, MaxMiles: 2,
	})
	require.NoError(t, err)
	require.Len(t, raws, 1)
}

func TestAuthorities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Authorities/basic", r.URL.Path)
		_, _ = w.Write([]byte(`{"authorities": [{"LocalAuthorityId": 406, "Name": "Leeds", "RegionName": "Yorkshire and Humberside"}]}`))
	})

	authorities, err := client.Authorities(context.Background())
	require.NoError(t, err)
	require.Len(t, authorities, 1)
	require.Equal(t, "Leeds", authorities[0].Name)
}
