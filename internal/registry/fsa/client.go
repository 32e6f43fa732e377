package fsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
)

const (
	defaultBaseURL = "https://api.ratings.food.gov.uk"
	defaultTimeout = 15 * time.Second
	registryName   = "fsa"
)

// SearchParams filters an establishment search against the registry.
type SearchParams struct {
	Name             string
	Address          string
	RatingKey        string
	BusinessTypeID   int64
	LocalAuthorityID int64
	PageNumber       int
	PageSize         int
}

// NearbyParams searches establishments around a coordinate.
type NearbyParams struct {
	Latitude  float64
	Longitude float64
	MaxMiles  int
	PageSize  int
}

// Client talks to the Food Hygiene Rating Scheme API. Every request carries
// the v2 API version header; without it the registry answers in the legacy
// XML dialect.
type Client struct {
	baseURL string
	http    *http.Client
	policy  registry.RetryPolicy
	log     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the registry endpoint, primarily for tests.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(raw, "/")
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetryPolicy overrides the default retry behaviour.
func WithRetryPolicy(policy registry.RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient constructs a hygiene registry client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy: registry.DefaultRetryPolicy(),
		log:    logger.WithModule("registry.fsa"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchEstablishment retrieves a single establishment by FHRSID.
func (c *Client) FetchEstablishment(ctx context.Context, fhrsid int64) (Raw, error) {
	path := "/Establishments/" + strconv.FormatInt(fhrsid, 10)
	return registry.Do(ctx, registryName, "fetch_establishment", c.policy, func(ctx context.Context) (Raw, error) {
		return decodeJSON[Raw](c.get(ctx, path, nil))
	})
}

// SearchEstablishments queries the registry with the supplied filters.
func (c *Client) SearchEstablishments(ctx context.Context, params SearchParams) ([]Raw, error) {
	query := url.Values{}
	if params.Name != "" {
		query.Set("name", params.Name)
	}
	if params.Address != "" {
		query.Set("address", params.Address)
	}
	if params.RatingKey != "" {
		query.Set("ratingKey", params.RatingKey)
	}
	if params.BusinessTypeID > 0 {
		query.Set("businessTypeId", strconv.FormatInt(params.BusinessTypeID, 10))
	}
	if params.LocalAuthorityID > 0 {
		query.Set("localAuthorityId", strconv.FormatInt(params.LocalAuthorityID, 10))
	}
	query.Set("pageNumber", strconv.Itoa(max(params.PageNumber, 1)))
	query.Set("pageSize", strconv.Itoa(clampPageSize(params.PageSize)))

	resp, err := registry.Do(ctx, registryName, "search_establishments", c.policy, func(ctx context.Context) (searchResponse, error) {
		return decodeJSON[searchResponse](c.get(ctx, "/Establishments", query))
	})
	if err != nil {
		return nil, err
	}
	return resp.Establishments, nil
}

// NearbyEstablishments searches around a coordinate ordered by distance.
func (c *Client) NearbyEstablishments(ctx context.Context, params NearbyParams) ([]Raw, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(params.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(params.Longitude, 'f', -1, 64))
	query.Set("maxDistanceLimit", strconv.Itoa(max(params.MaxMiles, 1)))
	query.Set("sortOptionKey", "distance")
	query.Set("pageSize", strconv.Itoa(clampPageSize(params.PageSize)))

	resp, err := registry.Do(ctx, registryName, "nearby_establishments", c.policy, func(ctx context.Context) (searchResponse, error) {
		return decodeJSON[searchResponse](c.get(ctx, "/Establishments", query))
	})
	if err != nil {
		return nil, err
	}
	return resp.Establishments, nil
}

// Authorities lists every local authority known to the scheme.
func (c *Client) Authorities(ctx context.Context) ([]Authority, error) {
	resp, err := registry.Do(ctx, registryName, "authorities", c.policy, func(ctx context.Context) (authoritiesResponse, error) {
		return decodeJSON[authoritiesResponse](c.get(ctx, "/Authorities/basic", nil))
	})
	if err != nil {
		return nil, err
	}
	return resp.Authorities, nil
}

// BusinessTypes lists the registry's establishment categories.
func (c *Client) BusinessTypes(ctx context.Context) ([]BusinessType, error) {
	resp, err := registry.Do(ctx, registryName, "business_types", c.policy, func(ctx context.Context) (businessTypesResponse, error) {
		return decodeJSON[businessTypesResponse](c.get(ctx, "/BusinessTypes/basic", nil))
	})
	if err != nil {
		return nil, err
	}
	return resp.BusinessTypes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-version", "2")
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, registry.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.log.Warn("unexpected registry status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &registry.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func decodeJSON[T any](body []byte, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("fsa: decode response: %w", err)
	}
	return out, nil
}

func clampPageSize(size int) int {
	switch {
	case size <= 0:
		return 20
	case size > 100:
		return 100
	default:
		return size
	}
}
