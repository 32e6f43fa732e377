package off

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
	defaultBaseURL   = "https://world.openfoodfacts.org"
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "uk-food-nutrition-data-platform/1.0"
	registryName     = "off"
)

// SearchParams filters a product search. Terms drives the upstream free-text
// engine; Category and Label narrow via tag filters.
type SearchParams struct {
	Terms    string
	Category string
	Label    string
	Page     int
	PageSize int
}

// Client talks to the Open Food Facts API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	policy    registry.RetryPolicy
	log       *zap.Logger
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

// NewClient constructs a product registry client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy: registry.DefaultRetryPolicy(),
		log:    logger.WithModule("registry.off"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProduct retrieves a single product by barcode. A 200 response with
// status 0 is a definitive not-found answer.
func (c *Client) FetchProduct(ctx context.Context, barcode string) (Raw, error) {
	path := "/api/v2/product/" + url.PathEscape(barcode)
	return registry.Do(ctx, registryName, "fetch_product", c.policy, func(ctx context.Context) (Raw, error) {
		resp, err := decodeJSON[productResponse](c.get(ctx, path, nil))
		if err != nil {
			return Raw{}, err
		}
		if resp.Status != 1 {
			return Raw{}, registry.ErrNotFound
		}
		if resp.Product.Code == "" {
			resp.Product.Code = resp.Code
		}
		return resp.Product, nil
	})
}

// SearchProducts queries the legacy search endpoint, which remains the only
// upstream surface exposing combined free-text and tag filtering.
func (c *Client) SearchProducts(ctx context.Context, params SearchParams) ([]Raw, error) {
	query := url.Values{}
	query.Set("action", "process")
	query.Set("json", "1")
	query.Set("search_simple", "1")
	if params.Terms != "" {
		query.Set("search_terms", params.Terms)
	}

	tag := 0
	addTag := func(tagType, value string) {
		if value == "" {
			return
		}
		idx := strconv.Itoa(tag)
		query.Set("tagtype_"+idx, tagType)
		query.Set("tag_contains_"+idx, "contains")
		query.Set("tag_"+idx, value)
		tag++
	}
	addTag("categories", params.Category)
	addTag("labels", params.Label)

	query.Set("page", strconv.Itoa(max(params.Page, 1)))
	query.Set("page_size", strconv.Itoa(clampPageSize(params.PageSize)))

	resp, err := registry.Do(ctx, registryName, "search_products", c.policy, func(ctx context.Context) (searchResponse, error) {
		return decodeJSON[searchResponse](c.get(ctx, "/cgi/search.pl", query))
	})
	if err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Categories lists the upstream category taxonomy ordered by product count.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	resp, err := registry.Do(ctx, registryName, "categories", c.policy, func(ctx context.Context) (categoriesResponse, error) {
		return decodeJSON[categoriesResponse](c.get(ctx, "/categories.json", nil))
	})
	if err != nil {
		return nil, err
	}
	return resp.Tags, nil
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
	req.Header.Set("User-Agent", c.userAgent)
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
		return out, fmt.Errorf("off: decode response: %w", err)
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
