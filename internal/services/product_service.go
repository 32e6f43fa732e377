package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry/off"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/resolver"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
)

// MaxCompareBarcodes bounds the fan-out of a comparison request.
const MaxCompareBarcodes = 5

// productUpstream adapts the product registry client to the resolver's
// upstream port.
type productUpstream struct {
	client *off.Client
}

func (u productUpstream) FetchByKey(ctx context.Context, barcode string) (off.Raw, error) {
	return u.client.FetchProduct(ctx, barcode)
}

func (u productUpstream) Search(ctx context.Context, filter store.ProductFilter, limit int) ([]off.Raw, error) {
	return u.client.SearchProducts(ctx, off.SearchParams{
		Terms:    filter.Terms,
		Category: filter.Category,
		PageSize: limit,
	})
}

// NewProductResolver wires the product registry resolver chain. Free-text
// searches bypass the persistent tier in favour of upstream freshness.
func NewProductResolver(
	cfg resolver.Config,
	cacheStore cache.Store,
	st *store.ProductStore,
	client *off.Client,
) (*resolver.Resolver[string, store.ProductFilter, off.Raw, models.Product], error) {
	return resolver.New(cfg, cacheStore, st, productUpstream{client: client},
		resolver.Options[string, store.ProductFilter, off.Raw, models.Product]{
			Transform:    off.Transform,
			BypassStore:  store.ProductFilter.RequiresUpstream,
			FilterParams: store.ProductFilter.Params,
		})
}

// ProductComparison reports the outcome of a multi-barcode comparison.
// Barcodes that could not be resolved are listed rather than failing the
// whole request.
type ProductComparison struct {
	Products    []models.Product `json:"products"`
	Missing     []string         `json:"missing,omitempty"`
	BestBarcode string           `json:"best_ecoscore_barcode,omitempty"`
}

// ProductService exposes product lookups, searches and aggregates to the
// HTTP layer.
type ProductService struct {
	resolver *resolver.Resolver[string, store.ProductFilter, off.Raw, models.Product]
	store    *store.ProductStore
	client   *off.Client
	cache    cache.Store
	log      *zap.Logger
}

// NewProductService constructs a ProductService. The cache store may be nil
// when caching is disabled.
func NewProductService(
	r *resolver.Resolver[string, store.ProductFilter, off.Raw, models.Product],
	st *store.ProductStore,
	client *off.Client,
	cacheStore cache.Store,
) (*ProductService, error) {
	if r == nil {
		return nil, fmt.Errorf("product service requires a resolver")
	}
	if st == nil {
		return nil, fmt.Errorf("product service requires a store")
	}
	if client == nil {
		return nil, fmt.Errorf("product service requires a registry client")
	}
	return &ProductService{
		resolver: r,
		store:    st,
		client:   client,
		cache:    cacheStore,
		log:      logger.WithModule("services.product"),
	}, nil
}

// Get resolves one product by barcode.
func (s *ProductService) Get(ctx context.Context, barcode string, forceRefresh bool) (models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return models.Product{}, apperrors.NewBadRequest("barcode is required")
	}

	entity, found, err := s.resolver.GetByKey(ensureContext(ctx), barcode, forceRefresh)
	if err != nil {
		return models.Product{}, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	if !found {
		return models.Product{}, apperrors.New("PRODUCT_NOT_FOUND", "product not found", 404)
	}
	return entity, nil
}

// Search lists products matching the filter.
func (s *ProductService) Search(ctx context.Context, filter store.ProductFilter, limit int, forceRefresh bool) ([]models.Product, error) {
	return s.resolver.Search(ensureContext(ctx), filter, limit, forceRefresh)
}

// Compare resolves up to MaxCompareBarcodes products and ranks them by
// eco-score. A barcode that is absent or whose registry is down is reported
// in Missing instead of failing the comparison.
func (s *ProductService) Compare(ctx context.Context, barcodes []string) (ProductComparison, error) {
	ctx = ensureContext(ctx)

	cleaned := make([]string, 0, len(barcodes))
	for _, barcode := range barcodes {
		if barcode = strings.TrimSpace(barcode); barcode != "" {
			cleaned = append(cleaned, barcode)
		}
	}
	if len(cleaned) < 2 {
		return ProductComparison{}, apperrors.NewBadRequest("at least two barcodes are required")
	}
	if len(cleaned) > MaxCompareBarcodes {
		return ProductComparison{}, apperrors.NewBadRequest(
			fmt.Sprintf("at most %d barcodes can be compared", MaxCompareBarcodes))
	}

	comparison := ProductComparison{Products: make([]models.Product, 0, len(cleaned))}
	var bestScore float64

	for _, barcode := range cleaned {
		product, found, err := s.resolver.GetByKey(ctx, barcode, false)
		if err != nil {
			s.log.Warn("compare lookup failed", zap.String("barcode", barcode), zap.Error(err))
			comparison.Missing = append(comparison.Missing, barcode)
			continue
		}
		if !found {
			comparison.Missing = append(comparison.Missing, barcode)
			continue
		}

		comparison.Products = append(comparison.Products, product)
		if product.EcoscoreScore != nil && (comparison.BestBarcode == "" || *product.EcoscoreScore > bestScore) {
			bestScore = *product.EcoscoreScore
			comparison.BestBarcode = product.Barcode
		}
	}

	return comparison, nil
}

// TopEco lists the best-scoring products in a category from the persistent
// tier only.
func (s *ProductService) TopEco(ctx context.Context, category string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	products, err := s.store.TopEco(ensureContext(ctx), category, limit)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return products, nil
}

// CategoryStatistics aggregates eco-score data for a category from the
// persistent tier only. Results are cached best-effort.
func (s *ProductService) CategoryStatistics(ctx context.Context, category string) (store.EcoStats, error) {
	ctx = ensureContext(ctx)

	category = strings.TrimSpace(category)
	if category == "" {
		return store.EcoStats{}, apperrors.NewBadRequest("category is required")
	}

	key := cache.Key("off", "stats", map[string]any{"category": strings.ToLower(category)})
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var stats store.EcoStats
			if json.Unmarshal(payload, &stats) == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.store.AggregateByCategory(ctx, category)
	if err != nil {
		return store.EcoStats{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, payload, statsCacheTTL); err != nil {
				s.log.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Categories lists the product registry's category taxonomy. Reference data
// changes rarely, so responses are cached under a long TTL.
func (s *ProductService) Categories(ctx context.Context) ([]off.Category, error) {
	ctx = ensureContext(ctx)

	key := cache.Key("off", "categories", nil)
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []off.Category
			if json.Unmarshal(payload, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.client.Categories(ctx)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, key, payload, referenceCacheTTL); err != nil {
				s.log.Warn("reference cache write failed", zap.Error(err))
			}
		}
	}
	return out, nil
}
