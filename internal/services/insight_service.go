package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
)

// DistrictInsight combines hygiene and eco-impact aggregates for one
// postcode district. It is derived entirely from the persistent tier, so it
// reflects only data the platform has already resolved.
type DistrictInsight struct {
	District         string                 `json:"district"`
	Hygiene          store.HygieneStats     `json:"hygiene"`
	SampleBusinesses []models.Establishment `json:"sample_businesses"`
	TopEcoProducts   []models.Product       `json:"top_eco_products"`
	Recommendations  []string               `json:"recommendations"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// InsightService builds cross-registry summaries from persisted data. It
// never calls upstream registries.
type InsightService struct {
	establishments *store.EstablishmentStore
	products       *store.ProductStore
	cache          cache.Store
	log            *zap.Logger
}

// NewInsightService constructs an InsightService. The cache store may be nil
// when caching is disabled.
func NewInsightService(est *store.EstablishmentStore, prod *store.ProductStore, cacheStore cache.Store) (*InsightService, error) {
	if est == nil {
		return nil, fmt.Errorf("insight service requires an establishment store")
	}
	if prod == nil {
		return nil, fmt.Errorf("insight service requires a product store")
	}
	return &InsightService{
		establishments: est,
		products:       prod,
		cache:          cacheStore,
		log:            logger.WithModule("services.insight"),
	}, nil
}

// District builds the insight for one postcode district, cached best-effort.
func (s *InsightService) District(ctx context.Context, district string) (DistrictInsight, error) {
	ctx = ensureContext(ctx)

	district = strings.ToUpper(strings.TrimSpace(district))
	if district == "" {
		return DistrictInsight{}, apperrors.NewBadRequest("postcode district is required")
	}

	key := cache.Key("insight", "district", map[string]any{"district": district})
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var insight DistrictInsight
			if json.Unmarshal(payload, &insight) == nil {
				return insight, nil
			}
		}
	}

	hygiene, err := s.establishments.AggregateByPostcode(ctx, district)
	if err != nil {
		return DistrictInsight{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	sample, err := s.establishments.Search(ctx, store.EstablishmentFilter{Postcode: district}, 5)
	if err != nil {
		return DistrictInsight{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	topEco, err := s.products.TopEco(ctx, "", 5)
	if err != nil {
		return DistrictInsight{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	insight := DistrictInsight{
		District:         district,
		Hygiene:          hygiene,
		SampleBusinesses: sample,
		TopEcoProducts:   topEco,
		Recommendations:  recommendations(hygiene),
		GeneratedAt:      time.Now().UTC(),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(insight); err == nil {
			if err := s.cache.Set(ctx, key, payload, statsCacheTTL); err != nil {
				s.log.Warn("insight cache write failed", zap.Error(err))
			}
		}
	}
	return insight, nil
}

// recommendations derives guidance strings from the hygiene aggregate.
func recommendations(stats store.HygieneStats) []string {
	var out []string

	if stats.TotalCount == 0 {
		return []string{"No inspection data held for this district yet; look up individual establishments to populate it."}
	}

	lowRated := stats.RatingDistribution["0"] + stats.RatingDistribution["1"] + stats.RatingDistribution["2"]
	if lowRated > 0 {
		out = append(out, fmt.Sprintf("%d establishments in this district are rated 2 or below; check ratings before visiting.", lowRated))
	}

	if stats.AverageHygieneScore != nil && *stats.AverageHygieneScore > 10 {
		out = append(out, "Average hygiene score in this district is worse than the national norm.")
	}

	if top := stats.RatingDistribution["5"]; top > 0 && stats.TotalCount > 0 {
		share := float64(top) / float64(stats.TotalCount) * 100
		out = append(out, fmt.Sprintf("%.0f%% of inspected establishments hold the top rating.", share))
	}

	if len(out) == 0 {
		out = append(out, "No notable hygiene signals for this district.")
	}
	return out
}
