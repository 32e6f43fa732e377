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
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry/fsa"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/resolver"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
)

const (
	statsCacheTTL     = 6 * time.Hour
	referenceCacheTTL = 12 * time.Hour
)

// establishmentUpstream adapts the hygiene registry client to the resolver's
// upstream port.
type establishmentUpstream struct {
	client *fsa.Client
}

func (u establishmentUpstream) FetchByKey(ctx context.Context, fhrsid int64) (fsa.Raw, error) {
	return u.client.FetchEstablishment(ctx, fhrsid)
}

func (u establishmentUpstream) Search(ctx context.Context, filter store.EstablishmentFilter, limit int) ([]fsa.Raw, error) {
	return u.client.SearchEstablishments(ctx, fsa.SearchParams{
		Name:      filter.Name,
		Address:   filter.Postcode,
		RatingKey: ratingKeyFor(filter.RatingValue),
		PageSize:  limit,
	})
}

// ratingKeyFor translates a plain rating value into the registry's rating
// key dialect, e.g. "5" becomes "fhrs_5_en-gb".
func ratingKeyFor(rating string) string {
	rating = strings.ToLower(strings.TrimSpace(rating))
	if rating == "" {
		return ""
	}
	if strings.HasPrefix(rating, "fhrs_") {
		return rating
	}
	return "fhrs_" + rating + "_en-gb"
}

// NewEstablishmentResolver wires the hygiene registry resolver chain.
func NewEstablishmentResolver(
	cfg resolver.Config,
	cacheStore cache.Store,
	st *store.EstablishmentStore,
	client *fsa.Client,
) (*resolver.Resolver[int64, store.EstablishmentFilter, fsa.Raw, models.Establishment], error) {
	return resolver.New(cfg, cacheStore, st, establishmentUpstream{client: client},
		resolver.Options[int64, store.EstablishmentFilter, fsa.Raw, models.Establishment]{
			Transform:    fsa.Transform,
			FilterParams: store.EstablishmentFilter.Params,
		})
}

// EstablishmentService exposes establishment lookups, searches and
// aggregates to the HTTP layer. Errors returned by its methods are already
// mapped for the API boundary.
type EstablishmentService struct {
	resolver *resolver.Resolver[int64, store.EstablishmentFilter, fsa.Raw, models.Establishment]
	store    *store.EstablishmentStore
	client   *fsa.Client
	cache    cache.Store
	log      *zap.Logger
}

// NewEstablishmentService constructs an EstablishmentService. The cache
// store may be nil when caching is disabled.
func NewEstablishmentService(
	r *resolver.Resolver[int64, store.EstablishmentFilter, fsa.Raw, models.Establishment],
	st *store.EstablishmentStore,
	client *fsa.Client,
	cacheStore cache.Store,
) (*EstablishmentService, error) {
	if r == nil {
		return nil, fmt.Errorf("establishment service requires a resolver")
	}
	if st == nil {
		return nil, fmt.Errorf("establishment service requires a store")
	}
	if client == nil {
		return nil, fmt.Errorf("establishment service requires a registry client")
	}
	return &EstablishmentService{
		resolver: r,
		store:    st,
		client:   client,
		cache:    cacheStore,
		log:      logger.WithModule("services.establishment"),
	}, nil
}

// Get resolves one establishment by FHRSID.
func (s *EstablishmentService) Get(ctx context.Context, fhrsid int64, forceRefresh bool) (models.Establishment, error) {
	if fhrsid <= 0 {
		return models.Establishment{}, apperrors.NewBadRequest("fhrsid must be a positive integer")
	}

	entity, found, err := s.resolver.GetByKey(ensureContext(ctx), fhrsid, forceRefresh)
	if err != nil {
		return models.Establishment{}, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	if !found {
		return models.Establishment{}, apperrors.New("ESTABLISHMENT_NOT_FOUND", "establishment not found", 404)
	}
	return entity, nil
}

// Search lists establishments matching the filter.
func (s *EstablishmentService) Search(ctx context.Context, filter store.EstablishmentFilter, limit int, forceRefresh bool) ([]models.Establishment, error) {
	return s.resolver.Search(ensureContext(ctx), filter, limit, forceRefresh)
}

// Nearby searches establishments around a coordinate. The persistent store
// has no spatial index, so this path always consults upstream; results are
// still upserted so later point lookups hit the store.
func (s *EstablishmentService) Nearby(ctx context.Context, lat, lon float64, maxMiles, limit int) ([]models.Establishment, error) {
	ctx = ensureContext(ctx)

	raws, err := s.client.NearbyEstablishments(ctx, fsa.NearbyParams{
		Latitude:  lat,
		Longitude: lon,
		MaxMiles:  maxMiles,
		PageSize:  limit,
	})
	if err != nil {
		s.log.Warn("nearby search failed, degrading to empty result", zap.Error(err))
		return []models.Establishment{}, nil
	}

	results := fsa.TransformAll(raws)
	for i := range results {
		if err := s.store.Upsert(ctx, &results[i]); err != nil {
			s.log.Warn("persist failed for nearby result", zap.Error(err))
		}
	}
	return results, nil
}

// PostcodeStatistics aggregates hygiene data for a postcode district from
// the persistent tier only. Results are cached best-effort.
func (s *EstablishmentService) PostcodeStatistics(ctx context.Context, district string) (store.HygieneStats, error) {
	ctx = ensureContext(ctx)

	district = strings.TrimSpace(district)
	if district == "" {
		return store.HygieneStats{}, apperrors.NewBadRequest("postcode district is required")
	}

	key := cache.Key("fsa", "stats", map[string]any{"district": strings.ToUpper(district)})
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var stats store.HygieneStats
			if json.Unmarshal(payload, &stats) == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.store.AggregateByPostcode(ctx, district)
	if err != nil {
		return store.HygieneStats{}, apperrors.ErrInternalServer.WithInternal(err)
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

// Authorities lists the local authorities known to the hygiene registry.
// Reference data changes rarely, so responses are cached under a long TTL.
func (s *EstablishmentService) Authorities(ctx context.Context) ([]fsa.Authority, error) {
	ctx = ensureContext(ctx)

	key := cache.Key("fsa", "authorities", nil)
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []fsa.Authority
			if json.Unmarshal(payload, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.client.Authorities(ctx)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	s.cacheReference(ctx, key, out)
	return out, nil
}

// BusinessTypes lists the business type taxonomy of the hygiene registry.
func (s *EstablishmentService) BusinessTypes(ctx context.Context) ([]fsa.BusinessType, error) {
	ctx = ensureContext(ctx)

	key := cache.Key("fsa", "business_types", nil)
	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []fsa.BusinessType
			if json.Unmarshal(payload, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.client.BusinessTypes(ctx)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	s.cacheReference(ctx, key, out)
	return out, nil
}

func (s *EstablishmentService) cacheReference(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, referenceCacheTTL); err != nil {
		s.log.Warn("reference cache write failed", zap.Error(err))
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
