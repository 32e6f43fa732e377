package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
)

// EstablishmentFilter narrows an establishment search. All fields are
// optional and combine conjunctively.
type EstablishmentFilter struct {
	Name        string
	Postcode    string
	RatingValue string
	Authority   string
}

// Params projects the filter onto the map used for cache key derivation.
func (f EstablishmentFilter) Params() map[string]any {
	return map[string]any{
		"name":      f.Name,
		"postcode":  f.Postcode,
		"rating":    f.RatingValue,
		"authority": f.Authority,
	}
}

// HygieneStats summarises persisted establishments for one postcode area.
type HygieneStats struct {
	TotalCount          int64            `json:"total_count"`
	RatingDistribution  map[string]int64 `json:"rating_distribution"`
	AverageHygieneScore *float64         `json:"average_hygiene_score,omitempty"`
}

// EstablishmentStore persists canonical establishment records.
type EstablishmentStore struct {
	db *gorm.DB
}

// NewEstablishmentStore constructs an EstablishmentStore.
func NewEstablishmentStore(db *gorm.DB) (*EstablishmentStore, error) {
	if db == nil {
		return nil, errors.New("store: database handle is required")
	}
	return &EstablishmentStore{db: db}, nil
}

// GetByKey loads an establishment by FHRSID.
func (s *EstablishmentStore) GetByKey(ctx context.Context, fhrsid int64) (models.Establishment, bool, error) {
	var row models.Establishment
	err := s.db.WithContext(ctx).Take(&row, "fhrs_id = ?", fhrsid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Establishment{}, false, nil
	}
	if err != nil {
		return models.Establishment{}, false, err
	}
	return row, true, nil
}

// Search lists establishments matching the filter, most recently refreshed
// first.
func (s *EstablishmentStore) Search(ctx context.Context, filter EstablishmentFilter, limit int) ([]models.Establishment, error) {
	query := s.db.WithContext(ctx).Model(&models.Establishment{})

	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER(business_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if postcode := strings.TrimSpace(filter.Postcode); postcode != "" {
		query = query.Where("LOWER(postcode) LIKE ?", strings.ToLower(postcode)+"%")
	}
	if filter.RatingValue != "" {
		query = query.Where("rating_value = ?", filter.RatingValue)
	}
	if authority := strings.TrimSpace(filter.Authority); authority != "" {
		query = query.Where("LOWER(local_authority_name) = ?", strings.ToLower(authority))
	}

	var rows []models.Establishment
	err := query.Order("cached_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Upsert inserts or refreshes a row keyed by FHRSID. Concurrent writes for
// the same key converge on a single row instead of raising a duplicate-key
// error.
func (s *EstablishmentStore) Upsert(ctx context.Context, e *models.Establishment) error {
	if e == nil {
		return errors.New("store: nil establishment")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fhrs_id"}},
			UpdateAll: true,
		}).Create(e).Error
}

// AggregateByPostcode summarises rating distribution and average hygiene
// score for establishments whose postcode starts with the given district.
// Only the persistent tier is consulted.
func (s *EstablishmentStore) AggregateByPostcode(ctx context.Context, district string) (HygieneStats, error) {
	stats := HygieneStats{RatingDistribution: map[string]int64{}}
	prefix := strings.ToLower(strings.TrimSpace(district)) + "%"

	base := s.db.WithContext(ctx).Model(&models.Establishment{}).
		Where("LOWER(postcode) LIKE ?", prefix)

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalCount).Error; err != nil {
		return stats, err
	}

	type ratingRow struct {
		RatingValue string
		Count       int64
	}
	var ratings []ratingRow
	err := base.Session(&gorm.Session{}).
		Select("rating_value, COUNT(*) AS count").
		Where("rating_value <> ''").
		Group("rating_value").
		Scan(&ratings).Error
	if err != nil {
		return stats, err
	}
	for _, row := range ratings {
		stats.RatingDistribution[row.RatingValue] = row.Count
	}

	var avg sql.NullFloat64
	err = base.Session(&gorm.Session{}).
		Select("AVG(hygiene_score)").
		Where("hygiene_score IS NOT NULL").
		Scan(&avg).Error
	if err != nil {
		return stats, err
	}
	if avg.Valid {
		stats.AverageHygieneScore = &avg.Float64
	}

	return stats, nil
}
