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

// ProductFilter narrows a product search. Terms is a free-text query the
// persistent tier cannot service as well as the upstream search engine.
type ProductFilter struct {
	Terms         string
	Category      string
	EcoscoreGrade string
}

// Params projects the filter onto the map used for cache key derivation.
func (f ProductFilter) Params() map[string]any {
	return map[string]any{
		"terms":    f.Terms,
		"category": f.Category,
		"grade":    f.EcoscoreGrade,
	}
}

// RequiresUpstream reports whether the filter carries a free-text term that
// must be answered by the upstream search engine.
func (f ProductFilter) RequiresUpstream() bool {
	return strings.TrimSpace(f.Terms) != ""
}

// EcoStats summarises persisted products for one category slice.
type EcoStats struct {
	TotalCount        int64            `json:"total_count"`
	GradeDistribution map[string]int64 `json:"grade_distribution"`
	AverageEcoscore   *float64         `json:"average_ecoscore,omitempty"`
}

// ProductStore persists canonical product records.
type ProductStore struct {
	db *gorm.DB
}

// NewProductStore constructs a ProductStore.
func NewProductStore(db *gorm.DB) (*ProductStore, error) {
	if db == nil {
		return nil, errors.New("store: database handle is required")
	}
	return &ProductStore{db: db}, nil
}

// GetByKey loads a product by barcode.
func (s *ProductStore) GetByKey(ctx context.Context, barcode string) (models.Product, bool, error) {
	var row models.Product
	err := s.db.WithContext(ctx).Take(&row, "barcode = ?", barcode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, err
	}
	return row, true, nil
}

// Search lists products matching the filter. Free-text terms are matched
// against the product name only; richer matching belongs upstream.
func (s *ProductStore) Search(ctx context.Context, filter ProductFilter, limit int) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if terms := strings.TrimSpace(filter.Terms); terms != "" {
		query = query.Where("LOWER(product_name) LIKE ?", "%"+strings.ToLower(terms)+"%")
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(categories) LIKE ?", "%"+strings.ToLower(category)+"%")
	}
	if filter.EcoscoreGrade != "" {
		query = query.Where("ecoscore_grade = ?", strings.ToLower(filter.EcoscoreGrade))
	}

	var rows []models.Product
	err := query.Order("cached_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Upsert inserts or refreshes a row keyed by barcode.
func (s *ProductStore) Upsert(ctx context.Context, p *models.Product) error {
	if p == nil {
		return errors.New("store: nil product")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			UpdateAll: true,
		}).Create(p).Error
}

// TopEco lists the best-scoring products in a category, ordered by eco-score
// descending. Only the persistent tier is consulted.
func (s *ProductStore) TopEco(ctx context.Context, category string, limit int) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("ecoscore_score IS NOT NULL")

	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("LOWER(categories) LIKE ?", "%"+strings.ToLower(category)+"%")
	}

	var rows []models.Product
	err := query.Order("ecoscore_score DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// AggregateByCategory summarises eco-score distribution for persisted
// products, optionally narrowed to one category.
func (s *ProductStore) AggregateByCategory(ctx context.Context, category string) (EcoStats, error) {
	stats := EcoStats{GradeDistribution: map[string]int64{}}

	base := s.db.WithContext(ctx).Model(&models.Product{})
	if category = strings.TrimSpace(category); category != "" {
		base = base.Where("LOWER(categories) LIKE ?", "%"+strings.ToLower(category)+"%")
	}

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalCount).Error; err != nil {
		return stats, err
	}

	type gradeRow struct {
		EcoscoreGrade string
		Count         int64
	}
	var grades []gradeRow
	err := base.Session(&gorm.Session{}).
		Select("ecoscore_grade, COUNT(*) AS count").
		Where("ecoscore_grade <> ''").
		Group("ecoscore_grade").
		Scan(&grades).Error
	if err != nil {
		return stats, err
	}
	for _, row := range grades {
		stats.GradeDistribution[row.EcoscoreGrade] = row.Count
	}

	var avg sql.NullFloat64
	err = base.Session(&gorm.Session{}).
		Select("AVG(ecoscore_score)").
		Where("ecoscore_score IS NOT NULL").
		Scan(&avg).Error
	if err != nil {
		return stats, err
	}
	if avg.Valid {
		stats.AverageEcoscore = &avg.Float64
	}

	return stats, nil
}
