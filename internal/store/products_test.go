package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/database/testutil"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
)

func newProductStore(t *testing.T) *ProductStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	s, err := NewProductStore(db)
	require.NoError(t, err)
	require.NoError(t, db.Where("1 = 1").Delete(&models.Product{}).Error)
	return s
}

func seedProduct(barcode, name, categories, grade string, score *float64) models.Product {
	return models.Product{
		Barcode:       barcode,
		ProductName:   name,
		Categories:    categories,
		EcoscoreGrade: grade,
		EcoscoreScore: score,
		CachedAt:      time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestProductUpsertAndGet(t *testing.T) {
	s := newProductStore(t)
	ctx := context.Background()

	row := seedProduct("5000112637922", "Sparkling Orange", "Beverages", "b", floatPtr(71))
	require.NoError(t, s.Upsert(ctx, &row))

	got, found, err := s.GetByKey(ctx, "5000112637922")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Sparkling Orange", got.ProductName)
	require.Equal(t, "b", got.EcoscoreGrade)

	_, found, err = s.GetByKey(ctx, "0000000000000")
	require.NoError(t, err)
	require.False(t, found)
}

func TestProductUpsertIdempotent(t *testing.T) {
	s := newProductStore(t)
	ctx := context.Background()

	first := seedProduct("1", "Old", "Snacks", "d", floatPtr(30))
	require.NoError(t, s.Upsert(ctx, &first))

	second := seedProduct("1", "New", "Snacks", "b", floatPtr(70))
	require.NoError(t, s.Upsert(ctx, &second))

	got, found, err := s.GetByKey(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "New", got.ProductName)
	require.Equal(t, "b", got.EcoscoreGrade)

	var count int64
	require.NoError(t, s.db.Model(&models.Product{}).Where("barcode = ?", "1").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProductSearchFilters(t *testing.T) {
	s := newProductStore(t)
	ctx := context.Background()

	rows := []models.Product{
		seedProduct("1", "Oat Drink", "Plant-based milks", "a", floatPtr(85)),
		seedProduct("2", "Soy Drink", "Plant-based milks", "b", floatPtr(75)),
		seedProduct("3", "Cola", "Beverages, Sodas", "d", floatPtr(35)),
	}
	for i := range rows {
		require.NoError(t, s.Upsert(ctx, &rows[i]))
	}

	byTerms, err := s.Search(ctx, ProductFilter{Terms: "drink"}, 10)
	require.NoError(t, err)
	require.Len(t, byTerms, 2)

	byCategory, err := s.Search(ctx, ProductFilter{Category: "sodas"}, 10)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, "Cola", byCategory[0].ProductName)

	byGrade, err := s.Search(ctx, ProductFilter{EcoscoreGrade: "A"}, 10)
	require.NoError(t, err)
	require.Len(t, byGrade, 1)
}

func TestProductFilterRequiresUpstream(t *testing.T) {
	require.True(t, ProductFilter{Terms: "oat"}.RequiresUpstream())
	require.False(t, ProductFilter{Category: "sodas"}.RequiresUpstream())
	require.False(t, ProductFilter{Terms: "  "}.RequiresUpstream())
}

func TestTopEco(t *testing.T) {
	s := newProductStore(t)
	ctx := context.Background()

	rows := []models.Product{
		seedProduct("1", "Oat Drink", "Plant-based milks", "a", floatPtr(85)),
		seedProduct("2", "Soy Drink", "Plant-based milks", "b", floatPtr(75)),
		seedProduct("3", "No Score", "Plant-based milks", "", nil),
	}
	for i := range rows {
		require.NoError(t, s.Upsert(ctx, &rows[i]))
	}

	top, err := s.TopEco(ctx, "plant-based", 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Oat Drink", top[0].ProductName)
	require.Equal(t, "Soy Drink", top[1].ProductName)
}

func TestAggregateByCategory(t *testing.T) {
	s := newProductStore(t)
	ctx := context.Background()

	rows := []models.Product{
		seedProduct("1", "Oat Drink", "Plant-based milks", "a", floatPtr(80)),
		seedProduct("2", "Soy Drink", "Plant-based milks", "a", floatPtr(70)),
		seedProduct("3", "Cola", "Sodas", "d", floatPtr(30)),
	}
	for i := range rows {
		require.NoError(t, s.Upsert(ctx, &rows[i]))
	}

	stats, err := s.AggregateByCategory(ctx, "plant-based")
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalCount)
	require.EqualValues(t, 2, stats.GradeDistribution["a"])
	require.NotNil(t, stats.AverageEcoscore)
	require.InDelta(t, 75, *stats.AverageEcoscore, 1e-9)
}
