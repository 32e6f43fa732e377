package off

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
)

// Transform converts a raw registry payload into the canonical model. The
// fetch timestamp is stamped here so that staleness is measured from the
// moment the upstream answered.
func Transform(raw Raw) models.Product {
	now := time.Now().UTC()
	return models.Product{
		Barcode:             strings.TrimSpace(raw.Code),
		ProductName:         strings.TrimSpace(raw.ProductName),
		GenericName:         strings.TrimSpace(raw.GenericName),
		Brands:              raw.Brands,
		Categories:          raw.Categories,
		MainCategory:        raw.MainCategory,
		EcoscoreGrade:       normaliseGrade(raw.EcoscoreGrade),
		EcoscoreScore:       raw.EcoscoreScore,
		EcoscoreData:        datatypes.JSON(raw.EcoscoreData),
		NutriscoreGrade:     normaliseGrade(raw.NutriscoreGrade),
		NutriscoreScore:     raw.NutriscoreScore,
		CarbonFootprint100g: raw.Nutriments.CarbonFootprint100g,
		Packaging:           raw.Packaging,
		ManufacturingPlaces: raw.ManufacturingPlaces,
		Origins:             raw.Origins,
		Labels:              raw.Labels,
		Quantity:            raw.Quantity,
		ServingSize:         raw.ServingSize,
		ImageURL:            raw.ImageURL,
		ImageSmallURL:       raw.ImageSmallURL,
		Energy100g:          raw.Nutriments.EnergyKcal100g,
		Fat100g:             raw.Nutriments.Fat100g,
		SaturatedFat100g:    raw.Nutriments.SaturatedFat100g,
		Carbohydrates100g:   raw.Nutriments.Carbohydrates100g,
		Sugars100g:          raw.Nutriments.Sugars100g,
		Fiber100g:           raw.Nutriments.Fiber100g,
		Proteins100g:        raw.Nutriments.Proteins100g,
		Salt100g:            raw.Nutriments.Salt100g,
		IngredientsText:     raw.IngredientsText,
		Completeness:        raw.Completeness,
		CachedAt:            now,
		UpdatedAt:           now,
	}
}

// TransformAll converts a slice of raw payloads, skipping entries without a
// barcode.
func TransformAll(raws []Raw) []models.Product {
	out := make([]models.Product, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw.Code) == "" {
			continue
		}
		out = append(out, Transform(raw))
	}
	return out
}

// Grades such as "unknown" or "not-applicable" are treated as absent.
func normaliseGrade(grade string) string {
	grade = strings.ToLower(strings.TrimSpace(grade))
	if len(grade) != 1 || grade < "a" || grade > "e" {
		return ""
	}
	return grade
}
