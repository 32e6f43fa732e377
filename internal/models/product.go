package models

import (
	"time"

	"gorm.io/datatypes"
)

// Product is the canonical record for an Open Food Facts product, keyed by
// its barcode. Like establishments, products are refreshed in place and never
// deleted by the resolver.
type Product struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"-"`

	Barcode string `gorm:"size:32;uniqueIndex;not null" json:"barcode"`

	ProductName  string `gorm:"size:255;index" json:"product_name,omitempty"`
	GenericName  string `gorm:"size:255" json:"generic_name,omitempty"`
	Brands       string `gorm:"size:255" json:"brands,omitempty"`
	Categories   string `gorm:"type:text" json:"categories,omitempty"`
	MainCategory string `gorm:"size:255" json:"main_category,omitempty"`

	EcoscoreGrade string         `gorm:"size:2;index" json:"ecoscore_grade,omitempty"`
	EcoscoreScore *float64       `gorm:"index" json:"ecoscore_score,omitempty"`
	EcoscoreData  datatypes.JSON `json:"ecoscore_data,omitempty"`

	NutriscoreGrade string   `gorm:"size:2" json:"nutriscore_grade,omitempty"`
	NutriscoreScore *float64 `json:"nutriscore_score,omitempty"`

	CarbonFootprint100g *float64 `json:"carbon_footprint_100g,omitempty"`
	Packaging           string   `gorm:"size:255" json:"packaging,omitempty"`
	ManufacturingPlaces string   `gorm:"size:255" json:"manufacturing_places,omitempty"`
	Origins             string   `gorm:"size:255" json:"origins,omitempty"`
	Labels              string   `gorm:"type:text" json:"labels,omitempty"`
	Quantity            string   `gorm:"size:100" json:"quantity,omitempty"`
	ServingSize         string   `gorm:"size:100" json:"serving_size,omitempty"`

	ImageURL      string `gorm:"type:text" json:"image_url,omitempty"`
	ImageSmallURL string `gorm:"type:text" json:"image_small_url,omitempty"`

	Energy100g        *float64 `json:"energy_100g,omitempty"`
	Fat100g           *float64 `json:"fat_100g,omitempty"`
	SaturatedFat100g  *float64 `json:"saturated_fat_100g,omitempty"`
	Carbohydrates100g *float64 `json:"carbohydrates_100g,omitempty"`
	Sugars100g        *float64 `json:"sugars_100g,omitempty"`
	Fiber100g         *float64 `json:"fiber_100g,omitempty"`
	Proteins100g      *float64 `json:"proteins_100g,omitempty"`
	Salt100g          *float64 `json:"salt_100g,omitempty"`

	IngredientsText string   `gorm:"type:text" json:"ingredients_text,omitempty"`
	Completeness    *float64 `json:"completeness,omitempty"`

	CachedAt  time.Time `gorm:"not null;index" json:"cached_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NaturalKey returns the product barcode.
func (p Product) NaturalKey() string { return p.Barcode }

// FetchedAt reports when the record was last produced by an upstream fetch.
func (p Product) FetchedAt() time.Time { return p.CachedAt }

// Stale reports whether the record is older than the staleness threshold.
func (p Product) Stale(threshold time.Duration) bool {
	if p.CachedAt.IsZero() {
		return true
	}
	return time.Since(p.CachedAt) > threshold
}

// EcoFriendly reports whether the product carries one of the two best
// eco-score grades.
func (p Product) EcoFriendly() bool {
	return p.EcoscoreGrade == "a" || p.EcoscoreGrade == "b"
}
