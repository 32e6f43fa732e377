package off

import "encoding/json"

// Raw mirrors the wire shape of a product from the Open Food Facts API.
// Nutriment keys use the upstream's hyphenated naming.
type Raw struct {
	Code                string          `json:"code"`
	ProductName         string          `json:"product_name"`
	GenericName         string          `json:"generic_name"`
	Brands              string          `json:"brands"`
	Categories          string          `json:"categories"`
	MainCategory        string          `json:"main_category"`
	EcoscoreGrade       string          `json:"ecoscore_grade"`
	EcoscoreScore       *float64        `json:"ecoscore_score"`
	EcoscoreData        json.RawMessage `json:"ecoscore_data"`
	NutriscoreGrade     string          `json:"nutriscore_grade"`
	NutriscoreScore     *float64        `json:"nutriscore_score"`
	Packaging           string          `json:"packaging"`
	ManufacturingPlaces string          `json:"manufacturing_places"`
	Origins             string          `json:"origins"`
	Labels              string          `json:"labels"`
	Quantity            string          `json:"quantity"`
	ServingSize         string          `json:"serving_size"`
	ImageURL            string          `json:"image_url"`
	ImageSmallURL       string          `json:"image_small_url"`
	IngredientsText     string          `json:"ingredients_text"`
	Completeness        *float64        `json:"completeness"`
	Nutriments          Nutriments      `json:"nutriments"`
}

// Nutriments carries per-100g nutrition values.
type Nutriments struct {
	EnergyKcal100g      *float64 `json:"energy-kcal_100g"`
	Fat100g             *float64 `json:"fat_100g"`
	SaturatedFat100g    *float64 `json:"saturated-fat_100g"`
	Carbohydrates100g   *float64 `json:"carbohydrates_100g"`
	Sugars100g          *float64 `json:"sugars_100g"`
	Fiber100g           *float64 `json:"fiber_100g"`
	Proteins100g        *float64 `json:"proteins_100g"`
	Salt100g            *float64 `json:"salt_100g"`
	CarbonFootprint100g *float64 `json:"carbon-footprint_100g"`
}

// productResponse is the envelope for single-product lookups. The upstream
// answers 200 with status 0 when the barcode is unknown.
type productResponse struct {
	Status        int    `json:"status"`
	StatusVerbose string `json:"status_verbose"`
	Code          string `json:"code"`
	Product       Raw    `json:"product"`
}

type searchResponse struct {
	Count    int   `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Products []Raw `json:"products"`
}

// Category is a product category with its tagged product count.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Products int    `json:"products"`
	URL      string `json:"url"`
}

type categoriesResponse struct {
	Count int        `json:"count"`
	Tags  []Category `json:"tags"`
}
