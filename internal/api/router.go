package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/handlers"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/middleware"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/services"
)

// Deps carries the constructed services and shared infrastructure the router
// wires into handlers.
type Deps struct {
	DB           *gorm.DB
	Cache        cache.Store // nil when caching is disabled
	CacheBackend string

	Establishments *services.EstablishmentService
	Products       *services.ProductService
	Insights       *services.InsightService

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Establishments == nil || deps.Products == nil || deps.Insights == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	if deps.RateLimitMax > 0 {
		rateStore := middleware.NewCacheRateStore(deps.Cache)
		if rateStore == nil {
			rateStore = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(rateStore, deps.RateLimitMax, deps.RateLimitWindow))
	}

	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	establishmentHandler, err := handlers.NewEstablishmentHandler(deps.Establishments)
	if err != nil {
		return nil, err
	}
	productHandler, err := handlers.NewProductHandler(deps.Products)
	if err != nil {
		return nil, err
	}
	insightHandler, err := handlers.NewInsightHandler(deps.Insights)
	if err != nil {
		return nil, err
	}
	adminHandler, err := handlers.NewAdminHandler(deps.Cache, deps.DB, deps.CacheBackend)
	if err != nil {
		return nil, err
	}

	v1 := r.Group("/api/v1")

	establishments := v1.Group("/establishments")
	{
		establishments.GET("/search", establishmentHandler.Search)
		establishments.GET("/nearby", establishmentHandler.Nearby)
		establishments.GET("/authorities", establishmentHandler.Authorities)
		establishments.GET("/business-types", establishmentHandler.BusinessTypes)
		establishments.GET("/statistics/:postcode", establishmentHandler.Statistics)
		establishments.GET("/:fhrsid", establishmentHandler.Get)
	}

	products := v1.Group("/products")
	{
		products.GET("/search", productHandler.Search)
		products.GET("/compare", productHandler.Compare)
		products.GET("/categories", productHandler.Categories)
		products.GET("/categories/:category/top-eco", productHandler.TopEco)
		products.GET("/categories/:category/statistics", productHandler.CategoryStatistics)
		products.GET("/:barcode", productHandler.Get)
	}

	v1.GET("/insights/district/:postcode", insightHandler.District)

	admin := v1.Group("/admin")
	{
		admin.POST("/cache/clear", adminHandler.ClearCache)
		admin.GET("/cache/stats", adminHandler.CacheStats)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
