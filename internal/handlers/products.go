package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/services"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/response"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/validator"
)

// ProductHandler serves the product registry endpoints.
type ProductHandler struct {
	svc *services.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(svc *services.ProductService) (*ProductHandler, error) {
	if svc == nil {
		return nil, apperrors.New("CONFIG", "product service must be provided", http.StatusInternalServerError)
	}
	return &ProductHandler{svc: svc}, nil
}

// GET /api/v1/products/:barcode
func (h *ProductHandler) Get(c *gin.Context) {
	forceRefresh := boolQuery(c, "force_refresh")
	entity, err := h.svc.Get(requestContext(c), c.Param("barcode"), forceRefresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entity, &response.Meta{Refresh: forceRefresh})
}

type productSearchQuery struct {
	Terms    string `form:"terms" validate:"omitempty,max=200"`
	Category string `form:"category" validate:"omitempty,max=100"`
	Grade    string `form:"grade" validate:"omitempty,oneof=a b c d e A B C D E"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// GET /api/v1/products/search
func (h *ProductHandler) Search(c *gin.Context) {
	var query productSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}
	if err := validator.ValidateStruct(query); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	results, err := h.svc.Search(requestContext(c), store.ProductFilter{
		Terms:         query.Terms,
		Category:      query.Category,
		EcoscoreGrade: strings.ToLower(query.Grade),
	}, limit, boolQuery(c, "force_refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, results, &response.Meta{Count: len(results), Limit: limit})
}

// GET /api/v1/products/compare?barcodes=a,b,c
func (h *ProductHandler) Compare(c *gin.Context) {
	raw := strings.Split(c.Query("barcodes"), ",")

	comparison, err := h.svc.Compare(requestContext(c), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, comparison)
}

// GET /api/v1/products/categories
func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.svc.Categories(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, categories, &response.Meta{Count: len(categories)})
}

// GET /api/v1/products/categories/:category/top-eco
func (h *ProductHandler) TopEco(c *gin.Context) {
	limit := limitQuery(c, 10)

	results, err := h.svc.TopEco(requestContext(c), c.Param("category"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, results, &response.Meta{Count: len(results), Limit: limit})
}

// GET /api/v1/products/categories/:category/statistics
func (h *ProductHandler) CategoryStatistics(c *gin.Context) {
	stats, err := h.svc.CategoryStatistics(requestContext(c), c.Param("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
