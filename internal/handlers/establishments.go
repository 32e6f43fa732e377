package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/services"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/response"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/validator"
)

// EstablishmentHandler serves the hygiene registry endpoints.
type EstablishmentHandler struct {
	svc *services.EstablishmentService
}

// NewEstablishmentHandler constructs an EstablishmentHandler.
func NewEstablishmentHandler(svc *services.EstablishmentService) (*EstablishmentHandler, error) {
	if svc == nil {
		return nil, apperrors.New("CONFIG", "establishment service must be provided", http.StatusInternalServerError)
	}
	return &EstablishmentHandler{svc: svc}, nil
}

// GET /api/v1/establishments/:fhrsid
func (h *EstablishmentHandler) Get(c *gin.Context) {
	fhrsid, err := strconv.ParseInt(c.Param("fhrsid"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("fhrsid must be a positive integer"))
		return
	}

	forceRefresh := boolQuery(c, "force_refresh")
	entity, err := h.svc.Get(requestContext(c), fhrsid, forceRefresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entity, &response.Meta{Refresh: forceRefresh})
}

type establishmentSearchQuery struct {
	Name      string `form:"name"`
	Postcode  string `form:"postcode"`
	Rating    string `form:"rating" validate:"omitempty,max=20"`
	Authority string `form:"authority"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// GET /api/v1/establishments/search
func (h *EstablishmentHandler) Search(c *gin.Context) {
	var query establishmentSearchQuery
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

	results, err := h.svc.Search(requestContext(c), store.EstablishmentFilter{
		Name:        query.Name,
		Postcode:    query.Postcode,
		RatingValue: query.Rating,
		Authority:   query.Authority,
	}, limit, boolQuery(c, "force_refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, results, &response.Meta{Count: len(results), Limit: limit})
}

type nearbyQuery struct {
	Latitude  float64 `form:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `form:"longitude" validate:"min=-180,max=180"`
	MaxMiles  int     `form:"max_miles" validate:"omitempty,min=1,max=50"`
}

// GET /api/v1/establishments/nearby
func (h *EstablishmentHandler) Nearby(c *gin.Context) {
	var query nearbyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}
	if err := validator.ValidateStruct(query); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	maxMiles := query.MaxMiles
	if maxMiles <= 0 {
		maxMiles = 2
	}
	limit := limitQuery(c, 20)

	results, err := h.svc.Nearby(requestContext(c), query.Latitude, query.Longitude, maxMiles, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, results, &response.Meta{Count: len(results), Limit: limit})
}

// GET /api/v1/establishments/statistics/:postcode
func (h *EstablishmentHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.PostcodeStatistics(requestContext(c), c.Param("postcode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /api/v1/establishments/authorities
func (h *EstablishmentHandler) Authorities(c *gin.Context) {
	authorities, err := h.svc.Authorities(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, authorities, &response.Meta{Count: len(authorities)})
}

// GET /api/v1/establishments/business-types
func (h *EstablishmentHandler) BusinessTypes(c *gin.Context) {
	types, err := h.svc.BusinessTypes(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, types, &response.Meta{Count: len(types)})
}
