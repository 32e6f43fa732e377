package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/services"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/response"
)

// InsightHandler serves cross-registry insight endpoints.
type InsightHandler struct {
	svc *services.InsightService
}

// NewInsightHandler constructs an InsightHandler.
func NewInsightHandler(svc *services.InsightService) (*InsightHandler, error) {
	if svc == nil {
		return nil, apperrors.New("CONFIG", "insight service must be provided", http.StatusInternalServerError)
	}
	return &InsightHandler{svc: svc}, nil
}

// GET /api/v1/insights/district/:postcode
func (h *InsightHandler) District(c *gin.Context) {
	insight, err := h.svc.District(requestContext(c), c.Param("postcode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, insight)
}
