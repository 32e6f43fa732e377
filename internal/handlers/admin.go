package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
	apperrors "github.com/Katy0987/uk-food-nutrition-data-platform/pkg/errors"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/response"
)

// AdminHandler serves cache administration endpoints. Clearing only touches
// the volatile tier; entity tables are never flushed from here.
type AdminHandler struct {
	cache   cache.Store
	db      *gorm.DB
	backend string
}

// NewAdminHandler constructs an AdminHandler. The cache store may be nil
// when caching is disabled.
func NewAdminHandler(cacheStore cache.Store, db *gorm.DB, backend string) (*AdminHandler, error) {
	if db == nil {
		return nil, apperrors.New("CONFIG", "database handle must be provided", http.StatusInternalServerError)
	}
	return &AdminHandler{cache: cacheStore, db: db, backend: backend}, nil
}

// POST /api/v1/admin/cache/clear
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if h.cache == nil {
		response.Success(c, http.StatusOK, gin.H{"flushed": false, "reason": "caching disabled"})
		return
	}

	if err := h.cache.Flush(requestContext(c)); err != nil {
		response.Error(c, apperrors.Wrap(err, "cache flush failed"))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"flushed": true, "backend": h.backend})
}

// GET /api/v1/admin/cache/stats
func (h *AdminHandler) CacheStats(c *gin.Context) {
	ctx := requestContext(c)

	var total, expired int64
	if err := h.db.WithContext(ctx).Model(&models.CacheEntry{}).Count(&total).Error; err != nil {
		response.Error(c, apperrors.Wrap(err, "cache stats query failed"))
		return
	}
	err := h.db.WithContext(ctx).Model(&models.CacheEntry{}).
		Where("expires_at > ? AND expires_at < ?", time.Time{}, time.Now()).
		Count(&expired).Error
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "cache stats query failed"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"backend":          h.backend,
		"enabled":          h.cache != nil,
		"database_entries": total,
		"expired_entries":  expired,
	})
}
