package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

type CacheController struct {
	gate service.IdentityService
}

func NewCacheController(gate service.IdentityService) *CacheController {
	return &CacheController{gate: gate}
}

// Empty drops the caller's cached identity so the next request re-reads
// roles from the identity provider.
func (ctrl *CacheController) Empty(c *gin.Context) {
	if err := ctrl.gate.Forget(c.Request.Context(), middleware.GetAuthorization(c)); err != nil {
		respondServiceError(c, err, "empty identity cache")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Identity cache entry dropped", map[string]interface{}{
		"user_app_id": middleware.GetIdentity(c).UserAppID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
