package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

type RegionController struct {
	regionService service.RegionService
}

func NewRegionController(regionService service.RegionService) *RegionController {
	return &RegionController{regionService: regionService}
}

// RegionRequest upserts a region. An empty id creates one.
type RegionRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" binding:"required"`
	Manager string `json:"manager"`
}

func (ctrl *RegionController) List(c *gin.Context) {
	regions, err := ctrl.regionService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list regions")
		return
	}
	if regions == nil {
		regions = []model.Region{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"regions": regions,
		"count":   len(regions),
	})
}

func (ctrl *RegionController) Save(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegionRequest
	if !bindJSON(c, &req) {
		return
	}

	region := &model.Region{
		ID:      req.ID,
		Name:    req.Name,
		Manager: req.Manager,
	}
	if err := ctrl.regionService.Save(c.Request.Context(), middleware.GetIdentity(c), region); err != nil {
		respondServiceError(c, err, "save region")
		return
	}

	log.Info("Region upserted", map[string]interface{}{
		"region_id": region.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"region": region,
	})
}

func (ctrl *RegionController) Delete(c *gin.Context) {
	regionID := c.Param("regionId")
	if err := ctrl.regionService.Delete(c.Request.Context(), middleware.GetIdentity(c), regionID); err != nil {
		respondServiceError(c, err, "delete region")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Region deleted", map[string]interface{}{
		"region_id": regionID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *RegionController) ManagedBy(c *gin.Context) {
	regions, err := ctrl.regionService.ManagedBy(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		respondServiceError(c, err, "list managed regions")
		return
	}
	if regions == nil {
		regions = []model.Region{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"regions": regions,
	})
}

func (ctrl *RegionController) Filters(c *gin.Context) {
	filters, err := ctrl.regionService.Filters(c.Request.Context(), middleware.GetIdentity(c), c.Param("regionId"))
	if err != nil {
		respondServiceError(c, err, "fetch region filters")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"filters": filters,
	})
}
