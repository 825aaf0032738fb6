package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

type BusinessController struct {
	businessService service.BusinessService
	exportService   service.ExportService
}

func NewBusinessController(businessService service.BusinessService, exportService service.ExportService) *BusinessController {
	return &BusinessController{
		businessService: businessService,
		exportService:   exportService,
	}
}

func (ctrl *BusinessController) ListByRegion(c *gin.Context) {
	result, err := ctrl.businessService.ListByRegion(c.Request.Context(), middleware.GetIdentity(c), c.Param("regionId"))
	if err != nil {
		respondServiceError(c, err, "list region businesses")
		return
	}
	businesses := result.Businesses
	if businesses == nil {
		businesses = []model.Business{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"regionId":   result.RegionID,
		"businesses": businesses,
		"filters":    result.Filters,
		"count":      len(businesses),
	})
}

func (ctrl *BusinessController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var business model.Business
	if !bindJSON(c, &business) {
		return
	}

	id, err := ctrl.businessService.Create(c.Request.Context(), middleware.GetIdentity(c), c.Param("regionId"), &business)
	if err != nil {
		respondServiceError(c, err, "create business")
		return
	}

	log.Info("Business created", map[string]interface{}{
		"business_id": id,
		"region_id":   business.RegionID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"status":   "ok",
		"id":       id,
		"business": business,
	})
}

func (ctrl *BusinessController) Update(c *gin.Context) {
	var upd model.BusinessUpdate
	if !bindJSON(c, &upd) {
		return
	}

	business, err := ctrl.businessService.Update(c.Request.Context(), middleware.GetIdentity(c), c.Param("businessId"), upd)
	if err != nil {
		respondServiceError(c, err, "update business")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"business": business,
	})
}

func (ctrl *BusinessController) Delete(c *gin.Context) {
	if err := ctrl.businessService.Delete(c.Request.Context(), middleware.GetIdentity(c), c.Param("businessId")); err != nil {
		respondServiceError(c, err, "delete business")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *BusinessController) Industries(c *gin.Context) {
	industries, err := ctrl.businessService.Industries(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondServiceError(c, err, "list industries")
		return
	}
	if industries == nil {
		industries = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"industries": industries,
	})
}

// Export renders the whole directory as an attachment. The body is buffered
// so a failure halfway through still yields a JSON error.
func (ctrl *BusinessController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		respondServiceError(c, err, "export businesses")
		return
	}

	var buf bytes.Buffer
	rows, err := ctrl.exportService.Export(c.Request.Context(), middleware.GetIdentity(c), format, &buf)
	if err != nil {
		respondServiceError(c, err, "export businesses")
		return
	}

	filename := fmt.Sprintf("businesses-%s.%s", time.Now().UTC().Format("20060102"), format)
	log.Info("Businesses exported", map[string]interface{}{
		"format": string(format),
		"rows":   rows,
		"bytes":  buf.Len(),
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (ctrl *BusinessController) Snapshot(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		respondServiceError(c, err, "snapshot businesses")
		return
	}

	snap, err := ctrl.exportService.Snapshot(c.Request.Context(), middleware.GetIdentity(c), format)
	if err != nil {
		respondServiceError(c, err, "snapshot businesses")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "ok",
		"snapshot": snap,
	})
}
