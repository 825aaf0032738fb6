package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

type EditRequestController struct {
	editService service.EditRequestService
}

func NewEditRequestController(editService service.EditRequestService) *EditRequestController {
	return &EditRequestController{editService: editService}
}

type SubmitEditRequest struct {
	RegionID string                 `json:"regionId"`
	Adds     []model.Business       `json:"adds"`
	Updates  []model.BusinessUpdate `json:"updates"`
	Deletes  []model.BusinessUpdate `json:"deletes"`
}

// UpdateEditRequest is a patch; absent fields are left alone. Submitter,
// reviewer and dates are not accepted.
type UpdateEditRequest struct {
	RegionID *string                 `json:"regionId"`
	Status   *string                 `json:"status"`
	Adds     *[]model.Business       `json:"adds"`
	Updates  *[]model.BusinessUpdate `json:"updates"`
	Deletes  *[]model.BusinessUpdate `json:"deletes"`
}

func (ctrl *EditRequestController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SubmitEditRequest
	if !bindJSON(c, &req) {
		return
	}

	regionID := c.Param("regionId")
	id, err := ctrl.editService.Submit(c.Request.Context(), middleware.GetIdentity(c), regionID, service.EditRequestSubmission{
		RegionID: req.RegionID,
		Adds:     req.Adds,
		Updates:  req.Updates,
		Deletes:  req.Deletes,
	})
	if err != nil {
		respondServiceError(c, err, "create edit request")
		return
	}

	log.Info("Edit request created", map[string]interface{}{
		"edit_request_id": id,
		"region_id":       regionID,
		"adds":            len(req.Adds),
		"updates":         len(req.Updates),
		"deletes":         len(req.Deletes),
	})

	c.JSON(http.StatusCreated, gin.H{
		"status": "ok",
		"id":     id,
	})
}

func (ctrl *EditRequestController) Get(c *gin.Context) {
	req, err := ctrl.editService.Get(c.Request.Context(), middleware.GetIdentity(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "fetch edit request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"editRequest": req,
	})
}

func (ctrl *EditRequestController) ListForRegion(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, total, err := ctrl.editService.ListForRegion(c.Request.Context(), middleware.GetIdentity(c), c.Param("regionId"), page)
	if err != nil {
		respondServiceError(c, err, "list region edit requests")
		return
	}
	respondEditRequestPage(c, items, total)
}

// ListAll is the admin review queue, optionally narrowed by ?status.
func (ctrl *EditRequestController) ListAll(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, total, err := ctrl.editService.ListAll(c.Request.Context(), middleware.GetIdentity(c), c.Query("status"), page)
	if err != nil {
		respondServiceError(c, err, "list edit requests")
		return
	}
	respondEditRequestPage(c, items, total)
}

func (ctrl *EditRequestController) ListMine(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, total, err := ctrl.editService.ListMine(c.Request.Context(), middleware.GetIdentity(c), page)
	if err != nil {
		respondServiceError(c, err, "list own edit requests")
		return
	}
	respondEditRequestPage(c, items, total)
}

func (ctrl *EditRequestController) Update(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpdateEditRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	result, err := ctrl.editService.Update(c.Request.Context(), middleware.GetIdentity(c), id, service.EditRequestUpdate{
		RegionID: req.RegionID,
		Status:   req.Status,
		Adds:     req.Adds,
		Updates:  req.Updates,
		Deletes:  req.Deletes,
	})
	if err != nil {
		respondServiceError(c, err, "update edit request")
		return
	}

	if result.Applied != nil {
		log.Info("Edit request approved", map[string]interface{}{
			"edit_request_id": id,
			"added":           len(result.Applied.Added),
			"updated":         len(result.Applied.Updated),
			"deleted":         len(result.Applied.Deleted),
		})
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"added":       result.Applied.Added,
			"updated":     result.Applied.Updated,
			"deleted":     result.Applied.Deleted,
			"editRequest": result.EditRequest,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"editRequest": result.EditRequest,
	})
}

func (ctrl *EditRequestController) Preview(c *gin.Context) {
	preview, err := ctrl.editService.Preview(c.Request.Context(), middleware.GetIdentity(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "preview edit request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"added":   preview.Added,
		"updated": preview.Updated,
		"deleted": preview.Deleted,
	})
}

func respondEditRequestPage(c *gin.Context, items []model.EditRequest, total int64) {
	if items == nil {
		items = []model.EditRequest{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"editRequests": items,
		"totalCount":   total,
	})
}
