package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/errors"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

// respondServiceError maps service sentinels to error responses. Anything
// unrecognised goes through errors.ParseError.
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	var status int
	var code, message string
	switch {
	case stderrors.Is(err, service.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, errors.AuthUnauthorized, "You are not allowed to do this"
	case stderrors.Is(err, service.ErrReviewAlreadyStarted):
		status, code, message = http.StatusForbidden, errors.AuthzReviewInProgress, "Review already started"
	case stderrors.Is(err, service.ErrForbidden):
		status, code, message = http.StatusForbidden, errors.AuthzForbidden, "Forbidden"
	case stderrors.Is(err, service.ErrRegionMismatch):
		status, code, message = http.StatusBadRequest, errors.ValidationRegionMismatch, "Region in body does not match the route"
	case stderrors.Is(err, service.ErrInvalidStatus):
		status, code, message = http.StatusBadRequest, errors.ValidationInvalidStatus, "Unknown edit request status"
	case stderrors.Is(err, service.ErrInvalidCursor):
		status, code, message = http.StatusBadRequest, errors.ValidationInvalidCursor, "afterId does not match any record"
	case stderrors.Is(err, service.ErrApplyFailed):
		status, code, message = http.StatusBadRequest, errors.EditApplyFailed, "Failed to apply edit request"
	case stderrors.Is(err, service.ErrBadRequest):
		status, code, message = http.StatusBadRequest, errors.ValidationInvalidInput, err.Error()
	case stderrors.Is(err, service.ErrRegionNotFound):
		status, code, message = http.StatusNotFound, errors.RegionNotFound, "Region not found"
	case stderrors.Is(err, service.ErrEditRequestNotFound):
		status, code, message = http.StatusNotFound, errors.EditRequestNotFound, "Edit request not found"
	case stderrors.Is(err, service.ErrBusinessNotFound):
		status, code, message = http.StatusNotFound, errors.BusinessNotFound, "Business not found"
	case stderrors.Is(err, service.ErrUserNotFound):
		status, code, message = http.StatusNotFound, errors.UserNotFound, "User not found"
	case stderrors.Is(err, service.ErrInvalidCredential):
		status, code, message = http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid or expired credential"
	case stderrors.Is(err, service.ErrIdentityUnavailable):
		status, code, message = http.StatusBadGateway, errors.AuthProviderUnavailable, "Identity provider is unavailable, please try again later"
	case stderrors.Is(err, service.ErrExportDisabled):
		status, code, message = http.StatusServiceUnavailable, errors.ExportStorageDisabled, "Export storage is not configured"
	default:
		info := errors.ParseError(err, action)
		status, code, message = info.Status, info.Code, info.Message
	}

	fields := map[string]interface{}{
		"action": action,
		"status": status,
		"code":   code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		log.Warn("Request rejected", fields)
	}
	errors.RespondWithError(c, status, code, message)
}

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidFormat, "Invalid request body")
		return false
	}
	return true
}

// pageFromQuery reads pageSize and afterId. A malformed pageSize answers 400.
func pageFromQuery(c *gin.Context) (model.Page, bool) {
	page := model.Page{AfterID: c.Query("afterId")}
	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			errors.BadRequest(c, errors.ValidationInvalidInput, "pageSize must be a non-negative integer")
			return page, false
		}
		page.Size = size
	}
	return page.Clamp(), true
}
