package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is the client-facing form of an unclassified error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError turns storage and transport errors into a status, code and
// message without leaking driver details. Domain sentinels are mapped by the
// controllers before falling back to this.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: notFoundMessage(context)}
	}
	if isContextError(err) {
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: InternalServerError, Message: "Request was cancelled or timed out"}
	}

	lower := strings.ToLower(err.Error())

	// Postgres 23505 / sqlite UNIQUE
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "A record with this id already exists"}
	}
	// Postgres 23503
	if strings.Contains(lower, "foreign key constraint") {
		if strings.Contains(lower, "region") {
			return ErrorInfo{Status: http.StatusNotFound, Code: RegionNotFound, Message: "Region not found"}
		}
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "Referenced data is missing or still in use"}
	}
	// Postgres 23502
	if strings.Contains(lower, "violates not-null constraint") || strings.Contains(lower, "not null constraint failed") {
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{Status: http.StatusBadGateway, Code: InternalExternalAPI, Message: "An upstream service is unavailable, please try again later"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: defaultMessage(context)}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func notFoundMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "region"):
		return "Region not found"
	case strings.Contains(c, "business"):
		return "Business not found"
	case strings.Contains(c, "edit"):
		return "Edit request not found"
	case strings.Contains(c, "user"):
		return "User not found"
	}
	return "The requested data was not found"
}

func defaultMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "create"):
		return "Failed to create, please try again later"
	case strings.Contains(c, "update"):
		return "Failed to update, please try again later"
	case strings.Contains(c, "delete"):
		return "Failed to delete, please try again later"
	}
	return "Something went wrong, please try again later"
}

// ParseAndRespond classifies err and writes the response.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, context string) {
	info := ParseError(err, context)
	c.JSON(info.Status, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
