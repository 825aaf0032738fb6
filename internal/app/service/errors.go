package service

import (
	"errors"

	"github.com/ranlab/bizdir-backend/internal/app/repository"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrBadRequest          = errors.New("bad request")
	ErrRegionMismatch      = errors.New("region in body does not match the route")
	ErrInvalidStatus       = errors.New("invalid edit request status")
	ErrApplyFailed         = errors.New("failed to apply edit request")
	ErrEditRequestNotFound = errors.New("edit request not found")
	ErrBusinessNotFound    = errors.New("business not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrIdentityUnavailable = errors.New("identity provider unavailable")
	ErrExportDisabled      = errors.New("export storage is not configured")

	ErrRegionNotFound       = repository.ErrRegionNotFound
	ErrInvalidCursor        = repository.ErrInvalidCursor
	ErrReviewAlreadyStarted = repository.ErrReviewClaimed
)
