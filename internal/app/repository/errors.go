package repository

import "errors"

var (
	ErrRegionNotFound = errors.New("region not found")
	ErrInvalidCursor  = errors.New("pagination cursor does not match any record")

	// ErrReviewClaimed is returned when a reviewer is recorded on a request
	// that already has one.
	ErrReviewClaimed = errors.New("review already started")
)
