package model

import "time"

const (
	EditEventSubmitted = "edit_request.submitted"
	EditEventUpdated   = "edit_request.updated"
	EditEventApplied   = "edit_request.applied"
)

// EditEvent is pushed to live subscribers when an edit request changes.
type EditEvent struct {
	Type          string            `json:"type"`
	EditRequestID string            `json:"editRequestId"`
	RegionID      string            `json:"regionId"`
	Status        EditRequestStatus `json:"status"`
	Actor         string            `json:"actor"`
	At            time.Time         `json:"at"`
}
