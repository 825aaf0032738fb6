package model

import (
	"time"

	"gorm.io/datatypes"
)

// PreviewAddID stands in for the id of a business that would be created by
// an add.
const PreviewAddID = "preview-pending-id"

type EditRequest struct {
	ID            string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RegionID      string            `gorm:"type:varchar(64);index;not null" json:"regionId"`       // region the edits target
	Submitter     string            `gorm:"index;not null" json:"submitter"`                       // userAppId of the author
	Reviewer      string            `gorm:"index" json:"reviewer,omitempty"`                       // first user to move the status
	DateSubmitted time.Time         `gorm:"index;not null" json:"dateSubmitted"`                   // UTC
	DateUpdated   time.Time         `gorm:"not null" json:"dateUpdated"`                           // UTC
	Status        EditRequestStatus `gorm:"type:varchar(20);index;not null;default:'Pending'" json:"status"`

	Adds    datatypes.JSONSlice[Business]       `json:"adds"`
	Updates datatypes.JSONSlice[BusinessUpdate] `json:"updates"`
	Deletes datatypes.JSONSlice[BusinessUpdate] `json:"deletes"`
}

func (EditRequest) TableName() string {
	return "edit_requests"
}

// Normalize replaces nil payload slices with empty ones so they serialize
// as [], and pins the dates to UTC.
func (e *EditRequest) Normalize() {
	e.DateSubmitted = e.DateSubmitted.UTC()
	e.DateUpdated = e.DateUpdated.UTC()
	if e.Adds == nil {
		e.Adds = datatypes.JSONSlice[Business]{}
	}
	if e.Updates == nil {
		e.Updates = datatypes.JSONSlice[BusinessUpdate]{}
	}
	if e.Deletes == nil {
		e.Deletes = datatypes.JSONSlice[BusinessUpdate]{}
	}
}

// EditRequestPatch is a partial edit request. Submitter, reviewer and dates
// are server managed and cannot be patched.
type EditRequestPatch struct {
	RegionID *string
	Status   *EditRequestStatus
	Adds     *[]Business
	Updates  *[]BusinessUpdate
	Deletes  *[]BusinessUpdate
}

// Merge overlays the non-nil fields of p onto e.
func (e *EditRequest) Merge(p EditRequestPatch) {
	if p.RegionID != nil {
		e.RegionID = *p.RegionID
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Adds != nil {
		e.Adds = datatypes.JSONSlice[Business](*p.Adds)
	}
	if p.Updates != nil {
		e.Updates = datatypes.JSONSlice[BusinessUpdate](*p.Updates)
	}
	if p.Deletes != nil {
		e.Deletes = datatypes.JSONSlice[BusinessUpdate](*p.Deletes)
	}
	e.Normalize()
}

// Page selects a window of an ordered listing. AfterID is the id of the last
// item of the previous page.
type Page struct {
	AfterID string
	Size    int
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Clamp returns p with Size bounded to [1, MaxPageSize].
func (p Page) Clamp() Page {
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}
