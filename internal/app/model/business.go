package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Business struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id,omitempty"` // assigned on insert when empty
	Name      string    `gorm:"not null;index" json:"name"`                      // business name
	RegionID  string    `gorm:"type:varchar(64);index;not null" json:"regionId"` // owning region
	Industry  string    `gorm:"index" json:"industry"`                           // industry label
	YearAdded int       `gorm:"index" json:"year_added"`                         // year the business joined the directory
	Employees int       `json:"employees"`                                       // headcount
	Location  *Location `gorm:"serializer:json" json:"location,omitempty"`       // optional coordinate
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Business) TableName() string {
	return "businesses"
}

// BeforeCreate assigns a UUID when the caller did not choose an id.
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// FilterDelta returns the filter contribution of b scaled by sign.
func (b Business) FilterDelta(sign int) FilterDelta {
	return FilterDelta{Year: b.YearAdded, Industry: b.Industry, Sign: sign}
}

// BusinessUpdate is a partial business carried by edit requests. Nil fields
// are left untouched when applied. Deletes only use ID.
type BusinessUpdate struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name,omitempty"`
	RegionID  *string   `json:"regionId,omitempty"`
	Industry  *string   `json:"industry,omitempty"`
	YearAdded *int      `json:"year_added,omitempty"`
	Employees *int      `json:"employees,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare id string.
func (u *BusinessUpdate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = BusinessUpdate{ID: id}
		return nil
	}

	type plain BusinessUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = BusinessUpdate(p)
	return nil
}

// ApplyTo overlays the non-nil fields of u onto b.
func (u BusinessUpdate) ApplyTo(b Business) Business {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.RegionID != nil {
		b.RegionID = *u.RegionID
	}
	if u.Industry != nil {
		b.Industry = *u.Industry
	}
	if u.YearAdded != nil {
		b.YearAdded = *u.YearAdded
	}
	if u.Employees != nil {
		b.Employees = *u.Employees
	}
	if u.Location != nil {
		loc := *u.Location
		b.Location = &loc
	}
	return b
}
