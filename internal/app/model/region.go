package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Region struct {
	ID        string        `gorm:"primaryKey;type:varchar(64)" json:"id"` // region id
	Name      string        `gorm:"not null" json:"name"`                  // display name
	Manager   string        `gorm:"index" json:"manager"`                  // userAppId of the managing user
	Filters   RegionFilters `gorm:"type:text" json:"filters"`              // facet summary of the region's businesses
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Businesses []Business `gorm:"foreignKey:RegionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Region) TableName() string {
	return "regions"
}

func (r *Region) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsManagedBy reports whether userAppID is the region's manager.
func (r Region) IsManagedBy(userAppID string) bool {
	return userAppID != "" && r.Manager == userAppID
}
