package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Profile is one person a user keeps natal charts for. Credits are not
// scoped to profiles; a profile is only referenced by a credit at the moment
// of consumption.
type Profile struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"not null" json:"name"`
	BirthDate  string            `gorm:"not null" json:"birth_date"`
	BirthTime  string            `gorm:"not null" json:"birth_time"`
	BirthPlace string            `gorm:"not null" json:"birth_place"`
	Latitude   float64           `gorm:"not null" json:"latitude"`
	Longitude  float64           `gorm:"not null" json:"longitude"`
	Timezone   string            `gorm:"not null" json:"timezone"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
