package dbschema

import "time"

// BaseModel carries the surrogate key and timestamps shared by every table.
// Timestamps are set by the domain clock; gorm never rewrites UpdatedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}
