package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is the root container for a photo session (a school, a graduation).
// Folders and photos hang off an event; deleting one cascades in the schema.
type Event struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	School    *string    `gorm:"column:school"`
	ShootDate *time.Time `gorm:"column:shoot_date"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
