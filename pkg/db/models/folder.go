package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a node in the per-event folder tree. Parents always belong to the
// same event; folders are created top-down and never re-parented, which keeps
// the tree acyclic by construction.
type Folder struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID  `gorm:"column:event_id;type:uuid;not null;index"`
	ParentID  *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Name      string     `gorm:"column:name;not null"`
	Depth     int        `gorm:"column:depth;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
