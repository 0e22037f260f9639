package models

import (
	"time"

	"github.com/google/uuid"
)

// Subject is a tagged student or family within an event.
type Subject struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Grade     *string   `gorm:"column:grade"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PhotoSubject links a photo to a tagged subject. The pair is unique.
type PhotoSubject struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PhotoID   uuid.UUID `gorm:"column:photo_id;type:uuid;not null;uniqueIndex:uniq_photo_subject,priority:1"`
	SubjectID uuid.UUID `gorm:"column:subject_id;type:uuid;not null;uniqueIndex:uniq_photo_subject,priority:2"`
	TaggedBy  uuid.UUID `gorm:"column:tagged_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
