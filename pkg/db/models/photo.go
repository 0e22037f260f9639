package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// Photo captures one uploaded asset. StoragePath points at the original in the
// bucket; PreviewPath at the watermarked rendition served to families.
type Photo struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID         `gorm:"column:event_id;type:uuid;not null;index"`
	FolderID    *uuid.UUID        `gorm:"column:folder_id;type:uuid;index"`
	Filename    string            `gorm:"column:filename;not null"`
	StoragePath string            `gorm:"column:storage_path;not null;unique"`
	PreviewPath *string           `gorm:"column:preview_path"`
	MimeType    string            `gorm:"column:mime_type;not null"`
	FileSize    int64             `gorm:"column:file_size;not null;default:0"`
	Width       int               `gorm:"column:width;not null;default:0"`
	Height      int               `gorm:"column:height;not null;default:0"`
	Status      enums.PhotoStatus `gorm:"column:status;type:photo_status;not null;default:'pending'"`
	Approved    bool              `gorm:"column:approved;not null;default:false"`
	Metadata    json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	UploadedBy  uuid.UUID         `gorm:"column:uploaded_by;type:uuid;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
