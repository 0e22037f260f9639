package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/mcastellanos/fotoescolar-backend/pkg/db/types"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// ShareToken is the credential an admin hands to a family. Rows are never
// deleted; revocation flips IsActive so the audit trail survives.
type ShareToken struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token         string            `gorm:"column:token;not null;uniqueIndex:uniq_share_token"`
	EventID       uuid.UUID         `gorm:"column:event_id;type:uuid;not null;index"`
	Scope         enums.ShareScope  `gorm:"column:scope;type:share_scope;not null"`
	FolderID      *uuid.UUID        `gorm:"column:folder_id;type:uuid"`
	PhotoIDs      dbtypes.UUIDArray `gorm:"column:photo_ids;type:uuid[]"`
	ScopeConfig   json.RawMessage   `gorm:"column:scope_config;type:jsonb;not null"`
	AllowDownload bool              `gorm:"column:allow_download;not null;default:false"`
	AllowComments bool              `gorm:"column:allow_comments;not null;default:false"`
	ViewCount     int               `gorm:"column:view_count;not null;default:0"`
	MaxViews      *int              `gorm:"column:max_views"`
	ExpiresAt     *time.Time        `gorm:"column:expires_at"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true"`
	PasswordHash  *string           `gorm:"column:password_hash"`
	Metadata      json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedBy     uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the token's expiry has passed at the given instant.
func (s *ShareToken) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// ViewLimitReached reports whether the view counter has consumed max_views.
func (s *ShareToken) ViewLimitReached() bool {
	return s.MaxViews != nil && s.ViewCount >= *s.MaxViews
}

// ShareTokenContent is one row of the materialized contents cache: the
// precomputed photo set a token grants access to. Rows are rebuilt wholesale
// (delete + bulk insert) whenever the scope is resolved, never patched.
type ShareTokenContent struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShareTokenID uuid.UUID `gorm:"column:share_token_id;type:uuid;not null;uniqueIndex:uniq_share_content,priority:1"`
	PhotoID      uuid.UUID `gorm:"column:photo_id;type:uuid;not null;uniqueIndex:uniq_share_content,priority:2"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ShareAudience names a recipient of a share. Audiences are bookkeeping for
// counting and notification; they never gate access.
type ShareAudience struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShareTokenID uuid.UUID          `gorm:"column:share_token_id;type:uuid;not null;index"`
	Type         enums.AudienceType `gorm:"column:type;type:audience_type;not null"`
	SubjectID    *uuid.UUID         `gorm:"column:subject_id;type:uuid"`
	ContactEmail *string            `gorm:"column:contact_email"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
