package shares

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcastellanos/fotoescolar-backend/internal/events"
	"github.com/mcastellanos/fotoescolar-backend/internal/folders"
	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := `
CREATE TABLE events (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	school TEXT,
	shoot_date DATETIME,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE folders (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	parent_id TEXT,
	name TEXT NOT NULL,
	depth INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE photos (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	folder_id TEXT,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL UNIQUE,
	preview_path TEXT,
	mime_type TEXT NOT NULL,
	file_size INTEGER NOT NULL DEFAULT 0,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	approved INTEGER NOT NULL DEFAULT 0,
	metadata TEXT,
	uploaded_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE share_tokens (
	id TEXT PRIMARY KEY,
	token TEXT NOT NULL UNIQUE,
	event_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	folder_id TEXT,
	photo_ids TEXT,
	scope_config TEXT NOT NULL,
	allow_download INTEGER NOT NULL DEFAULT 0,
	allow_comments INTEGER NOT NULL DEFAULT 0,
	view_count INTEGER NOT NULL DEFAULT 0,
	max_views INTEGER,
	expires_at DATETIME,
	is_active INTEGER NOT NULL DEFAULT 1,
	password_hash TEXT,
	metadata TEXT,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK (max_views IS NULL OR max_views > 0)
);
CREATE TABLE share_token_contents (
	id TEXT PRIMARY KEY,
	share_token_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (share_token_id, photo_id)
);
CREATE TABLE share_audiences (
	id TEXT PRIMARY KEY,
	share_token_id TEXT NOT NULL,
	type TEXT NOT NULL,
	subject_id TEXT,
	contact_email TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, gdb.Exec(ddl).Error)
	return gdb
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "shares-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func testPasswordConfig() config.PasswordConfig {
	// Floor-clamped params keep hashing fast in tests.
	return config.PasswordConfig{}
}

// harness assembles the whole share subsystem over one sqlite database.
type harness struct {
	gdb          *gorm.DB
	repo         *Repository
	resolver     *Resolver
	materializer *Materializer
	svc          Service
	validator    *Validator
	recorder     *captureRecorder
	photosRepo   *photos.Repository
	foldersRepo  *folders.Repository
	eventsRepo   *events.Repository
}

type captureRecorder struct {
	records []AccessRecord
}

func (c *captureRecorder) RecordAccess(_ context.Context, record AccessRecord) {
	c.records = append(c.records, record)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb := newTestDB(t)
	h := &harness{
		gdb:         gdb,
		repo:        NewRepository(gdb),
		photosRepo:  photos.NewRepository(gdb),
		foldersRepo: folders.NewRepository(gdb),
		eventsRepo:  events.NewRepository(gdb),
		recorder:    &captureRecorder{},
	}

	resolver, err := NewResolver(h.photosRepo, h.foldersRepo)
	require.NoError(t, err)
	h.resolver = resolver

	materializer, err := NewMaterializer(h.repo, gormTxRunner{db: gdb})
	require.NoError(t, err)
	h.materializer = materializer

	svc, err := NewService(h.repo, resolver, materializer, h.eventsRepo, gormTxRunner{db: gdb}, testPasswordConfig(), testLogger())
	require.NoError(t, err)
	h.svc = svc

	validator, err := NewValidator(h.repo, resolver, h.photosRepo, h.recorder, nil, testLogger())
	require.NoError(t, err)
	h.validator = validator

	return h
}

func (h *harness) seedEvent(t *testing.T) uuid.UUID {
	t.Helper()

	event := &models.Event{ID: uuid.New(), Name: "Acto de fin de curso", CreatedBy: uuid.New()}
	require.NoError(t, h.gdb.Create(event).Error)
	return event.ID
}

func (h *harness) seedFolder(t *testing.T, eventID uuid.UUID, parentID *uuid.UUID, name string) uuid.UUID {
	t.Helper()

	depth := 0
	if parentID != nil {
		var parent models.Folder
		require.NoError(t, h.gdb.First(&parent, "id = ?", *parentID).Error)
		depth = parent.Depth + 1
	}
	folder := &models.Folder{ID: uuid.New(), EventID: eventID, ParentID: parentID, Name: name, Depth: depth}
	require.NoError(t, h.gdb.Create(folder).Error)
	return folder.ID
}

func (h *harness) seedPhoto(t *testing.T, eventID uuid.UUID, folderID *uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	photo := &models.Photo{
		ID:          id,
		EventID:     eventID,
		FolderID:    folderID,
		Filename:    fmt.Sprintf("%s.jpg", id),
		StoragePath: fmt.Sprintf("photos/%s/original/%s.jpg", eventID, id),
		MimeType:    "image/jpeg",
		Status:      enums.PhotoStatusProcessed,
		Approved:    true,
		UploadedBy:  uuid.New(),
	}
	require.NoError(t, h.gdb.Create(photo).Error)
	return id
}

func (h *harness) shareTokenCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, h.gdb.Model(&models.ShareToken{}).Count(&count).Error)
	return count
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected a typed error, got %v", err)
	require.Equal(t, code, appErr.Code())
}
