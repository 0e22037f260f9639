package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcastellanos/fotoescolar-backend/pkg/auth"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/security"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	byEmail    map[string]*models.User
	byID       map[uuid.UUID]*models.User
	lastLogins map[uuid.UUID]time.Time
	createErr  error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail:    map[string]*models.User{},
		byID:       map[uuid.UUID]*models.User{},
		lastLogins: map[uuid.UUID]time.Time{},
	}
}

func (s *stubUserRepo) add(user *models.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
}

func (s *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.add(user)
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogins[id] = at
	return nil
}

type stubSessionManager struct {
	created   map[string]uuid.UUID
	revoked   []string
	createErr error
	revokeErr error
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{created: map[string]uuid.UUID{}}
}

func (s *stubSessionManager) Create(_ context.Context, sessionID string, userID uuid.UUID) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created[sessionID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(_ context.Context, sessionID string) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = append(s.revoked, sessionID)
	return nil
}

func authTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{
		ServiceName: "auth-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "fotoescolar-test",
	ExpirationMinutes: 15,
	SessionTTLMinutes: 60,
}

type authFixture struct {
	svc      Service
	repo     *stubUserRepo
	sessions *stubSessionManager
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	// ParseAccessToken checks exp against the wall clock, so the fixture
	// clock must track real time rather than a fixed date.
	now := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: config.PasswordConfig{},
		Logger:         authTestLogger(t),
		Now:            func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &authFixture{svc: svc, repo: repo, sessions: sessions, now: now}
}

func (f *authFixture) seedOperator(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Marta Castellanos",
		Role:         enums.UserRoleAdmin,
		IsActive:     active,
	}
	f.repo.add(user)
	return user
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedOperator(t, "marta@fotoescolar.ar", "super-secreta-123", true)

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "Marta@fotoescolar.ar ", Password: "super-secreta-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := auth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("minted token must parse: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if f.sessions.created[claims.ID] != user.ID {
		t.Fatalf("expected a session keyed by the token jti")
	}
	if !f.repo.lastLogins[user.ID].Equal(f.now) {
		t.Fatalf("expected last login recorded at the clock time")
	}
	if resp.User == nil || resp.User.Email != "marta@fotoescolar.ar" {
		t.Fatalf("unexpected profile %+v", resp.User)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedOperator(t, "marta@fotoescolar.ar", "super-secreta-123", true)
	f.seedOperator(t, "baja@fotoescolar.ar", "super-secreta-123", false)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nadie@fotoescolar.ar", "super-secreta-123"},
		{"wrong password", "marta@fotoescolar.ar", "otra-clave"},
		{"inactive account", "baja@fotoescolar.ar", "super-secreta-123"},
		{"empty password", "marta@fotoescolar.ar", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.password})
			requireCode(t, err, pkgerrors.CodeUnauthorized)
			if len(f.sessions.created) != 0 {
				t.Fatalf("denied logins must not create sessions")
			}
		})
	}
}

func TestLoginSessionFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.seedOperator(t, "marta@fotoescolar.ar", "super-secreta-123", true)
	f.sessions.createErr = errors.New("redis down")

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "marta@fotoescolar.ar", Password: "super-secreta-123"})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sessions.revoked) != 1 || f.sessions.revoked[0] != "session-1" {
		t.Fatalf("expected the session revoked, got %v", f.sessions.revoked)
	}

	requireCode(t, f.svc.Logout(context.Background(), "  "), pkgerrors.CodeValidation)
}

func TestRegisterHashesPassword(t *testing.T) {
	f := newAuthFixture(t)

	dto, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "Nueva@fotoescolar.ar",
		Password: "clave-larga-123",
		FullName: "  Lucia Paz  ",
		Role:     enums.UserRolePhotographer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Email != "nueva@fotoescolar.ar" || dto.FullName != "Lucia Paz" {
		t.Fatalf("unexpected dto %+v", dto)
	}

	stored := f.repo.byEmail["nueva@fotoescolar.ar"]
	if stored == nil {
		t.Fatalf("expected the user persisted")
	}
	if stored.PasswordHash == "clave-larga-123" {
		t.Fatalf("password must never be stored in clear")
	}
	match, err := security.VerifyPassword("clave-larga-123", stored.PasswordHash)
	if err != nil || !match {
		t.Fatalf("stored hash must verify, match=%v err=%v", match, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	f.seedOperator(t, "marta@fotoescolar.ar", "super-secreta-123", true)

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
	}{
		{"duplicate email", RegisterRequest{Email: "marta@fotoescolar.ar", Password: "clave-larga-123", FullName: "X", Role: enums.UserRoleAdmin}, pkgerrors.CodeConflict},
		{"short password", RegisterRequest{Email: "otra@fotoescolar.ar", Password: "corta", FullName: "X", Role: enums.UserRoleAdmin}, pkgerrors.CodeValidation},
		{"missing name", RegisterRequest{Email: "otra@fotoescolar.ar", Password: "clave-larga-123", Role: enums.UserRoleAdmin}, pkgerrors.CodeValidation},
		{"bad role", RegisterRequest{Email: "otra@fotoescolar.ar", Password: "clave-larga-123", FullName: "X", Role: enums.UserRole("root")}, pkgerrors.CodeValidation},
		{"missing email", RegisterRequest{Password: "clave-larga-123", FullName: "X", Role: enums.UserRoleAdmin}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.req)
			requireCode(t, err, tc.code)
		})
	}
}

func TestProfile(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedOperator(t, "marta@fotoescolar.ar", "super-secreta-123", true)

	dto, err := f.svc.Profile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.ID != user.ID {
		t.Fatalf("unexpected profile %+v", dto)
	}

	_, err = f.svc.Profile(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	logg := authTestLogger(t)
	repo := newStubUserRepo()
	sessions := newStubSessionManager()

	if _, err := NewService(ServiceParams{SessionManager: sessions, Logger: logg}); err == nil {
		t.Fatalf("expected error for missing user repo")
	}
	if _, err := NewService(ServiceParams{UserRepo: repo, Logger: logg}); err == nil {
		t.Fatalf("expected error for missing session manager")
	}
	if _, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions}); err == nil {
		t.Fatalf("expected error for missing logger")
	}
}
