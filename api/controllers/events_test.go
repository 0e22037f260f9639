package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/middleware"
	"github.com/mcastellanos/fotoescolar-backend/internal/events"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pagination"
)

type stubEventService struct {
	event      *models.Event
	list       *events.ListResult
	err        error
	lastParams pagination.Params
	createdBy  uuid.UUID
}

func (s *stubEventService) Create(_ context.Context, userID uuid.UUID, _ events.CreateEventInput) (*models.Event, error) {
	s.createdBy = userID
	return s.event, s.err
}

func (s *stubEventService) Get(_ context.Context, _ uuid.UUID) (*models.Event, error) {
	return s.event, s.err
}

func (s *stubEventService) List(_ context.Context, params pagination.Params) (*events.ListResult, error) {
	s.lastParams = params
	return s.list, s.err
}

func (s *stubEventService) Update(_ context.Context, _ uuid.UUID, _ events.UpdateEventInput) (*models.Event, error) {
	return s.event, s.err
}

func withEventID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("eventID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateEventSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubEventService{event: &models.Event{ID: uuid.New(), Name: "Acto 2026"}}
	handler := CreateEvent(svc, nil)

	body, _ := json.Marshal(map[string]string{"name": "Acto 2026"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createdBy != userID {
		t.Fatalf("expected creator %s got %s", userID, svc.createdBy)
	}
}

func TestCreateEventRequiresUserContext(t *testing.T) {
	handler := CreateEvent(&stubEventService{}, nil)

	body, _ := json.Marshal(map[string]string{"name": "Acto 2026"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestGetEventInvalidID(t *testing.T) {
	handler := GetEvent(&stubEventService{}, nil)

	req := withEventID(httptest.NewRequest(http.MethodGet, "/api/v1/events/nope", nil), "nope")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetEventNotFound(t *testing.T) {
	svc := &stubEventService{err: pkgerrors.New(pkgerrors.CodeNotFound, "event not found")}
	handler := GetEvent(svc, nil)

	id := uuid.New().String()
	req := withEventID(httptest.NewRequest(http.MethodGet, "/api/v1/events/"+id, nil), id)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestListEventsPassesPagination(t *testing.T) {
	svc := &stubEventService{list: &events.ListResult{NextCursor: "abc"}}
	handler := ListEvents(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=10&cursor=xyz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastParams.Limit != 10 || svc.lastParams.Cursor != "xyz" {
		t.Fatalf("unexpected params %+v", svc.lastParams)
	}
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	handler := ListEvents(&stubEventService{list: &events.ListResult{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=9000", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateEventSuccess(t *testing.T) {
	svc := &stubEventService{event: &models.Event{ID: uuid.New(), Name: "Renombrado"}}
	handler := UpdateEvent(svc, nil)

	id := uuid.New().String()
	body, _ := json.Marshal(map[string]string{"name": "Renombrado"})
	req := withEventID(httptest.NewRequest(http.MethodPatch, "/api/v1/events/"+id, bytes.NewReader(body)), id)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}
