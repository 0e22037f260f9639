package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcastellanos/fotoescolar-backend/internal/orders"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

type stubOrderService struct {
	order     *models.Order
	list      []models.Order
	err       error
	lastInput orders.CreateOrderInput
}

func (s *stubOrderService) Create(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	s.lastInput = input
	return s.order, s.err
}

func (s *stubOrderService) Get(_ context.Context, _ uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListByShareToken(_ context.Context, _ uuid.UUID) ([]models.Order, error) {
	return s.list, s.err
}

func (s *stubOrderService) AttachPaymentID(_ context.Context, _ uuid.UUID, _ string) error {
	return s.err
}

func orderRequest(token string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/gallery/"+url.PathEscape(token)+"/orders", bytes.NewReader(body))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("token", token)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateOrderSuccess(t *testing.T) {
	svc := &stubOrderService{order: &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Total:  decimal.RequireFromString("4500.00"),
	}}
	handler := CreateOrder(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"contact_name":  "Marta Díaz",
		"contact_email": "marta@example.com",
		"items": []map[string]any{
			{"photo_id": uuid.New(), "quantity": 2, "unit_price": "1500.00"},
			{"photo_id": uuid.New(), "quantity": 1, "unit_price": "1500.00"},
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(galleryTestToken, body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastInput.ShareToken != galleryTestToken {
		t.Fatalf("expected share token to reach the service, got %q", svc.lastInput.ShareToken)
	}
	if len(svc.lastInput.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(svc.lastInput.Items))
	}
}

func TestCreateOrderRejectsMalformedToken(t *testing.T) {
	svc := &stubOrderService{}
	handler := CreateOrder(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"contact_name":  "Marta Díaz",
		"contact_email": "marta@example.com",
		"items":         []map[string]any{{"photo_id": uuid.New(), "quantity": 1, "unit_price": "1500.00"}},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("bad token", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	handler := CreateOrder(&stubOrderService{}, nil)

	body, _ := json.Marshal(map[string]any{
		"contact_name":  "Marta Díaz",
		"contact_email": "marta@example.com",
		"items":         []map[string]any{},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(galleryTestToken, body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateOrderMapsShareDenial(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeShareExpired, "share expired")}
	handler := CreateOrder(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"contact_name":  "Marta Díaz",
		"contact_email": "marta@example.com",
		"items":         []map[string]any{{"photo_id": uuid.New(), "quantity": 1, "unit_price": "1500.00"}},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(galleryTestToken, body))

	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 got %d", rec.Code)
	}
}

func TestGetOrderInvalidID(t *testing.T) {
	handler := GetOrder(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListShareOrdersSuccess(t *testing.T) {
	svc := &stubOrderService{list: []models.Order{{ID: uuid.New()}, {ID: uuid.New()}}}
	handler := ListShareOrders(svc, nil)

	id := uuid.New().String()
	req := withShareID(httptest.NewRequest(http.MethodGet, "/api/v1/shares/"+id+"/orders", nil), id)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data []models.Order `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 orders got %d", len(envelope.Data))
	}
}
