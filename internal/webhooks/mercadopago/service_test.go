package mercadopagowebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type stubOrders struct {
	orders      map[uuid.UUID]*models.Order
	attached    map[uuid.UUID]string
	transitions []enums.OrderStatus
	findErr     error
	attachErr   error
	transErr    error
}

func newStubOrders() *stubOrders {
	return &stubOrders{
		orders:   map[uuid.UUID]*models.Order{},
		attached: map[uuid.UUID]string{},
	}
}

func (s *stubOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrders) AttachPaymentID(_ context.Context, id uuid.UUID, paymentID string) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached[id] = paymentID
	return nil
}

func (s *stubOrders) Transition(_ context.Context, id uuid.UUID, to enums.OrderStatus, paidAt *time.Time) (bool, error) {
	if s.transErr != nil {
		return false, s.transErr
	}
	order, ok := s.orders[id]
	if !ok || order.Status != enums.OrderStatusPending {
		return false, nil
	}
	order.Status = to
	order.PaidAt = paidAt
	s.transitions = append(s.transitions, to)
	return true, nil
}

type stubPayments struct {
	payments map[string]*Payment
	err      error
}

func (s *stubPayments) GetPayment(_ context.Context, paymentID string) (*Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func jsonNumber(value string) json.Number {
	return json.Number(value)
}

func webhookTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{
		ServiceName: "mercadopago-webhook-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

type serviceFixture struct {
	svc      *Service
	orders   *stubOrders
	payments *stubPayments
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	orders := newStubOrders()
	payments := &stubPayments{payments: map[string]*Payment{}}
	svc, err := NewService(ServiceParams{
		Orders:   orders,
		Payments: payments,
		Logger:   webhookTestLogger(t),
		Now:      func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &serviceFixture{svc: svc, orders: orders, payments: payments}
}

func paymentNotification(t *testing.T, paymentID string) *Notification {
	t.Helper()
	n := &Notification{Action: "payment.updated", Type: "payment"}
	n.Data.ID = jsonNumber(paymentID)
	return n
}

func (f *serviceFixture) seedOrder(status enums.OrderStatus) *models.Order {
	order := &models.Order{
		ID:     uuid.New(),
		Status: status,
	}
	f.orders.orders[order.ID] = order
	return order
}

func TestHandleNotificationApprovedPaysOrder(t *testing.T) {
	f := newServiceFixture(t)
	order := f.seedOrder(enums.OrderStatusPending)
	f.payments.payments["777"] = &Payment{
		ID:                jsonNumber("777"),
		Status:            PaymentStatusApproved,
		ExternalReference: order.ID.String(),
	}

	err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "777"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", order.Status)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected paid_at from the clock, got %v", order.PaidAt)
	}
	if f.orders.attached[order.ID] != "777" {
		t.Fatalf("expected payment id attached, got %q", f.orders.attached[order.ID])
	}
}

func TestHandleNotificationRejectedFailsOrder(t *testing.T) {
	f := newServiceFixture(t)
	order := f.seedOrder(enums.OrderStatusPending)
	f.payments.payments["778"] = &Payment{
		ID:                jsonNumber("778"),
		Status:            PaymentStatusRejected,
		ExternalReference: order.ID.String(),
	}

	if err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "778")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enums.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", order.Status)
	}
	if order.PaidAt != nil {
		t.Fatalf("failed orders must not carry paid_at")
	}
}

func TestHandleNotificationReplayIsNoOp(t *testing.T) {
	f := newServiceFixture(t)
	order := f.seedOrder(enums.OrderStatusPending)
	paymentID := "779"
	order.MPPaymentID = &paymentID
	f.payments.payments[paymentID] = &Payment{
		ID:                jsonNumber(paymentID),
		Status:            PaymentStatusApproved,
		ExternalReference: order.ID.String(),
	}

	if err := f.svc.HandleNotification(context.Background(), paymentNotification(t, paymentID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second delivery of the same notification changes nothing.
	if err := f.svc.HandleNotification(context.Background(), paymentNotification(t, paymentID)); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if len(f.orders.transitions) != 1 {
		t.Fatalf("expected a single transition, got %d", len(f.orders.transitions))
	}
}

func TestHandleNotificationTransientStatusWaits(t *testing.T) {
	f := newServiceFixture(t)
	order := f.seedOrder(enums.OrderStatusPending)
	f.payments.payments["780"] = &Payment{
		ID:                jsonNumber("780"),
		Status:            "in_process",
		ExternalReference: order.ID.String(),
	}

	if err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "780")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("transient statuses must not settle the order")
	}
	if len(f.orders.attached) != 0 {
		t.Fatalf("transient statuses must not bind the payment")
	}
}

func TestHandleNotificationIgnoresNonPaymentTypes(t *testing.T) {
	f := newServiceFixture(t)
	n := &Notification{Action: "plan.updated", Type: "plan"}
	n.Data.ID = jsonNumber("1")

	if err := f.svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.orders.transitions) != 0 {
		t.Fatalf("non-payment notifications must be ignored")
	}
}

func TestHandleNotificationUnmatchedReference(t *testing.T) {
	f := newServiceFixture(t)
	f.payments.payments["781"] = &Payment{
		ID:                jsonNumber("781"),
		Status:            PaymentStatusApproved,
		ExternalReference: "not-a-uuid",
	}

	// Payments from outside the platform are acknowledged, not retried.
	if err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "781")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleNotificationUnknownOrder(t *testing.T) {
	f := newServiceFixture(t)
	f.payments.payments["782"] = &Payment{
		ID:                jsonNumber("782"),
		Status:            PaymentStatusApproved,
		ExternalReference: uuid.NewString(),
	}

	err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "782"))
	if err == nil {
		t.Fatalf("expected error for unknown order")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleNotificationConflictingPaymentBinding(t *testing.T) {
	f := newServiceFixture(t)
	order := f.seedOrder(enums.OrderStatusPending)
	bound := "111"
	order.MPPaymentID = &bound
	f.payments.payments["222"] = &Payment{
		ID:                jsonNumber("222"),
		Status:            PaymentStatusApproved,
		ExternalReference: order.ID.String(),
	}

	err := f.svc.HandleNotification(context.Background(), paymentNotification(t, "222"))
	if err == nil {
		t.Fatalf("expected conflict")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("conflicting bindings must not settle the order")
	}
}

func TestHandleNotificationValidation(t *testing.T) {
	f := newServiceFixture(t)

	if err := f.svc.HandleNotification(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil notification")
	}
	empty := &Notification{Type: "payment"}
	if err := f.svc.HandleNotification(context.Background(), empty); err == nil {
		t.Fatalf("expected error for missing data id")
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	logg := webhookTestLogger(t)
	orders := newStubOrders()
	payments := &stubPayments{payments: map[string]*Payment{}}

	if _, err := NewService(ServiceParams{Payments: payments, Logger: logg}); err == nil {
		t.Fatalf("expected error for missing orders repository")
	}
	if _, err := NewService(ServiceParams{Orders: orders, Logger: logg}); err == nil {
		t.Fatalf("expected error for missing payment lookup")
	}
	if _, err := NewService(ServiceParams{Orders: orders, Payments: payments}); err == nil {
		t.Fatalf("expected error for missing logger")
	}
}
