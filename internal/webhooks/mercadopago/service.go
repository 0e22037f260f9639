package mercadopagowebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

// Notification is the body MercadoPago posts to the webhook endpoint. It only
// identifies the payment; the resource itself must be fetched.
type Notification struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

type ordersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AttachPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, paidAt *time.Time) (bool, error)
}

type paymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

type ServiceParams struct {
	Orders   ordersRepository
	Payments paymentLookup
	Logger   *logger.Logger
	Now      func() time.Time
}

type Service struct {
	orders   ordersRepository
	payments paymentLookup
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment lookup required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		orders:   params.Orders,
		payments: params.Payments,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// HandleNotification resolves the payment behind a notification and settles
// the order it references. Notifications for already-settled orders are
// acknowledged without changes.
func (s *Service) HandleNotification(ctx context.Context, notification *Notification) error {
	if notification == nil || notification.Data.ID.String() == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification data required")
	}
	if notification.Type != "payment" {
		return nil
	}

	paymentID := notification.Data.ID.String()
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	target, settle := targetStatus(payment.Status)
	if !settle {
		s.logg.Info(ctx, fmt.Sprintf("payment %s in transient status %q, waiting for the next notification", paymentID, payment.Status))
		return nil
	}

	orderID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		// Payments without our reference were not created by this platform.
		s.logg.Warn(ctx, fmt.Sprintf("payment %s carries no usable external reference", paymentID))
		return nil
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderID))
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	if order.MPPaymentID == nil {
		if err := s.orders.AttachPaymentID(ctx, order.ID, paymentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment id")
		}
	} else if *order.MPPaymentID != paymentID {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order %s already bound to payment %s", orderID, *order.MPPaymentID))
	}

	var paidAt *time.Time
	if target == enums.OrderStatusPaid {
		now := s.now().UTC()
		paidAt = &now
	}

	changed, err := s.orders.Transition(ctx, order.ID, target, paidAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition order")
	}
	if !changed {
		s.logg.Info(ctx, fmt.Sprintf("order %s already settled, notification %s is a replay", orderID, paymentID))
		return nil
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":   orderID.String(),
		"payment_id": paymentID,
		"status":     target.String(),
	}), "order settled from payment notification")
	return nil
}

// targetStatus maps a MercadoPago payment status onto the order lifecycle.
// Transient statuses (pending, in_process, authorized) settle nothing.
func targetStatus(paymentStatus string) (enums.OrderStatus, bool) {
	switch paymentStatus {
	case PaymentStatusApproved:
		return enums.OrderStatusPaid, true
	case PaymentStatusRejected:
		return enums.OrderStatusFailed, true
	case PaymentStatusCancelled:
		return enums.OrderStatusCanceled, true
	default:
		return "", false
	}
}
