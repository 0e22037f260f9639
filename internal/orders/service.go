package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

const (
	maxOrderItems   = 100
	maxItemQuantity = 50
	defaultCurrency = "ARS"
)

type shareGate interface {
	FindByToken(ctx context.Context, token string) (*models.ShareToken, error)
	ContentPhotoIDs(ctx context.Context, tokenID uuid.UUID) ([]uuid.UUID, error)
}

type ordersRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByShareToken(ctx context.Context, shareTokenID uuid.UUID) ([]models.Order, error)
	AttachPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
}

// Service exposes the storefront order flow.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByShareToken(ctx context.Context, shareTokenID uuid.UUID) ([]models.Order, error)
	AttachPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
}

// ItemInput is one purchased photo in an order request.
type ItemInput struct {
	PhotoID   uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderInput models a visitor's checkout request. The share token is
// the visitor's only credential.
type CreateOrderInput struct {
	ShareToken   string
	ContactName  string
	ContactEmail string
	Items        []ItemInput
}

type service struct {
	repo   ordersRepository
	shares shareGate
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the order service.
func NewService(repo ordersRepository, shares shareGate, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if shares == nil {
		return nil, fmt.Errorf("share gate required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, shares: shares, logg: logg, now: time.Now}, nil
}

// Create places a pending order. Every item must reference a photo inside
// the share's materialized scope; a photo outside it rejects the whole order.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.ShareToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share token is required")
	}
	name := strings.TrimSpace(input.ContactName)
	email := strings.TrimSpace(input.ContactEmail)
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact name and email are required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order items are required")
	}
	if len(input.Items) > maxOrderItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order exceeds %d items", maxOrderItems))
	}

	share, err := s.shares.FindByToken(ctx, input.ShareToken)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeShareNotFound, "share not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading share")
	}
	if !share.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeShareRevoked, "share has been revoked")
	}
	if share.IsExpired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeShareExpired, "share has expired")
	}

	scopeIDs, err := s.shares.ContentPhotoIDs(ctx, share.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading share contents")
	}
	inScope := make(map[uuid.UUID]bool, len(scopeIDs))
	for _, id := range scopeIDs {
		inScope[id] = true
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	seen := map[uuid.UUID]bool{}
	for _, item := range input.Items {
		if item.PhotoID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item needs a photo id")
		}
		if item.Quantity <= 0 || item.Quantity > maxItemQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity out of range")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
		}
		if !inScope[item.PhotoID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("photo %s is not covered by this share", item.PhotoID))
		}
		if seen[item.PhotoID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate photo in order")
		}
		seen[item.PhotoID] = true

		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			PhotoID:   item.PhotoID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order := &models.Order{
		ID:           uuid.New(),
		ShareTokenID: share.ID,
		EventID:      share.EventID,
		ContactName:  name,
		ContactEmail: email,
		Status:       enums.OrderStatusPending,
		Total:        total,
		Currency:     defaultCurrency,
		Items:        items,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": created.ID.String(),
		"share_id": share.ID.String(),
		"total":    total.StringFixed(2),
		"items":    len(items),
	}), "order placed")

	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) ListByShareToken(ctx context.Context, shareTokenID uuid.UUID) ([]models.Order, error) {
	if shareTokenID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share token id is required")
	}
	rows, err := s.repo.ListByShareToken(ctx, shareTokenID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return rows, nil
}

func (s *service) AttachPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	if id == uuid.Nil || strings.TrimSpace(paymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and payment id are required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AttachPaymentID(ctx, id, paymentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching payment id")
	}
	return nil
}
