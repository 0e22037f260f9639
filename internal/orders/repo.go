package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// Repository wires order persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the order row together with its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByPaymentID loads the order a gateway payment id points at.
func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "mp_payment_id = ?", paymentID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByShareToken returns the orders placed through a share, newest first.
func (r *Repository) ListByShareToken(ctx context.Context, shareTokenID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("share_token_id = ?", shareTokenID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AttachPaymentID records the gateway payment reference on a pending order.
func (r *Repository) AttachPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"mp_payment_id": paymentID,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// Transition moves a pending order to its terminal payment state. The status
// guard makes replayed webhooks no-ops. Returns whether a row changed.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
