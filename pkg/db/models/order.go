package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// Order is a storefront purchase placed by a visitor through a share token.
// It stays pending until the payment webhook confirms or rejects it.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShareTokenID uuid.UUID         `gorm:"column:share_token_id;type:uuid;not null;index"`
	EventID      uuid.UUID         `gorm:"column:event_id;type:uuid;not null;index"`
	ContactName  string            `gorm:"column:contact_name;not null"`
	ContactEmail string            `gorm:"column:contact_email;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Currency     string            `gorm:"column:currency;not null;default:'ARS'"`
	MPPaymentID  *string           `gorm:"column:mp_payment_id;uniqueIndex:uniq_mp_payment"`
	PaidAt       *time.Time        `gorm:"column:paid_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem is one purchased photo/print option inside an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	PhotoID   uuid.UUID       `gorm:"column:photo_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
