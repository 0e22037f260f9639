package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := `
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	share_token_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	contact_name TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	total NUMERIC NOT NULL,
	currency TEXT NOT NULL DEFAULT 'ARS',
	mp_payment_id TEXT,
	paid_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX uniq_mp_payment ON orders (mp_payment_id) WHERE mp_payment_id IS NOT NULL;
CREATE TABLE order_items (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	unit_price NUMERIC NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, gdb.Exec(ddl).Error)
	return gdb
}

func seedOrder(t *testing.T, repo *Repository, itemCount int) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:           uuid.New(),
		ShareTokenID: uuid.New(),
		EventID:      uuid.New(),
		ContactName:  "Laura Fernández",
		ContactEmail: "laura@example.com",
		Status:       enums.OrderStatusPending,
		Total:        decimal.NewFromInt(int64(itemCount) * 1500),
		Currency:     "ARS",
	}
	for i := 0; i < itemCount; i++ {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			PhotoID:   uuid.New(),
			Quantity:  1,
			UnitPrice: decimal.NewFromInt(1500),
		})
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	order := seedOrder(t, repo, 2)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	require.Equal(t, enums.OrderStatusPending, found.Status)
	require.True(t, found.Total.Equal(decimal.NewFromInt(3000)))
}

func TestRepositoryTransitionGuard(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	order := seedOrder(t, repo, 1)
	paidAt := time.Now().UTC()

	changed, err := repo.Transition(ctx, order.ID, enums.OrderStatusPaid, &paidAt)
	require.NoError(t, err)
	require.True(t, changed)

	// A replayed webhook finds no pending row to move.
	changed, err = repo.Transition(ctx, order.ID, enums.OrderStatusFailed, nil)
	require.NoError(t, err)
	require.False(t, changed)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, found.Status)
	require.NotNil(t, found.PaidAt)
}

func TestRepositoryAttachPaymentID(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	order := seedOrder(t, repo, 1)
	require.NoError(t, repo.AttachPaymentID(ctx, order.ID, "mp-12345"))

	found, err := repo.FindByPaymentID(ctx, "mp-12345")
	require.NoError(t, err)
	require.Equal(t, order.ID, found.ID)

	_, err = repo.FindByPaymentID(ctx, "mp-unknown")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListByShareToken(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	first := seedOrder(t, repo, 1)

	rows, err := repo.ListByShareToken(ctx, first.ShareTokenID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = repo.ListByShareToken(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, rows)
}
