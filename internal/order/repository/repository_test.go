package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/order/domain"
	"github.com/serenatalabs/serenata/internal/order/repository"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_orders_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		provider TEXT NOT NULL,
		provider_transaction_id TEXT,
		customer_email TEXT NOT NULL,
		customer_whatsapp TEXT,
		amount_cents BIGINT NOT NULL,
		paid_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("schema exec failed: %v", err)
	}
	return db
}

// The raw selects name the customer_whatsapp column explicitly; the
// struct field must map onto it or phone matching reads empty strings.
func TestWhatsAppColumnRoundTrips(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	order := &domain.Order{
		ID:               uuid.New(),
		Status:           domain.StatusPending,
		Provider:         "cakto",
		CustomerEmail:    "a@x.com",
		CustomerWhatsApp: "11988887777",
		AmountCents:      4790,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := repo.Insert(ctx, db, order); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByID(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if got.CustomerWhatsApp != "11988887777" {
		t.Fatalf("whatsapp = %q, want 11988887777", got.CustomerWhatsApp)
	}

	pending, err := repo.ListPendingByProvider(ctx, db, "cakto", 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].CustomerWhatsApp != "11988887777" {
		t.Fatalf("pending whatsapp = %v", pending)
	}
}

func TestFindLatestPaidByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	earlier := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	later := time.Now().UTC().Add(-1 * time.Hour).Truncate(time.Second)
	for _, paidAt := range []time.Time{earlier, later} {
		at := paidAt
		if err := repo.Insert(ctx, db, &domain.Order{
			ID:            uuid.New(),
			Status:        domain.StatusPaid,
			Provider:      "cakto",
			CustomerEmail: "a@x.com",
			AmountCents:   100,
			PaidAt:        &at,
			CreatedAt:     at,
			UpdatedAt:     at,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := repo.FindLatestPaidByEmail(ctx, db, "cakto", "a@x.com")
	if err != nil {
		t.Fatalf("find latest paid: %v", err)
	}
	if got == nil || got.PaidAt == nil || !got.PaidAt.Equal(later) {
		t.Fatalf("wrong order returned: %+v", got)
	}

	missing, err := repo.FindLatestPaidByEmail(ctx, db, "cakto", "nobody@x.com")
	if err != nil {
		t.Fatalf("find latest paid: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown email, got %+v", missing)
	}
}
