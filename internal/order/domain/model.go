package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefused  Status = "refused"
	StatusRefunded Status = "refunded"
)

// Order is the unit of business state. Created by checkout, transitioned
// to paid exclusively by the webhook reconciliation engine. Status only
// moves forward; paid never regresses.
type Order struct {
	ID                    uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Status                Status    `json:"status" gorm:"type:text;not null"`
	Provider              string    `json:"provider" gorm:"type:text;not null"`
	ProviderTransactionID *string   `json:"provider_transaction_id" gorm:"type:text"`
	CustomerEmail         string    `json:"customer_email" gorm:"type:text;not null"`
	CustomerWhatsApp      string    `json:"customer_whatsapp" gorm:"column:customer_whatsapp;type:text"`
	AmountCents           int64     `json:"amount_cents" gorm:"not null"`
	PaidAt                *time.Time `json:"paid_at"`
	CreatedAt             time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

var (
	ErrOrderNotFound  = errors.New("order_not_found")
	ErrInvalidOrder   = errors.New("invalid_order")
	ErrUpdateConflict = errors.New("order_update_conflict")
)

// MarkPaidParams carries the fields written by the paid transition.
type MarkPaidParams struct {
	TransactionID *string
	PaidAt        time.Time
	Now           time.Time
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Order, error)
	FindByTransactionID(ctx context.Context, db *gorm.DB, provider, transactionID string) (*Order, error)
	FindLatestPendingByEmail(ctx context.Context, db *gorm.DB, provider, email string) (*Order, error)
	FindLatestPaidByEmail(ctx context.Context, db *gorm.DB, provider, email string) (*Order, error)
	ListPendingByProvider(ctx context.Context, db *gorm.DB, provider string, limit int) ([]Order, error)
	// MarkPaid performs the conditional pending->paid update and reports
	// how many rows were affected. Zero rows with a non-paid order is a
	// consistency fault the caller must surface.
	MarkPaid(ctx context.Context, db *gorm.DB, id uuid.UUID, params MarkPaidParams) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
}
