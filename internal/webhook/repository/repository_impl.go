package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/webhook/domain"
	"gorm.io/gorm"
)

// Repository persists the append-only webhook audit log.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *domain.AuditRecord) error
	// CountRecentProcessed counts successfully processed deliveries for
	// an order since the cutoff. The orchestrator uses it to spot
	// racing duplicate deliveries.
	CountRecentProcessed(ctx context.Context, db *gorm.DB, orderID uuid.UUID, since time.Time) (int64, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.AuditRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_logs (
			id, provider, event_type, payload, transaction_id, order_id,
			strategy, outcome, success, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Provider,
		record.EventType,
		record.Payload,
		record.TransactionID,
		record.OrderID,
		record.Strategy,
		record.Outcome,
		record.Success,
		record.Error,
		record.DurationMS,
		record.CreatedAt,
	).Error
}

func (r *repo) CountRecentProcessed(ctx context.Context, db *gorm.DB, orderID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM webhook_logs
		 WHERE order_id = ? AND success = ? AND created_at >= ?`,
		orderID,
		true,
		since,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
