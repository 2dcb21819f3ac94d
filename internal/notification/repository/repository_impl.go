package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/notification/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// ClaimPending inserts the pending row under the (order_id, type)
	// unique constraint, or takes over a row a previous attempt left in
	// failed. False means another delivery already claimed this
	// notification.
	ClaimPending(ctx context.Context, db *gorm.DB, entry *domain.LogEntry) (bool, error)
	Exists(ctx context.Context, db *gorm.DB, orderID uuid.UUID, notificationType string) (bool, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) ClaimPending(ctx context.Context, db *gorm.DB, entry *domain.LogEntry) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO notification_logs (
			id, order_id, type, status, recipient, sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, type) DO UPDATE
		SET id = excluded.id, status = excluded.status,
			recipient = excluded.recipient, created_at = excluded.created_at
		WHERE notification_logs.status = ?`,
		entry.ID,
		entry.OrderID,
		entry.Type,
		domain.StatusPending,
		entry.Recipient,
		entry.SentAt,
		entry.CreatedAt,
		domain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, orderID uuid.UUID, notificationType string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM notification_logs
		 WHERE order_id = ? AND type = ? AND status IN (?, ?, ?)`,
		orderID,
		notificationType,
		domain.StatusPending,
		domain.StatusSent,
		domain.StatusDelivered,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_logs
		 SET status = ?, sent_at = ?
		 WHERE id = ?`,
		domain.StatusSent,
		sentAt,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_logs
		 SET status = ?
		 WHERE id = ?`,
		domain.StatusFailed,
		id,
	).Error
}
