package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		 FROM orders
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, provider, transactionID string) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		 FROM orders
		 WHERE provider = ? AND provider_transaction_id = ?
		 LIMIT 1`,
		provider,
		transactionID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindLatestPendingByEmail(ctx context.Context, db *gorm.DB, provider, email string) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		 FROM orders
		 WHERE provider = ? AND customer_email = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		provider,
		email,
		domain.StatusPending,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindLatestPaidByEmail(ctx context.Context, db *gorm.DB, provider, email string) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		 FROM orders
		 WHERE provider = ? AND customer_email = ? AND status = ?
		 ORDER BY paid_at DESC
		 LIMIT 1`,
		provider,
		email,
		domain.StatusPaid,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListPendingByProvider(ctx context.Context, db *gorm.DB, provider string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		 FROM orders
		 WHERE provider = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		provider,
		domain.StatusPending,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id uuid.UUID, params domain.MarkPaidParams) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?,
			provider_transaction_id = COALESCE(?, provider_transaction_id),
			paid_at = ?,
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid,
		params.TransactionID,
		params.PaidAt,
		params.Now,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, status, provider, provider_transaction_id, customer_email,
			customer_whatsapp, amount_cents, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Status,
		order.Provider,
		order.ProviderTransactionID,
		order.CustomerEmail,
		order.CustomerWhatsApp,
		order.AmountCents,
		order.PaidAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}
