package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/clock"
	"github.com/serenatalabs/serenata/internal/config"
	"github.com/serenatalabs/serenata/internal/notification/domain"
	"github.com/serenatalabs/serenata/internal/notification/repository"
	"github.com/serenatalabs/serenata/internal/notification/service"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_notify_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE notification_logs (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			recipient TEXT NOT NULL,
			sent_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_notification_logs_order_type ON notification_logs(order_id, type)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to []string, _ string, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to...)
	return nil
}

func newService(t *testing.T, db *gorm.DB, mail *fakeEmail) *service.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	holder := config.NewStaticReconcileHolder(config.ReconcileConfig{
		NotificationWindowSeconds:  30,
		RecheckDelayMillis:         0,
		LyricsMaxAttempts:          3,
		LyricsBackoffMillis:        1,
		LyricsAttemptTimeoutMillis: 100,
	})
	return service.NewService(service.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Now().UTC()),
		Repo:   repository.Provide(),
		Email:  mail,
		Holder: holder,
	})
}

func paidOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:            uuid.New(),
		Status:        orderdomain.StatusPaid,
		CustomerEmail: "cliente@example.com",
		AmountCents:   4790,
	}
}

func TestSendPaymentConfirmation(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeEmail{}
	svc := newService(t, db, mail)
	order := paidOrder()

	sent, err := svc.SendPaymentConfirmation(context.Background(), order)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !sent {
		t.Fatal("expected a send on first delivery")
	}
	if len(mail.sent) != 1 || mail.sent[0] != order.CustomerEmail {
		t.Fatalf("sent to %v", mail.sent)
	}

	var status string
	if err := db.Raw(
		`SELECT status FROM notification_logs WHERE order_id = ? AND type = ?`,
		order.ID, domain.TypePaymentConfirmation,
	).Scan(&status).Error; err != nil {
		t.Fatalf("read log: %v", err)
	}
	if status != string(domain.StatusSent) {
		t.Fatalf("log status = %q, want sent", status)
	}
}

func TestSendPaymentConfirmationIsOncePerOrder(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeEmail{}
	svc := newService(t, db, mail)
	order := paidOrder()

	for i := 0; i < 3; i++ {
		if _, err := svc.SendPaymentConfirmation(context.Background(), order); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails, want exactly 1", len(mail.sent))
	}
}

func TestSendPaymentConfirmationPendingClaimBlocksResend(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeEmail{}
	svc := newService(t, db, mail)
	order := paidOrder()

	// A concurrent delivery already claimed the row but has not sent yet.
	node, _ := snowflake.NewNode(2)
	claimed, err := repository.Provide().ClaimPending(context.Background(), db, &domain.LogEntry{
		ID:        node.Generate(),
		OrderID:   order.ID,
		Type:      domain.TypePaymentConfirmation,
		Recipient: order.CustomerEmail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil || !claimed {
		t.Fatalf("seed claim: claimed=%v err=%v", claimed, err)
	}

	sent, err := svc.SendPaymentConfirmation(context.Background(), order)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent || len(mail.sent) != 0 {
		t.Fatalf("duplicate delivery sent anyway (sent=%v, emails=%d)", sent, len(mail.sent))
	}
}

func TestSendPaymentConfirmationNoRecipient(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db, &fakeEmail{})
	order := paidOrder()
	order.CustomerEmail = ""

	_, err := svc.SendPaymentConfirmation(context.Background(), order)
	if !errors.Is(err, domain.ErrNoRecipient) {
		t.Fatalf("err = %v, want ErrNoRecipient", err)
	}
}

func TestSendPaymentConfirmationMarksFailedOnSendError(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeEmail{err: errors.New("smtp down")}
	svc := newService(t, db, mail)
	order := paidOrder()

	sent, err := svc.SendPaymentConfirmation(context.Background(), order)
	if err == nil || sent {
		t.Fatalf("expected send failure, got sent=%v err=%v", sent, err)
	}

	var status string
	if err := db.Raw(
		`SELECT status FROM notification_logs WHERE order_id = ?`, order.ID,
	).Scan(&status).Error; err != nil {
		t.Fatalf("read log: %v", err)
	}
	if status != string(domain.StatusFailed) {
		t.Fatalf("log status = %q, want failed", status)
	}
}

func TestSendPaymentConfirmationRetriesAfterFailure(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeEmail{err: errors.New("smtp down")}
	svc := newService(t, db, mail)
	order := paidOrder()

	if sent, err := svc.SendPaymentConfirmation(context.Background(), order); err == nil || sent {
		t.Fatalf("expected send failure, got sent=%v err=%v", sent, err)
	}

	// The failed claim row must not block the next attempt forever.
	mail.err = nil
	sent, err := svc.SendPaymentConfirmation(context.Background(), order)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !sent {
		t.Fatal("retry did not reclaim the failed notification")
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mail.sent))
	}

	var rows int64
	if err := db.Raw(
		`SELECT COUNT(*) FROM notification_logs WHERE order_id = ? AND status = ?`,
		order.ID, domain.StatusSent,
	).Scan(&rows).Error; err != nil {
		t.Fatalf("read log: %v", err)
	}
	if rows != 1 {
		t.Fatalf("sent rows = %d, want 1", rows)
	}
}
