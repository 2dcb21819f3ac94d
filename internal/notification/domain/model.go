package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

const TypePaymentConfirmation = "payment_confirmation"

// LogEntry is one attempted customer-facing send. The unique
// (order_id, type) constraint makes the pending insert the atomic
// claim point for duplicate suppression.
type LogEntry struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID   uuid.UUID    `json:"order_id" gorm:"type:uuid;not null;uniqueIndex:ux_notification_logs_order_type"`
	Type      string       `json:"type" gorm:"type:text;not null;uniqueIndex:ux_notification_logs_order_type"`
	Status    Status       `json:"status" gorm:"type:text;not null"`
	Recipient string       `json:"recipient" gorm:"type:text;not null"`
	SentAt    *time.Time   `json:"sent_at"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (LogEntry) TableName() string { return "notification_logs" }

var ErrNoRecipient = errors.New("notification_no_recipient")
