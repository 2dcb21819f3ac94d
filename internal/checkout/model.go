package checkout

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Quiz holds the answers the customer gave in the song questionnaire.
// The generation pipeline reads it later; this service only stores it.
type Quiz struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID      `json:"order_id" gorm:"type:uuid;not null"`
	Answers   datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

func (Quiz) TableName() string { return "quizzes" }

// Session maps a client-supplied idempotency key to the order it
// created, so retried checkout submissions return the same order.
type Session struct {
	SessionID string    `json:"session_id" gorm:"type:text;primaryKey"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Session) TableName() string { return "checkout_sessions" }

type CreateRequest struct {
	SessionID        string         `json:"session_id" binding:"required"`
	CustomerEmail    string         `json:"customer_email" binding:"required"`
	CustomerWhatsApp string         `json:"customer_whatsapp"`
	AmountCents      int64          `json:"amount_cents" binding:"required"`
	Answers          map[string]any `json:"answers"`
}

type CreateResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
	Created bool      `json:"created"`
}

var ErrInvalidRequest = errors.New("invalid_checkout_request")
