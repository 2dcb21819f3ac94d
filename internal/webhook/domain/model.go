package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"gorm.io/datatypes"
)

// Provider is the payment processor this engine reconciles against.
const Provider = "cakto"

// Status is the normalized classification of a vendor event.
type Status string

const (
	StatusApproved     Status = "approved"
	StatusRefused      Status = "refused"
	StatusRefunded     Status = "refunded"
	StatusUnclassified Status = "unclassified"
)

// PaymentEvent is the canonical form of an inbound Cakto notification.
// It is built fresh per request and only persisted as part of the audit
// log, never as its own row.
type PaymentEvent struct {
	EventType     string
	TransactionID string
	OrderIDHint   string
	CustomerEmail string // lowercase, trimmed
	CustomerPhone string // as received
	PhoneDigits   string // digits only, for comparison
	AmountCents   int64
	PaidAt        *time.Time
	Status        Status
}

// MatchStrategy identifies which lookup located the order. The reliable
// strategies are sufficient alone to authorize mutation; the email path
// additionally requires the identity cross-check.
type MatchStrategy string

const (
	StrategyOrderIDHint        MatchStrategy = "order_id_hint"
	StrategyTransactionID      MatchStrategy = "provider_transaction_id"
	StrategyEmailRecentPending MatchStrategy = "email_most_recent_pending"
	StrategyPhoneRecentPending MatchStrategy = "phone_most_recent_pending"
	StrategyNone               MatchStrategy = "none"
)

func (s MatchStrategy) Reliable() bool {
	switch s {
	case StrategyOrderIDHint, StrategyTransactionID, StrategyPhoneRecentPending:
		return true
	default:
		return false
	}
}

type MatchResult struct {
	Order    *orderdomain.Order
	Strategy MatchStrategy
}

// Outcome is the terminal classification of one webhook delivery.
type Outcome string

const (
	OutcomeProcessed          Outcome = "processed"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeBadSignature       Outcome = "bad_signature"
	OutcomeInvalidPayload     Outcome = "invalid_payload"
	OutcomeMissingIdentifiers Outcome = "missing_identifiers"
	OutcomeOrderNotFound      Outcome = "order_not_found"
	OutcomeIdentityMismatch   Outcome = "identity_mismatch"
	OutcomeInternalError      Outcome = "internal_error"
)

// Result is what the engine reports back to the HTTP layer.
type Result struct {
	Outcome          Outcome
	OrderID          uuid.UUID
	Strategy         MatchStrategy
	AlreadyPaid      bool
	NotificationSent bool
	LyricsGenerated  bool
	Err              error
}

// Fail stamps the terminal outcome and error on the result and returns
// it, so pipeline stages can bail out in one expression.
func (r *Result) Fail(outcome Outcome, err error) *Result {
	r.Outcome = outcome
	r.Err = err
	return r
}

// AuditRecord is one append-only row per inbound delivery, written
// around the whole pipeline. The orchestrator's duplicate-detection
// queries read these rows back.
type AuditRecord struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider      string         `json:"provider" gorm:"type:text;not null"`
	EventType     string         `json:"event_type" gorm:"type:text"`
	Payload       datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	TransactionID string         `json:"transaction_id" gorm:"type:text"`
	OrderID       *uuid.UUID     `json:"order_id" gorm:"type:uuid"`
	Strategy      string         `json:"strategy" gorm:"type:text;not null"`
	Outcome       string         `json:"outcome" gorm:"type:text;not null"`
	Success       bool           `json:"success" gorm:"not null"`
	Error         *string        `json:"error" gorm:"type:text"`
	DurationMS    int64          `json:"duration_ms" gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
}

func (AuditRecord) TableName() string { return "webhook_logs" }

var (
	ErrBadSignature       = errors.New("bad_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrMissingIdentifiers = errors.New("missing_identifiers")
	ErrIdentityMismatch   = errors.New("identity_mismatch")
)
