package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/clock"
	"github.com/serenatalabs/serenata/internal/config"
	"github.com/serenatalabs/serenata/internal/lyrics"
	notifdomain "github.com/serenatalabs/serenata/internal/notification/domain"
	notifservice "github.com/serenatalabs/serenata/internal/notification/service"
	"github.com/serenatalabs/serenata/internal/observability/metrics"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"github.com/serenatalabs/serenata/internal/webhook/domain"
	"github.com/serenatalabs/serenata/internal/webhook/matcher"
	"github.com/serenatalabs/serenata/internal/webhook/normalizer"
	"github.com/serenatalabs/serenata/internal/webhook/repository"
	"github.com/serenatalabs/serenata/internal/webhook/verifier"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Holder        *config.ReconcileConfigHolder
	Matcher       *matcher.Matcher
	Orders        orderdomain.Repository
	Audit         repository.Repository
	Notifications *notifservice.Service
	Lyrics        *lyrics.Client
	Metrics       *metrics.Metrics `optional:"true"`
}

// Service is the reconciliation pipeline for inbound Cakto payment
// webhooks: verify, normalize, match, transition, then side effects.
// Every delivery ends with one audit row regardless of outcome.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	cfg           config.Config
	holder        *config.ReconcileConfigHolder
	matcher       *matcher.Matcher
	orders        orderdomain.Repository
	audit         repository.Repository
	notifications *notifservice.Service
	lyrics        *lyrics.Client
	metrics       *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("webhook.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		cfg:           p.Config,
		holder:        p.Holder,
		matcher:       p.Matcher,
		orders:        p.Orders,
		audit:         p.Audit,
		notifications: p.Notifications,
		lyrics:        p.Lyrics,
		metrics:       p.Metrics,
	}
}

// Process runs one webhook delivery through the pipeline and reports
// the terminal outcome. Side-effect failures (notification, lyrics
// trigger) are logged and surfaced in the result booleans but never
// turn a processed delivery into an error.
func (s *Service) Process(ctx context.Context, headers http.Header, body []byte) *domain.Result {
	start := s.clock.Now()
	result := &domain.Result{Strategy: domain.StrategyNone}

	var event *domain.PaymentEvent
	defer func() {
		s.writeAudit(ctx, start, body, event, result)
		s.metrics.RecordWebhook(string(result.Outcome), string(result.Strategy), s.clock.Now().Sub(start))
	}()

	if err := verifier.Verify(verifier.Config{
		WebhookSecret: s.cfg.CaktoWebhookSecret,
		InternalToken: s.cfg.InternalAPIToken,
	}, headers, body); err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			return result.Fail(domain.OutcomeInvalidPayload, err)
		}
		return result.Fail(domain.OutcomeBadSignature, err)
	}

	cfg := s.holder.Get()

	var err error
	event, err = normalizer.Normalize(body, normalizer.Options{
		AssumeApprovedOnEmptyStatus: cfg.AssumeApprovedOnEmptyStatus,
	})
	if err != nil {
		if errors.Is(err, domain.ErrMissingIdentifiers) {
			return result.Fail(domain.OutcomeMissingIdentifiers, err)
		}
		return result.Fail(domain.OutcomeInvalidPayload, err)
	}

	if event.Status != domain.StatusApproved {
		s.log.Info("ignoring non-approval event",
			zap.String("event_type", event.EventType),
			zap.String("status", string(event.Status)),
		)
		result.Outcome = domain.OutcomeIgnored
		return result
	}

	match, err := s.matcher.Match(ctx, event)
	if err != nil {
		return result.Fail(domain.OutcomeInternalError, err)
	}
	if match.Order == nil {
		return result.Fail(domain.OutcomeOrderNotFound, orderdomain.ErrOrderNotFound)
	}
	result.OrderID = match.Order.ID
	result.Strategy = match.Strategy

	if !match.Strategy.Reliable() {
		if err := s.matcher.CrossCheck(match.Order, event); err != nil {
			return result.Fail(domain.OutcomeIdentityMismatch, err)
		}
	}

	if match.Order.Status == orderdomain.StatusPaid {
		result.Outcome = domain.OutcomeProcessed
		result.AlreadyPaid = true
	} else {
		if err := s.markPaid(ctx, match.Order, event); err != nil {
			return result.Fail(domain.OutcomeInternalError, err)
		}
		result.Outcome = domain.OutcomeProcessed
	}

	// Redeliveries reach the side effects too; the notification claim
	// row and the generation service's idempotency suppress duplicates,
	// and a repeat retries effects the settling delivery lost.
	s.runSideEffects(ctx, match.Order, result)
	return result
}

func (s *Service) markPaid(ctx context.Context, order *orderdomain.Order, event *domain.PaymentEvent) error {
	now := s.clock.Now()
	paidAt := now
	if event.PaidAt != nil {
		paidAt = *event.PaidAt
	}
	var txnID *string
	if event.TransactionID != "" {
		txnID = &event.TransactionID
	}

	rows, err := s.orders.MarkPaid(ctx, s.db, order.ID, orderdomain.MarkPaidParams{
		TransactionID: txnID,
		PaidAt:        paidAt,
		Now:           now,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		// The order was pending a moment ago and the guarded update
		// still hit nothing. Something else mutated it mid-flight.
		s.log.Error("paid transition affected zero rows",
			zap.String("order_id", order.ID.String()),
		)
		return orderdomain.ErrUpdateConflict
	}

	order.Status = orderdomain.StatusPaid
	order.PaidAt = &paidAt
	if txnID != nil {
		order.ProviderTransactionID = txnID
	}
	return nil
}

func (s *Service) runSideEffects(ctx context.Context, order *orderdomain.Order, result *domain.Result) {
	cfg := s.holder.Get()

	skipNotification := false
	since := s.clock.Now().Add(-cfg.NotificationWindow())
	recent, err := s.audit.CountRecentProcessed(ctx, s.db, order.ID, since)
	if err != nil {
		s.log.Warn("audit recency check failed", zap.Error(err))
	} else if recent >= 2 {
		s.log.Info("suspected duplicate burst, skipping notification",
			zap.String("order_id", order.ID.String()),
			zap.Int64("recent_processed", recent),
		)
		skipNotification = true
	}

	if !skipNotification {
		sent, err := s.notifications.SendPaymentConfirmation(ctx, order)
		switch {
		case errors.Is(err, notifdomain.ErrNoRecipient):
			s.log.Warn("order has no notification recipient",
				zap.String("order_id", order.ID.String()),
			)
			s.metrics.RecordNotification("skipped")
		case err != nil:
			s.log.Error("confirmation notification failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			s.metrics.RecordNotification("failed")
		case sent:
			result.NotificationSent = true
			s.metrics.RecordNotification("sent")
		default:
			s.metrics.RecordNotification("deduplicated")
		}
	}

	if err := s.lyrics.TriggerWithRetry(ctx, order.ID); err != nil {
		s.log.Error("lyrics trigger failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		s.metrics.RecordLyricsTrigger("failed")
	} else {
		result.LyricsGenerated = true
		s.metrics.RecordLyricsTrigger("triggered")
	}
}

func (s *Service) writeAudit(ctx context.Context, start time.Time, body []byte, event *domain.PaymentEvent, result *domain.Result) {
	record := &domain.AuditRecord{
		ID:         s.genID.Generate(),
		Provider:   domain.Provider,
		Payload:    datatypes.JSON(body),
		Strategy:   string(result.Strategy),
		Outcome:    string(result.Outcome),
		Success:    result.Outcome == domain.OutcomeProcessed,
		DurationMS: s.clock.Now().Sub(start).Milliseconds(),
		CreatedAt:  s.clock.Now(),
	}
	if event != nil {
		record.EventType = event.EventType
		record.TransactionID = event.TransactionID
	}
	if result.OrderID != uuid.Nil {
		id := result.OrderID
		record.OrderID = &id
	}
	if result.Err != nil {
		msg := result.Err.Error()
		record.Error = &msg
	}

	if err := s.audit.Insert(ctx, s.db, record); err != nil {
		s.log.Error("failed to write webhook audit row", zap.Error(err))
	}
}
