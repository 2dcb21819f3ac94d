package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/serenatalabs/serenata/internal/clock"
	"github.com/serenatalabs/serenata/internal/config"
	"github.com/serenatalabs/serenata/internal/notification/domain"
	"github.com/serenatalabs/serenata/internal/notification/repository"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"github.com/serenatalabs/serenata/internal/providers/email"
	"github.com/serenatalabs/serenata/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   repository.Repository
	Email  email.Provider
	Holder *config.ReconcileConfigHolder
	Locker *ratelimit.Locker `optional:"true"`
}

// Service sends customer-facing notifications at most once per
// (order, type). The pending-row claim insert is the atomic dedup
// point; the delay-then-recheck ahead of it only narrows the window so
// most racing duplicates skip before touching the constraint.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   repository.Repository
	email  email.Provider
	holder *config.ReconcileConfigHolder
	locker *ratelimit.Locker
}

func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("notification.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		email:  p.Email,
		holder: p.Holder,
		locker: p.Locker,
	}
}

// SendPaymentConfirmation dispatches the payment-confirmation email for
// the order unless one was already sent or claimed. Returns whether
// this invocation performed the send.
func (s *Service) SendPaymentConfirmation(ctx context.Context, order *orderdomain.Order) (bool, error) {
	if order.CustomerEmail == "" {
		return false, domain.ErrNoRecipient
	}
	cfg := s.holder.Get()

	exists, err := s.repo.Exists(ctx, s.db, order.ID, domain.TypePaymentConfirmation)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// Heuristic: a near-simultaneous duplicate delivery may have passed
	// the check above a moment ago but not claimed yet. Waiting and
	// re-reading lets one of the two see the other's row. Not a mutual
	// exclusion primitive; the claim insert below is.
	if delay := cfg.RecheckDelay(); delay > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
		exists, err = s.repo.Exists(ctx, s.db, order.ID, domain.TypePaymentConfirmation)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	if s.locker != nil {
		key := "notify:" + order.ID.String()
		token, acquired, lockErr := s.locker.TryLock(ctx, key, lockTTL)
		if lockErr != nil {
			s.log.Warn("notification lock unavailable, relying on claim insert", zap.Error(lockErr))
		} else if !acquired {
			return false, nil
		} else {
			defer func() {
				_ = s.locker.Release(ctx, key, token)
			}()
		}
	}

	now := s.clock.Now()
	entry := &domain.LogEntry{
		ID:        s.genID.Generate(),
		OrderID:   order.ID,
		Type:      domain.TypePaymentConfirmation,
		Recipient: order.CustomerEmail,
		CreatedAt: now,
	}
	claimed, err := s.repo.ClaimPending(ctx, s.db, entry)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if err := s.email.Send(ctx, []string{order.CustomerEmail}, confirmationSubject, confirmationBody(order)); err != nil {
		if markErr := s.repo.MarkFailed(ctx, s.db, entry.ID); markErr != nil {
			s.log.Warn("failed to mark notification failed", zap.Error(markErr))
		}
		return false, err
	}

	if err := s.repo.MarkSent(ctx, s.db, entry.ID, s.clock.Now()); err != nil {
		// The email went out; a stale pending row is an audit nuisance,
		// not a correctness problem.
		s.log.Warn("failed to mark notification sent",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
	return true, nil
}

const confirmationSubject = "Pagamento confirmado! Sua música está a caminho"

func confirmationBody(order *orderdomain.Order) string {
	return fmt.Sprintf(
		`<p>Recebemos seu pagamento de R$ %d,%02d.</p>
<p>Sua música personalizada já está em produção. Em breve você recebe o resultado por aqui.</p>
<p>Pedido: %s</p>`,
		order.AmountCents/100,
		order.AmountCents%100,
		order.ID,
	)
}
