package matcher

import (
	"context"
	"strings"

	"github.com/google/uuid"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"github.com/serenatalabs/serenata/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cakto drops the transaction id on some event shapes and backfills a
// short placeholder on others; anything shorter than this is noise.
const minTransactionIDLen = 6

const pendingScanLimit = 200

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Orders orderdomain.Repository
}

// Matcher locates the one order an inbound event refers to by running
// an ordered cascade of lookup strategies, most reliable first.
type Matcher struct {
	db     *gorm.DB
	log    *zap.Logger
	orders orderdomain.Repository
}

func New(p Params) *Matcher {
	return &Matcher{
		db:     p.DB,
		log:    p.Log.Named("webhook.matcher"),
		orders: p.Orders,
	}
}

// Match runs the strategy cascade and stops at the first hit. A
// strategy is only attempted when its identifier is usable; a miss
// falls through to the next one.
func (m *Matcher) Match(ctx context.Context, event *domain.PaymentEvent) (domain.MatchResult, error) {
	if id, err := uuid.Parse(event.OrderIDHint); err == nil {
		order, lookupErr := m.orders.FindByID(ctx, m.db, id)
		if lookupErr != nil {
			return domain.MatchResult{Strategy: domain.StrategyNone}, lookupErr
		}
		if order != nil && order.Provider == domain.Provider {
			return domain.MatchResult{Order: order, Strategy: domain.StrategyOrderIDHint}, nil
		}
	}

	if len(event.TransactionID) >= minTransactionIDLen {
		order, err := m.orders.FindByTransactionID(ctx, m.db, domain.Provider, event.TransactionID)
		if err != nil {
			return domain.MatchResult{Strategy: domain.StrategyNone}, err
		}
		if order != nil {
			return domain.MatchResult{Order: order, Strategy: domain.StrategyTransactionID}, nil
		}
	}

	if event.CustomerEmail != "" {
		order, err := m.orders.FindLatestPendingByEmail(ctx, m.db, domain.Provider, event.CustomerEmail)
		if err != nil {
			return domain.MatchResult{Strategy: domain.StrategyNone}, err
		}
		if order == nil {
			// A redelivery arrives after the first copy already settled
			// the order, and Cakto events matched by email carry no
			// transaction id to find it by. The most recent paid order
			// for the email is still that order; the already-paid guard
			// downstream keeps the repeat idempotent.
			order, err = m.orders.FindLatestPaidByEmail(ctx, m.db, domain.Provider, event.CustomerEmail)
			if err != nil {
				return domain.MatchResult{Strategy: domain.StrategyNone}, err
			}
		}
		if order != nil {
			return domain.MatchResult{Order: order, Strategy: domain.StrategyEmailRecentPending}, nil
		}
	}

	if event.PhoneDigits != "" {
		pending, err := m.orders.ListPendingByProvider(ctx, m.db, domain.Provider, pendingScanLimit)
		if err != nil {
			return domain.MatchResult{Strategy: domain.StrategyNone}, err
		}
		for i := range pending {
			if phoneMatches(pending[i].CustomerWhatsApp, event.PhoneDigits) {
				return domain.MatchResult{Order: &pending[i], Strategy: domain.StrategyPhoneRecentPending}, nil
			}
		}
	}

	return domain.MatchResult{Strategy: domain.StrategyNone}, nil
}

// CrossCheck guards the unreliable email path: the matched order must
// agree with the event on email or, failing that, on phone. Reliable
// strategies skip this entirely.
func (m *Matcher) CrossCheck(order *orderdomain.Order, event *domain.PaymentEvent) error {
	if strings.EqualFold(strings.TrimSpace(order.CustomerEmail), event.CustomerEmail) && event.CustomerEmail != "" {
		return nil
	}
	if event.PhoneDigits != "" && phoneMatches(order.CustomerWhatsApp, event.PhoneDigits) {
		return nil
	}
	return domain.ErrIdentityMismatch
}

// phoneMatches compares digit-normalized numbers, tolerating country
// code prefix drift: equal, or one a suffix of the other.
func phoneMatches(stored string, eventDigits string) bool {
	storedDigits := digitsOnly(stored)
	if storedDigits == "" || eventDigits == "" {
		return false
	}
	return storedDigits == eventDigits ||
		strings.HasSuffix(storedDigits, eventDigits) ||
		strings.HasSuffix(eventDigits, storedDigits)
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
