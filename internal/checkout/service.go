package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/clock"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	webhookdomain "github.com/serenatalabs/serenata/internal/webhook/domain"
	"github.com/serenatalabs/serenata/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Orders orderdomain.Repository
}

// Service creates the pending orders the webhook engine later
// reconciles. Creation is idempotent per client session id.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	orders orderdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("checkout.service"),
		clock:  p.Clock,
		orders: p.Orders,
	}
}

// Create stores one quiz plus one pending order for the session. A
// repeated session id returns the order the first submission created.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if resp, err := s.findExisting(ctx, req.SessionID); err != nil || resp != nil {
		return resp, err
	}

	now := s.clock.Now()
	order := &orderdomain.Order{
		ID:               uuid.New(),
		Status:           orderdomain.StatusPending,
		Provider:         webhookdomain.Provider,
		CustomerEmail:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerWhatsApp: strings.TrimSpace(req.CustomerWhatsApp),
		AmountCents:      req.AmountCents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("%w: unserializable answers", ErrInvalidRequest)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.Insert(ctx, tx, order); err != nil {
			return err
		}
		if err := tx.Exec(
			`INSERT INTO quizzes (id, order_id, answers, created_at) VALUES (?, ?, ?, ?)`,
			uuid.New(), order.ID, datatypes.JSON(answers), now,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO checkout_sessions (session_id, order_id, created_at) VALUES (?, ?, ?)`,
			req.SessionID, order.ID, now,
		).Error
	})
	if err != nil {
		// Lost a race on the session key: another submission with the
		// same id committed first. Surface its order.
		if db.IsDuplicateKeyErr(err) {
			if resp, findErr := s.findExisting(ctx, req.SessionID); findErr == nil && resp != nil {
				return resp, nil
			}
		}
		return nil, err
	}

	s.log.Info("checkout created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", req.SessionID),
	)
	return &CreateResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
		Created: true,
	}, nil
}

func (s *Service) findExisting(ctx context.Context, sessionID string) (*CreateResponse, error) {
	var session Session
	err := s.db.WithContext(ctx).Raw(
		`SELECT session_id, order_id, created_at FROM checkout_sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.OrderID == uuid.Nil {
		return nil, nil
	}

	order, err := s.orders.FindByID(ctx, s.db, session.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrOrderNotFound
	}
	return &CreateResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
		Created: false,
	}, nil
}

func validate(req *CreateRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return fmt.Errorf("%w: customer_email is required", ErrInvalidRequest)
	}
	if req.AmountCents <= 0 {
		return fmt.Errorf("%w: amount_cents must be positive", ErrInvalidRequest)
	}
	return nil
}
