package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	"github.com/serenatalabs/serenata/internal/webhook/domain"
)

// Cakto payloads are small; anything bigger is not a payment event.
const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"order_id,omitempty"`
	StrategyUsed    string `json:"strategy_used,omitempty"`
	LyricsGenerated bool   `json:"lyrics_generated"`
	Ignored         bool   `json:"ignored,omitempty"`
}

func (s *Server) handleCaktoWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, domain.ErrInvalidPayload)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	result := s.webhookSvc.Process(ctx, c.Request.Header, body)

	switch result.Outcome {
	case domain.OutcomeProcessed:
		c.JSON(http.StatusOK, webhookResponse{
			Success:         true,
			OrderID:         result.OrderID.String(),
			StrategyUsed:    string(result.Strategy),
			LyricsGenerated: result.LyricsGenerated,
		})
	case domain.OutcomeIgnored:
		c.JSON(http.StatusOK, webhookResponse{
			Success: true,
			Ignored: true,
		})
	case domain.OutcomeOrderNotFound:
		AbortWithError(c, orderdomain.ErrOrderNotFound)
	default:
		err := result.Err
		if err == nil {
			err = orderdomain.ErrUpdateConflict
		}
		AbortWithError(c, err)
	}
}
