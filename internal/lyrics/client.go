package lyrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Client triggers song-lyrics generation for a paid order on the
// internal generation service. The call is fire-and-forget from the
// caller's perspective; a trigger that never lands is recovered later
// by the generation service's own backfill.
type Client struct {
	httpClient *http.Client
	log        *zap.Logger
	holder     *config.ReconcileConfigHolder

	baseURL string
	token   string
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Holder *config.ReconcileConfigHolder
}

func NewClient(p Params) *Client {
	return &Client{
		httpClient: &http.Client{},
		log:        p.Log.Named("lyrics.client"),
		holder:     p.Holder,
		baseURL:    p.Config.LyricsServiceURL,
		token:      p.Config.LyricsServiceToken,
	}
}

type triggerRequest struct {
	OrderID string `json:"order_id"`
	Source  string `json:"source"`
}

// Trigger performs a single generation request for the order.
func (c *Client) Trigger(ctx context.Context, orderID uuid.UUID) error {
	if c.baseURL == "" {
		return fmt.Errorf("lyrics service url not configured")
	}

	body, err := json.Marshal(triggerRequest{
		OrderID: orderID.String(),
		Source:  "payment_webhook",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("lyrics trigger returned %d: %s", resp.StatusCode, snippet)
}

// TriggerWithRetry retries Trigger with a linear backoff, bounding each
// attempt with its own timeout. Returns the last error when every
// attempt failed.
func (c *Client) TriggerWithRetry(ctx context.Context, orderID uuid.UUID) error {
	cfg := c.holder.Get()

	var lastErr error
	for attempt := 1; attempt <= cfg.LyricsMaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.LyricsAttemptTimeout())
		err := c.Trigger(attemptCtx, orderID)
		cancel()
		if err == nil {
			if attempt > 1 {
				c.log.Info("lyrics trigger succeeded after retry",
					zap.String("order_id", orderID.String()),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err
		c.log.Warn("lyrics trigger attempt failed",
			zap.String("order_id", orderID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == cfg.LyricsMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cfg.LyricsBackoff()):
		}
	}
	return lastErr
}
