package lyrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/serenatalabs/serenata/internal/config"
	"github.com/serenatalabs/serenata/internal/lyrics"
	"go.uber.org/zap"
)

func newClient(t *testing.T, url string, maxAttempts int) *lyrics.Client {
	t.Helper()

	cfg := config.Config{
		LyricsServiceURL:   url,
		LyricsServiceToken: "secret-token",
	}
	holder := config.NewStaticReconcileHolder(config.ReconcileConfig{
		NotificationWindowSeconds:  30,
		LyricsMaxAttempts:          maxAttempts,
		LyricsBackoffMillis:        1,
		LyricsAttemptTimeoutMillis: 2000,
	})
	return lyrics.NewClient(lyrics.Params{
		Config: cfg,
		Log:    zap.NewNop(),
		Holder: holder,
	})
}

func TestTriggerSendsOrderAndAuth(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			OrderID string `json:"order_id"`
			Source  string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.OrderID != orderID.String() {
			t.Errorf("order_id = %q", body.OrderID)
		}
		if body.Source != "payment_webhook" {
			t.Errorf("source = %q", body.Source)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL, 1).Trigger(context.Background(), orderID); err != nil {
		t.Fatalf("trigger: %v", err)
	}
}

func TestTriggerWithRetryRecoverFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL, 3).TriggerWithRetry(context.Background(), uuid.New()); err != nil {
		t.Fatalf("trigger with retry: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestTriggerWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL, 3).TriggerWithRetry(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestTriggerRequiresConfiguredURL(t *testing.T) {
	if err := newClient(t, "", 1).Trigger(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error when service url is empty")
	}
}
