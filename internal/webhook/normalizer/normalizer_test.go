package normalizer

import (
	"errors"
	"testing"
	"time"

	"github.com/serenatalabs/serenata/internal/webhook/domain"
)

func TestNormalizeFieldCascades(t *testing.T) {
	body := []byte(`{
		"event": "purchase_approved",
		"data": {
			"id": "txn_abc123",
			"customer": {"email": " Maria@Example.COM ", "phone": "+55 (11) 98888-7777"},
			"amount": "47.90",
			"paidAt": "2026-08-29T14:00:00Z"
		}
	}`)

	event, err := Normalize(body, Options{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.TransactionID != "txn_abc123" {
		t.Fatalf("transaction id = %q", event.TransactionID)
	}
	if event.CustomerEmail != "maria@example.com" {
		t.Fatalf("email = %q", event.CustomerEmail)
	}
	if event.PhoneDigits != "5511988887777" {
		t.Fatalf("phone digits = %q", event.PhoneDigits)
	}
	if event.AmountCents != 4790 {
		t.Fatalf("amount cents = %d", event.AmountCents)
	}
	if event.Status != domain.StatusApproved {
		t.Fatalf("status = %q", event.Status)
	}
	want := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	if event.PaidAt == nil || !event.PaidAt.Equal(want) {
		t.Fatalf("paid at = %v", event.PaidAt)
	}
}

func TestNormalizeLegacyFieldNames(t *testing.T) {
	body := []byte(`{
		"event": "purchase_approved",
		"data": {
			"transaction_id": "txn_legacy",
			"customer_email": "a@x.com",
			"customer_phone": "11988887777",
			"amount_paid": 12.5
		}
	}`)

	event, err := Normalize(body, Options{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.TransactionID != "txn_legacy" {
		t.Fatalf("transaction id = %q", event.TransactionID)
	}
	if event.CustomerEmail != "a@x.com" {
		t.Fatalf("email = %q", event.CustomerEmail)
	}
	if event.AmountCents != 1250 {
		t.Fatalf("amount cents = %d", event.AmountCents)
	}
}

func TestNormalizeOrderIDHintFromCheckoutURL(t *testing.T) {
	body := []byte(`{
		"event": "purchase_approved",
		"data": {
			"checkoutUrl": "https://pay.cakto.com.br/c/3F2504E0-4F89-11D3-9A0C-0305E82C3301?x=1",
			"order_id": "should-not-win"
		}
	}`)

	event, err := Normalize(body, Options{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.OrderIDHint != "3f2504e0-4f89-11d3-9a0c-0305e82c3301" {
		t.Fatalf("order id hint = %q", event.OrderIDHint)
	}
}

func TestNormalizeOrderIDHintFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"metadata order id", `{"event":"purchase_approved","data":{"metadata":{"order_id":"meta-id"}}}`, "meta-id"},
		{"external id", `{"event":"purchase_approved","data":{"external_id":"ext-id"}}`, "ext-id"},
		{"order id", `{"event":"purchase_approved","data":{"order_id":"plain-id"}}`, "plain-id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, err := Normalize([]byte(tc.body), Options{})
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if event.OrderIDHint != tc.want {
				t.Fatalf("order id hint = %q, want %q", event.OrderIDHint, tc.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Status
	}{
		{"purchase_approved", domain.StatusApproved},
		{"Compra Aprovada", domain.StatusApproved},
		{"PAID", domain.StatusApproved},
		{"purchase_refused", domain.StatusRefused},
		{"refund_issued", domain.StatusRefunded},
		{"refunded", domain.StatusRefunded},
		{"refund_approved", domain.StatusRefunded},
		{"chargeback_warning", domain.StatusUnclassified},
		{"", domain.StatusUnclassified},
	}

	for _, tc := range tests {
		if got := classifyStatus(tc.raw, Options{}); got != tc.want {
			t.Fatalf("classifyStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if got := classifyStatus("", Options{AssumeApprovedOnEmptyStatus: true}); got != domain.StatusApproved {
		t.Fatalf("legacy fallback: got %q", got)
	}
	// The fallback only applies to a truly empty status, never to an
	// unrecognized one.
	if got := classifyStatus("garbage", Options{AssumeApprovedOnEmptyStatus: true}); got != domain.StatusUnclassified {
		t.Fatalf("unrecognized status with fallback: got %q", got)
	}
}

func TestNormalizeMissingIdentifiers(t *testing.T) {
	_, err := Normalize([]byte(`{"event":"purchase_approved","data":{"amount":10}}`), Options{})
	if !errors.Is(err, domain.ErrMissingIdentifiers) {
		t.Fatalf("expected missing identifiers, got %v", err)
	}
}

func TestNormalizeAmountVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{"numeric", `{"data":{"id":"t1","amount":47.9}}`, 4790},
		{"string", `{"data":{"id":"t1","amount":"47.90"}}`, 4790},
		{"comma decimal", `{"data":{"id":"t1","amount":"47,90"}}`, 4790},
		{"total fallback", `{"data":{"id":"t1","total":100}}`, 10000},
		{"unparsable", `{"data":{"id":"t1","amount":"free"}}`, 0},
		{"absent", `{"data":{"id":"t1"}}`, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, err := Normalize([]byte(tc.body), Options{})
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if event.AmountCents != tc.want {
				t.Fatalf("amount cents = %d, want %d", event.AmountCents, tc.want)
			}
		})
	}
}
