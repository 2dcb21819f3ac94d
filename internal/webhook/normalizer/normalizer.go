package normalizer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/serenatalabs/serenata/internal/webhook/domain"
)

// Options tunes normalization behavior.
type Options struct {
	// AssumeApprovedOnEmptyStatus reinstates the legacy behavior of
	// treating a payload with no status string at all as approved.
	AssumeApprovedOnEmptyStatus bool
}

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Normalize maps a raw Cakto payload into the canonical PaymentEvent.
// Returns domain.ErrInvalidPayload for a non-object body and
// domain.ErrMissingIdentifiers when nothing in the payload could ever
// match an order.
func Normalize(body []byte, opts Options) (*domain.PaymentEvent, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, domain.ErrInvalidPayload
	}

	event := &domain.PaymentEvent{
		EventType:     firstString(doc, fieldStatus),
		TransactionID: firstString(doc, fieldTransactionID),
		OrderIDHint:   extractOrderIDHint(doc),
		CustomerEmail: strings.ToLower(firstString(doc, fieldEmail)),
		CustomerPhone: firstString(doc, fieldPhone),
		AmountCents:   extractAmountCents(doc),
		PaidAt:        extractPaidAt(doc),
	}
	event.PhoneDigits = digitsOnly(event.CustomerPhone)
	event.Status = classifyStatus(event.EventType, opts)

	if event.OrderIDHint == "" && event.TransactionID == "" && event.CustomerEmail == "" {
		return nil, domain.ErrMissingIdentifiers
	}

	return event, nil
}

// extractOrderIDHint prefers a UUID embedded in the checkout URL, then
// falls back through the explicit order id fields.
func extractOrderIDHint(doc map[string]any) string {
	if url := firstString(doc, fieldCheckoutURL); url != "" {
		if match := uuidPattern.FindString(url); match != "" {
			return strings.ToLower(match)
		}
	}
	return firstString(doc, fieldOrderIDHint)
}

// extractAmountCents accepts both numeric and numeric-string amounts,
// converting decimal currency to integer cents. Unparsable is zero.
func extractAmountCents(doc map[string]any) int64 {
	raw, ok := firstRaw(doc, fieldAmount)
	if !ok {
		return 0
	}
	var amount float64
	switch cast := raw.(type) {
	case float64:
		amount = cast
	case json.Number:
		parsed, err := cast.Float64()
		if err != nil {
			return 0
		}
		amount = parsed
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(cast, ",", "."))
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		amount = parsed
	default:
		return 0
	}
	return int64(math.Round(amount * 100))
}

var paidAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func extractPaidAt(doc map[string]any) *time.Time {
	raw := firstString(doc, fieldPaidAt)
	if raw == "" {
		return nil
	}
	for _, layout := range paidAtLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// classifyStatus buckets the vendor's free-form event/status string.
// Exact event names come first and refund outranks the loose approval
// substrings, so a value like "refund_approved" never settles an order.
func classifyStatus(raw string, opts Options) domain.Status {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(value, "purchase_approved"):
		return domain.StatusApproved
	case strings.Contains(value, "purchase_refused"):
		return domain.StatusRefused
	case strings.Contains(value, "refund"):
		return domain.StatusRefunded
	case strings.Contains(value, "aprovada"),
		strings.Contains(value, "approved"),
		strings.Contains(value, "paid"):
		return domain.StatusApproved
	case value == "" && opts.AssumeApprovedOnEmptyStatus:
		return domain.StatusApproved
	default:
		return domain.StatusUnclassified
	}
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
