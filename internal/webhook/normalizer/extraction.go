package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldPaths lists the JSON path candidates for one canonical field, in
// priority order. Cakto has shipped several payload shapes over time;
// new variants are added here as data, first non-null wins.
type FieldPaths struct {
	Field string
	Paths []string
}

const (
	fieldTransactionID = "transaction_id"
	fieldOrderIDHint   = "order_id_hint"
	fieldCheckoutURL   = "checkout_url"
	fieldEmail         = "customer_email"
	fieldPhone         = "customer_phone"
	fieldAmount        = "amount"
	fieldPaidAt        = "paid_at"
	fieldStatus        = "status"
)

var caktoExtraction = []FieldPaths{
	{Field: fieldTransactionID, Paths: []string{"data.id", "data.transaction_id"}},
	{Field: fieldCheckoutURL, Paths: []string{"data.checkoutUrl", "data.checkout_url", "checkoutUrl", "checkout_url"}},
	{Field: fieldOrderIDHint, Paths: []string{"data.metadata.order_id", "data.external_id", "data.order_id"}},
	{Field: fieldEmail, Paths: []string{"data.customer.email", "data.customer_email", "data.email"}},
	{Field: fieldPhone, Paths: []string{"data.customer.phone", "data.customer_phone", "data.phone"}},
	{Field: fieldAmount, Paths: []string{"data.amount", "data.amount_paid", "data.total"}},
	{Field: fieldPaidAt, Paths: []string{"data.paidAt", "data.paid_at", "data.payment_date"}},
	{Field: fieldStatus, Paths: []string{"event", "data.status", "status"}},
}

func pathsFor(field string) []string {
	for _, entry := range caktoExtraction {
		if entry.Field == field {
			return entry.Paths
		}
	}
	return nil
}

// lookup walks a dotted path through nested JSON objects.
func lookup(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// firstString returns the first non-empty string value among the
// field's path candidates. Numbers are rendered as strings so ids that
// arrive as JSON numbers still match.
func firstString(doc map[string]any, field string) string {
	for _, path := range pathsFor(field) {
		value, ok := lookup(doc, path)
		if !ok {
			continue
		}
		if s := stringify(value); s != "" {
			return s
		}
	}
	return ""
}

// firstRaw returns the first non-nil value among the path candidates.
func firstRaw(doc map[string]any, field string) (any, bool) {
	for _, path := range pathsFor(field) {
		value, ok := lookup(doc, path)
		if ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func stringify(value any) string {
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == float64(int64(cast)) {
			return strconv.FormatInt(int64(cast), 10)
		}
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case json.Number:
		return cast.String()
	case bool:
		return strconv.FormatBool(cast)
	}
	return ""
}
