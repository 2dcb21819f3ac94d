package verifier

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/serenatalabs/serenata/internal/webhook/domain"
)

// Config carries the pre-shared credentials the verifier checks against.
type Config struct {
	// WebhookSecret is the secret Cakto echoes back on each delivery.
	// Empty means the endpoint is closed: every request is rejected.
	WebhookSecret string
	// InternalToken authorizes trusted internal callers (manual replay).
	InternalToken string
}

// Verify authenticates an inbound delivery. It is a pure function of
// (config, headers, body) and has no side effects. Returns nil when the
// caller is trusted, domain.ErrInvalidPayload for an unusable body and
// domain.ErrBadSignature otherwise.
func Verify(cfg Config, headers http.Header, body []byte) error {
	if !isJSONObject(body) {
		return domain.ErrInvalidPayload
	}

	bearer := bearerToken(headers.Get("Authorization"))
	if cfg.InternalToken != "" && secureEqual(bearer, cfg.InternalToken) {
		return nil
	}

	// Fail closed: without a configured secret nothing from the vendor
	// path can be trusted.
	if cfg.WebhookSecret == "" {
		return domain.ErrBadSignature
	}

	for _, candidate := range []string{
		strings.TrimSpace(headers.Get("x-cakto-signature")),
		strings.TrimSpace(headers.Get("x-cakto-token")),
		bearer,
		bodySecret(body),
	} {
		if candidate != "" && secureEqual(candidate, cfg.WebhookSecret) {
			return nil
		}
	}

	return domain.ErrBadSignature
}

func isJSONObject(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal(body, &probe) == nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func bodySecret(body []byte) string {
	var probe struct {
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.Secret)
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
