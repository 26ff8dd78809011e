package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys that are never masked, even when a caller passes them to MaskField.
var passthroughKeys = map[string]struct{}{
	"service":    {},
	"env":        {},
	"component":  {},
	"error":      {},
	"reason":     {},
	"request_id": {},
}

// Keys whose values are masked by every handler built here. Suffix matches
// catch per-component variants such as journal_password.
var (
	sensitiveKeys = map[string]struct{}{
		"dsn":           {},
		"password":      {},
		"authorization": {},
		"headers":       {},
		"otel_headers":  {},
		"api_key":       {},
		"secret":        {},
	}
	sensitiveSuffixes = []string{"_password", "_secret", "_dsn"}
)

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsSensitive reports whether values logged under key are masked.
func IsSensitive(key string) bool {
	normalized := normalizeKey(key)
	if _, ok := passthroughKeys[normalized]; ok {
		return false
	}
	if _, ok := sensitiveKeys[normalized]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// MaskValue hides non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds an attribute whose value is masked unless key is one of
// the passthrough keys.
func MaskField(key, value string) slog.Attr {
	if _, ok := passthroughKeys[normalizeKey(key)]; ok {
		return slog.String(key, value)
	}
	return slog.String(key, MaskValue(value))
}

func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSensitive(attr.Key) {
		return attr
	}
	return MaskField(attr.Key, attr.Value.String())
}
