package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

const redactedValue = "***REDACTED***"

var sensitiveFragments = []string{"password", "secret", "token", "credential", "auth", "cookie"}

func sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, f := range sensitiveFragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

// redactSensitive masks string values under sensitive keys and strips
// passwords from URLs such as ws://user:pass@host/ws.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if sensitive(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if strings.Contains(v, "://") && strings.Contains(v, "@") {
			if u, err := url.Parse(v); err == nil && u.User != nil {
				return slog.String(a.Key, u.Redacted())
			}
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}
