package metrics

import (
	"log/slog"
	"time"
)

// RequestLogger emits exactly one structured record per handled request.
// Raw user queries never appear in records; callers pass QueryHash output
// when correlation is needed.
type RequestLogger struct {
	log     *slog.Logger
	service string
}

// NewRequestLogger creates a logger tagged with the service name. A nil
// base falls back to slog.Default().
func NewRequestLogger(base *slog.Logger, service string) *RequestLogger {
	if base == nil {
		base = slog.Default()
	}
	return &RequestLogger{log: base, service: service}
}

// Log writes the per-request record. sessionID and requestID come from
// incoming metadata and may be empty.
func (l *RequestLogger) Log(route string, cacheHit bool, latency time.Duration, sessionID, requestID string, backendFallback bool) {
	l.log.Info("request",
		"ts", time.Now().UTC().Format(time.RFC3339Nano),
		"service", l.service,
		"route", route,
		"cache_hit", cacheHit,
		"latency_ms", round2(float64(latency.Microseconds())/1000),
		"session_id", orNil(sessionID),
		"request_id", orNil(requestID),
		"backend_fallback", backendFallback,
	)
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
