// Package metrics provides per-service counters and the one-JSON-record-
// per-request logger shared by the retrieval services and the orchestrator.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync/atomic"
)

// Metrics tracks counters for one retrieval service. Increments are atomic;
// benign races on reads are acceptable.
type Metrics struct {
	requestsTotal        atomic.Int64
	cacheHitsTotal       atomic.Int64
	backendFallbackTotal atomic.Int64
	latencySumMicros     atomic.Int64
	latencyCount         atomic.Int64
}

// Snapshot is the JSON shape served on GET /metrics.
type Snapshot struct {
	RequestsTotal        int64   `json:"requests_total"`
	CacheHitsTotal       int64   `json:"cache_hits_total"`
	BackendFallbackTotal int64   `json:"backend_fallback_total"`
	AvgLatencyMS         float64 `json:"avg_latency_ms"`
}

// NewMetrics creates a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest counts one handled request.
func (m *Metrics) RecordRequest() {
	m.requestsTotal.Add(1)
}

// RecordCacheHit counts one cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHitsTotal.Add(1)
}

// RecordBackendFallback counts one backend failure recovered by a fallback
// result.
func (m *Metrics) RecordBackendFallback() {
	m.backendFallbackTotal.Add(1)
}

// RecordLatency adds one observation to the running average.
func (m *Metrics) RecordLatency(ms float64) {
	m.latencySumMicros.Add(int64(ms * 1000))
	m.latencyCount.Add(1)
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		RequestsTotal:        m.requestsTotal.Load(),
		CacheHitsTotal:       m.cacheHitsTotal.Load(),
		BackendFallbackTotal: m.backendFallbackTotal.Load(),
	}
	if n := m.latencyCount.Load(); n > 0 {
		s.AvgLatencyMS = round2(float64(m.latencySumMicros.Load()) / 1000 / float64(n))
	}
	return s
}

// QueryHash returns the 16-character truncated SHA-256 of a user query.
// Log records carry this instead of the raw query.
func QueryHash(userQuery string) string {
	sum := sha256.Sum256([]byte(userQuery))
	return hex.EncodeToString(sum[:])[:16]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
