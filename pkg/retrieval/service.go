// Package retrieval implements the six downstream retrieval services over
// one shared template: validate inbound, consult the TTL cache, invoke the
// backend, fall back on backend failure (never erroring outward), cache the
// raw success, post-filter, respond with the normalized contract version.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brunoleme/ai-travel-assistant/pkg/cache"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
)

// Service is the generic request pipeline shared by all six services.
// Req is the typed request payload, P the raw backend result that gets
// cached; Respond wraps P into the contract envelope.
type Service[Req any, P any] struct {
	Name      string
	Operation string
	Schema    string
	Registry  *contract.Registry
	Metrics   *metrics.Metrics
	Logger    *metrics.RequestLogger

	// Cache and CacheKey are both nil for the uncached services (STT, TTS).
	Cache    *cache.Cache
	CacheKey func(req *Req) string

	ValidateReq func(req *Req) error
	Backend     func(ctx context.Context, req *Req) (P, error)
	// Fallback builds the valid empty/mock result served when Backend
	// fails; cause is the backend error.
	Fallback func(req *Req, cause error) P
	// PostFilter runs after the cache read so per-request filters never
	// narrow what later requests can reuse.
	PostFilter func(req *Req, payload P) P
	Respond    func(req *Req, payload P) any
}

// errorBody is the JSON error shape for rejected requests.
type errorBody struct {
	Error string `json:"error"`
}

// Handle processes one envelope body and returns the HTTP status plus the
// response value. sessionID and requestID come from request metadata and
// may be empty.
func (s *Service[Req, P]) Handle(ctx context.Context, raw []byte, sessionID, requestID string) (int, any) {
	start := time.Now()
	s.Metrics.RecordRequest()

	var env struct {
		XContractVersion string          `json:"x_contract_version"`
		Request          json.RawMessage `json:"request"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid envelope: %v", err)}
	}
	if len(env.Request) == 0 {
		return http.StatusUnprocessableEntity, errorBody{Error: "missing request payload"}
	}
	var req Req
	if err := json.Unmarshal(env.Request, &req); err != nil {
		return http.StatusUnprocessableEntity, errorBody{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if s.ValidateReq != nil {
		if err := s.ValidateReq(&req); err != nil {
			return http.StatusUnprocessableEntity, errorBody{Error: err.Error()}
		}
	}

	var payload P
	cacheHit := false
	fallback := false
	key := ""
	if s.Cache != nil && s.CacheKey != nil {
		key = s.CacheKey(&req)
		if v, ok := s.Cache.Get(key); ok {
			payload = v.(P)
			cacheHit = true
			s.Metrics.RecordCacheHit()
		}
	}

	if !cacheHit {
		p, err := s.Backend(ctx, &req)
		if err != nil {
			// Backend failure is a missing signal for the caller, never an
			// error. Fallbacks are not cached.
			payload = s.Fallback(&req, err)
			fallback = true
			s.Metrics.RecordBackendFallback()
		} else {
			payload = p
			if key != "" {
				s.Cache.Set(key, payload)
			}
		}
	}

	if s.PostFilter != nil {
		payload = s.PostFilter(&req, payload)
	}
	resp := s.Respond(&req, payload)
	if err := s.Registry.Validate(resp, s.Schema); err != nil {
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error()}
	}

	latency := time.Since(start)
	s.Metrics.RecordLatency(float64(latency.Microseconds()) / 1000)
	s.Logger.Log("/mcp/"+s.Operation, cacheHit, latency, sessionID, requestID, fallback)
	return http.StatusOK, resp
}
