package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

func newTestClient(t *testing.T, knowledgeURL string) *Client {
	t.Helper()
	registry, err := contract.NewRegistry()
	require.NoError(t, err)
	cfg := &config.Config{
		Services: config.ServiceURLs{Knowledge: knowledgeURL},
		Timeouts: config.Timeouts{Default: 2 * time.Second},
	}
	return NewClient(cfg, registry)
}

func TestRetrieveTravelEvidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mcp/retrieve_travel_evidence", r.URL.Path)

		var env struct {
			XContractVersion string                 `json:"x_contract_version"`
			Request          models.EvidenceRequest `json:"request"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		assert.Equal(t, "1.0", env.XContractVersion)
		assert.Equal(t, "dicas magic kingdom", env.Request.UserQuery)

		json.NewEncoder(w).Encode(models.EvidenceResponse{
			XContractVersion: models.ContractVersion,
			Request:          env.Request,
			Evidence: []models.EvidenceCard{{
				CardID:          "card-0001",
				Summary:         "Best times to visit are early morning.",
				Signals:         []string{},
				Places:          []string{},
				Categories:      []string{},
				PrimaryCategory: "timing",
				Confidence:      0.9,
				SourceURL:       "https://example.com/tips",
			}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.RetrieveTravelEvidence(context.Background(), models.EvidenceRequest{UserQuery: "dicas magic kingdom"})
	require.NoError(t, err)
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, "https://example.com/tips", resp.Evidence[0].SourceURL)
	assert.Equal(t, "1.0", resp.XContractVersion)
}

func TestCall_InvalidResponseIsContractViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Missing required "evidence" field.
		w.Write([]byte(`{"x_contract_version":"1.0","request":{"user_query":"q"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.RetrieveTravelEvidence(context.Background(), models.EvidenceRequest{UserQuery: "q"})
	assert.ErrorIs(t, err, contract.ErrContractViolation)
}

func TestCall_StatusErrorIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.RetrieveTravelEvidence(context.Background(), models.EvidenceRequest{UserQuery: "q"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCall_ConnectionRefusedIsUpstreamUnavailable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.RetrieveTravelEvidence(context.Background(), models.EvidenceRequest{UserQuery: "q"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCall_DeadlineIsTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	registry, err := contract.NewRegistry()
	require.NoError(t, err)
	cfg := &config.Config{
		Services: config.ServiceURLs{Knowledge: srv.URL},
		Timeouts: config.Timeouts{Default: 50 * time.Millisecond},
	}
	c := NewClient(cfg, registry)

	_, err = c.RetrieveTravelEvidence(context.Background(), models.EvidenceRequest{UserQuery: "q"})
	assert.ErrorIs(t, err, ErrTimeout)
}
