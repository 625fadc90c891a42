// Package mcp is the retrieval-service client pool: one shared HTTP client,
// one call per downstream contract, per-call deadlines from configuration.
// Every response is schema-validated before it is handed to the caller.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// ErrUpstreamUnavailable marks network or HTTP-level failure of a
// downstream service.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrTimeout marks a per-call deadline exceeded.
var ErrTimeout = errors.New("upstream call timed out")

// Client fans calls out to the six retrieval services.
type Client struct {
	http     *http.Client
	cfg      *config.Config
	registry *contract.Registry
}

// NewClient builds the shared pool. Per-call deadlines come from the
// configuration, so the underlying http.Client carries no global timeout.
func NewClient(cfg *config.Config, registry *contract.Registry) *Client {
	return &Client{
		http:     &http.Client{},
		cfg:      cfg,
		registry: registry,
	}
}

// envelope is the wire shape of every cross-service message.
type envelope struct {
	XContractVersion string `json:"x_contract_version"`
	Request          any    `json:"request"`
}

// call posts the envelope to baseURL/mcp/<operation>, validates the raw
// response against the named schema, and decodes it into out.
func (c *Client) call(ctx context.Context, service, baseURL, operation, schema string, request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ServiceTimeout(service))
	defer cancel()

	body, err := json.Marshal(envelope{XContractVersion: models.ContractVersion, Request: request})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/mcp/"+operation, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTimeout, operation)
		}
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUpstreamUnavailable, operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrUpstreamUnavailable, operation, resp.StatusCode)
	}

	if err := c.registry.Validate(raw, schema); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// RetrieveTravelEvidence calls the knowledge service.
func (c *Client) RetrieveTravelEvidence(ctx context.Context, req models.EvidenceRequest) (*models.EvidenceResponse, error) {
	var out models.EvidenceResponse
	if err := c.call(ctx, "knowledge", c.cfg.Services.Knowledge, "retrieve_travel_evidence", contract.TravelEvidence, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveProductCandidates calls the products service.
func (c *Client) RetrieveProductCandidates(ctx context.Context, req models.ProductRequest) (*models.ProductResponse, error) {
	var out models.ProductResponse
	if err := c.call(ctx, "products", c.cfg.Services.Products, "retrieve_product_candidates", contract.ProductCandidates, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveTravelGraph calls the graph service.
func (c *Client) RetrieveTravelGraph(ctx context.Context, req models.GraphRequest) (*models.GraphResponse, error) {
	var out models.GraphResponse
	if err := c.call(ctx, "graph", c.cfg.Services.Graph, "retrieve_travel_graph", contract.GraphRAG, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeImage calls the vision service.
func (c *Client) AnalyzeImage(ctx context.Context, req models.VisionRequest) (*models.VisionResponse, error) {
	var out models.VisionResponse
	if err := c.call(ctx, "vision", c.cfg.Services.Vision, "analyze_image", contract.VisionSignals, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcribe calls the STT service.
func (c *Client) Transcribe(ctx context.Context, req models.STTRequest) (*models.STTResponse, error) {
	var out models.STTResponse
	if err := c.call(ctx, "stt", c.cfg.Services.STT, "transcribe", contract.STTTranscript, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synthesize calls the TTS service.
func (c *Client) Synthesize(ctx context.Context, req models.TTSRequest) (*models.TTSResponse, error) {
	var out models.TTSResponse
	if err := c.call(ctx, "tts", c.cfg.Services.TTS, "synthesize", contract.TTSAudio, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
