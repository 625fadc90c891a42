package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

func testConfig() *config.Config {
	return &config.Config{
		CacheTTLs: config.CacheTTLs{
			Evidence: time.Minute,
			Products: time.Minute,
			Graph:    time.Minute,
			Vision:   time.Minute,
		},
		Models: config.Models{Vision: "test-vision", STT: "test-stt", TTS: "test-tts"},
	}
}

func testDeps(t *testing.T) *Deps {
	t.Helper()
	registry, err := contract.NewRegistry()
	require.NoError(t, err)
	return &Deps{
		Config:   testConfig(),
		Registry: registry,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Vector:   store.NewMemoryVectorStore(),
		Graph:    store.NewMemoryGraphStore(),
	}
}

func envelope(t *testing.T, request any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"x_contract_version": "1.0", "request": request})
	require.NoError(t, err)
	return raw
}

func seedCard(t *testing.T, d *Deps) {
	t.Helper()
	_, err := d.Vector.InsertCardIfAbsent(context.Background(), &store.CardRecord{
		UUID:         "11111111-aaaa",
		Summary:      "Best times to visit are early morning.",
		Places:       []string{"Magic Kingdom"},
		Confidence:   0.9,
		TimestampURL: "https://example.com/tips",
		Destination:  "Orlando",
	})
	require.NoError(t, err)
}

func TestKnowledge_HappyPath(t *testing.T) {
	d := testDeps(t)
	seedCard(t, d)
	svc := NewKnowledgeService(d)

	status, resp := svc.Handle(context.Background(),
		envelope(t, models.EvidenceRequest{UserQuery: "best times magic kingdom", Destination: "Orlando"}), "", "")

	require.Equal(t, http.StatusOK, status)
	out := resp.(models.EvidenceResponse)
	assert.Equal(t, "1.0", out.XContractVersion)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, "https://example.com/tips", out.Evidence[0].SourceURL)
}

func TestKnowledge_CacheHitSkipsBackend(t *testing.T) {
	d := testDeps(t)
	seedCard(t, d)
	svc := NewKnowledgeService(d)
	body := envelope(t, models.EvidenceRequest{UserQuery: "  Best  Times Magic Kingdom ", Destination: "Orlando"})

	status, _ := svc.Handle(context.Background(), body, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), svc.Metrics.Snapshot().CacheHitsTotal)

	// Key normalization folds whitespace and case, so this is a hit.
	body2 := envelope(t, models.EvidenceRequest{UserQuery: "best times magic kingdom", Destination: "orlando"})
	status, _ = svc.Handle(context.Background(), body2, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), svc.Metrics.Snapshot().CacheHitsTotal)
}

// failingVectorStore errors on every read.
type failingVectorStore struct {
	store.VectorStore
}

func (failingVectorStore) SearchCards(context.Context, string, string, int) ([]store.CardRecord, error) {
	return nil, errors.New("store down")
}

func (failingVectorStore) SearchProductCards(context.Context, string, string, string, int) ([]store.ProductCardRecord, error) {
	return nil, errors.New("store down")
}

func TestKnowledge_BackendFailureFallsBackEmpty(t *testing.T) {
	d := testDeps(t)
	d.Vector = failingVectorStore{}
	svc := NewKnowledgeService(d)

	status, resp := svc.Handle(context.Background(),
		envelope(t, models.EvidenceRequest{UserQuery: "anything"}), "", "")

	require.Equal(t, http.StatusOK, status)
	out := resp.(models.EvidenceResponse)
	assert.Empty(t, out.Evidence)
	assert.NotNil(t, out.Evidence, "contract requires an array, not null")
	assert.Equal(t, int64(1), svc.Metrics.Snapshot().BackendFallbackTotal)

	// Fallbacks are never cached.
	status, _ = svc.Handle(context.Background(),
		envelope(t, models.EvidenceRequest{UserQuery: "anything"}), "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), svc.Metrics.Snapshot().CacheHitsTotal)
}

func TestKnowledge_MissingQueryRejected(t *testing.T) {
	svc := NewKnowledgeService(testDeps(t))
	status, _ := svc.Handle(context.Background(), envelope(t, models.EvidenceRequest{}), "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func seedProductCard(t *testing.T, d *Deps, id string, confidence float64) {
	t.Helper()
	_, err := d.Vector.InsertProductCardIfAbsent(context.Background(), &store.ProductCardRecord{
		UUID:            id,
		Link:            "https://example.com/" + id,
		Merchant:        "m",
		Summary:         "Ticket pack for the Orlando parks",
		PrimaryCategory: "tickets",
		Confidence:      confidence,
	})
	require.NoError(t, err)
}

func TestProducts_MinConfidenceIsPostFilter(t *testing.T) {
	d := testDeps(t)
	seedProductCard(t, d, "prod-low", 0.3)
	seedProductCard(t, d, "prod-high", 0.9)
	svc := NewProductsService(d)

	loose := envelope(t, models.ProductRequest{QuerySignature: "orlando:ticket:pt"})
	status, resp := svc.Handle(context.Background(), loose, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.(models.ProductResponse).Candidates, 2)

	// A tighter threshold reuses the cached raw result: a cache hit, and
	// only the confident candidate survives the post-filter.
	tight := envelope(t, models.ProductRequest{QuerySignature: "orlando:ticket:pt", MinConfidence: 0.5})
	status, resp = svc.Handle(context.Background(), tight, "", "")
	require.Equal(t, http.StatusOK, status)
	out := resp.(models.ProductResponse)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "prod-high", out.Candidates[0].ProductID)
	assert.Equal(t, int64(1), svc.Metrics.Snapshot().CacheHitsTotal)
}

func TestProducts_BackendFailureFallsBackEmpty(t *testing.T) {
	d := testDeps(t)
	d.Vector = failingVectorStore{}
	svc := NewProductsService(d)

	status, resp := svc.Handle(context.Background(),
		envelope(t, models.ProductRequest{QuerySignature: "sig"}), "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.(models.ProductResponse).Candidates)
	assert.Equal(t, int64(1), svc.Metrics.Snapshot().BackendFallbackTotal)
}

func TestRouter_HealthMetricsAndOperation(t *testing.T) {
	d := testDeps(t)
	seedCard(t, d)
	svc := NewKnowledgeService(d)
	router := NewRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	body := strings.NewReader(`{"x_contract_version":"1.0","request":{"user_query":"best times magic kingdom"}}`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp/retrieve_travel_evidence", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"x_contract_version":"1.0"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests_total":1`)
}
