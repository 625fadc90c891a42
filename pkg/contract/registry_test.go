package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	return r
}

func validEvidenceResponse() models.EvidenceResponse {
	return models.EvidenceResponse{
		XContractVersion: models.ContractVersion,
		Request:          models.EvidenceRequest{UserQuery: "dicas orlando"},
		Evidence: []models.EvidenceCard{
			{
				CardID:          "11111111-2222-3333-4444-555555555555",
				Summary:         "Best times to visit are early morning.",
				Signals:         []string{"go early"},
				Places:          []string{"Magic Kingdom"},
				Categories:      []string{"timing"},
				PrimaryCategory: "timing",
				Confidence:      0.8,
				SourceURL:       "https://example.com/tips",
			},
		},
	}
}

func TestValidate_EvidenceResponse(t *testing.T) {
	r := newRegistry(t)
	assert.NoError(t, r.Validate(validEvidenceResponse(), TravelEvidence))
}

func TestValidate_MissingRequiredField(t *testing.T) {
	r := newRegistry(t)

	resp := validEvidenceResponse()
	resp.Evidence[0].SourceURL = ""

	err := r.Validate(resp, TravelEvidence)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestValidate_ConfidenceRange(t *testing.T) {
	r := newRegistry(t)

	resp := validEvidenceResponse()
	resp.Evidence[0].Confidence = 1.5

	assert.ErrorIs(t, r.Validate(resp, TravelEvidence), ErrContractViolation)
}

func TestValidate_GraphEdgeTypeEnum(t *testing.T) {
	r := newRegistry(t)

	resp := models.GraphResponse{
		XContractVersion: models.ContractVersion,
		Request:          models.GraphRequest{UserQuery: "3-day itinerary"},
		Subgraph: models.Subgraph{
			Nodes: []models.GraphNode{{ID: "poi:mock", Type: "poi", Name: "Mock", Aliases: []string{}, Properties: map[string]any{}}},
			Edges: []models.GraphEdge{{
				Source: "itinerary:mock",
				Type:   "NOT_A_REAL_EDGE",
				Target: "poi:mock",
				Evidence: models.GraphEvidence{
					VideoURL:     "https://example.com/watch?v=mock",
					TimestampURL: "https://example.com/watch?v=mock&t=0",
				},
			}},
		},
	}
	assert.ErrorIs(t, r.Validate(resp, GraphRAG), ErrContractViolation)

	resp.Subgraph.Edges[0].Type = "INCLUDES_POI"
	assert.NoError(t, r.Validate(resp, GraphRAG))
}

func TestValidate_TTSRequiresNonEmptyAudioRef(t *testing.T) {
	r := newRegistry(t)

	resp := models.TTSResponse{
		XContractVersion: models.ContractVersion,
		Request:          models.TTSRequest{Text: "hello"},
		AudioRef:         "",
	}
	assert.ErrorIs(t, r.Validate(resp, TTSAudio), ErrContractViolation)

	resp.AudioRef = "data:audio/mp3;base64,YQ=="
	assert.NoError(t, r.Validate(resp, TTSAudio))
}

func TestValidate_FeedbackEvent(t *testing.T) {
	r := newRegistry(t)

	ok := map[string]any{"session_id": "s1", "request_id": "r1", "rating": 5}
	assert.NoError(t, r.Validate(ok, FeedbackEvent))

	bad := map[string]any{"session_id": "s1", "request_id": "r1", "rating": 9}
	assert.ErrorIs(t, r.Validate(bad, FeedbackEvent), ErrContractViolation)
}

func TestValidate_RawJSONBytes(t *testing.T) {
	r := newRegistry(t)

	raw := []byte(`{"session_id":"s1","request_id":"r1","rating":3}`)
	assert.NoError(t, r.Validate(raw, FeedbackEvent))
}

func TestValidate_UnknownSchema(t *testing.T) {
	r := newRegistry(t)
	assert.Error(t, r.Validate(map[string]any{}, "no_such_schema"))
}
