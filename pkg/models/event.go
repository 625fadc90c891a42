package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Stage identifies the ingestion pipeline state a message is in.
type Stage string

// Pipeline stages, in order. WriteComplete is terminal.
const (
	StageRequested     Stage = "requested"
	StageTranscript    Stage = "transcript"
	StageChunks        Stage = "chunks"
	StageEnrichment    Stage = "enrichment"
	StageEmbeddings    Stage = "embeddings"
	StageWriteComplete Stage = "write_complete"
)

// SourceType routes stage behavior inside the ingestion pipeline.
type SourceType string

// Supported content sources.
const (
	SourceYouTube   SourceType = "youtube"
	SourceProducts  SourceType = "products"
	SourceYouTubeKG SourceType = "youtube_kg"
)

// IngestionEvent is the unit of work between pipeline stages; it lives as a
// queue message plus idempotency marks.
type IngestionEvent struct {
	EventID         string         `json:"event_id"`
	ContentSourceID string         `json:"content_source_id"`
	Stage           Stage          `json:"stage"`
	Payload         map[string]any `json:"payload"`
	RetryCount      int            `json:"retry_count"`
	MaxRetries      int            `json:"max_retries"`
	Error           string         `json:"error,omitempty"`
}

// SourceType reads the payload routing tag; empty when untagged (tests).
func (e *IngestionEvent) SourceType() SourceType {
	s, _ := e.Payload["source_type"].(string)
	return SourceType(s)
}

// Next builds the successor event for the given stage, carrying the retry
// budget forward under a fresh event ID.
func (e *IngestionEvent) Next(stage Stage, payload map[string]any) *IngestionEvent {
	return &IngestionEvent{
		EventID:         uuid.NewString(),
		ContentSourceID: e.ContentSourceID,
		Stage:           stage,
		Payload:         payload,
		RetryCount:      e.RetryCount,
		MaxRetries:      e.MaxRetries,
		Error:           e.Error,
	}
}

// EventFromJSON decodes a queue message body into an ingestion event.
func EventFromJSON(body []byte) (*IngestionEvent, error) {
	var e IngestionEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode ingestion event: %w", err)
	}
	if e.Stage == "" {
		e.Stage = StageRequested
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 3
	}
	return &e, nil
}

// ToJSON encodes the event as a queue message body.
func (e *IngestionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
