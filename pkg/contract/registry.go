// Package contract loads the frozen cross-service JSON Schemas and
// validates payloads against them. Schemas are embedded and compiled once;
// they are immutable for the process lifetime.
package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// ErrContractViolation marks a structural schema failure. Callers decide
// the policy: inbound violations fail the request with a 4xx, violations
// in a collaborator's response fail only that branch.
var ErrContractViolation = errors.New("contract violation")

// Schema logical names.
const (
	TravelEvidence    = "travel_evidence"
	ProductCandidates = "product_candidates"
	GraphRAG          = "graph_rag"
	VisionSignals     = "vision_signals"
	STTTranscript     = "stt_transcript"
	TTSAudio          = "tts_audio"
	AgentResponse     = "agent_response"
	FeedbackEvent     = "feedback_event"
)

var schemaNames = []string{
	TravelEvidence,
	ProductCandidates,
	GraphRAG,
	VisionSignals,
	STTTranscript,
	TTSAudio,
	AgentResponse,
	FeedbackEvent,
}

// Registry holds the compiled schema set.
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// NewRegistry compiles every embedded schema. Failure here is a build
// defect, not a runtime condition.
func NewRegistry() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	for _, name := range schemaNames {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name+".schema.json", doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(schemaNames))
	for _, name := range schemaNames {
		sch, err := compiler.Compile(name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		schemas[name] = sch
	}
	return &Registry{schemas: schemas}, nil
}

// Validate checks payload against the named schema. payload may be a typed
// struct, a map, or raw JSON bytes; it is normalized through JSON first so
// validation sees exactly the wire shape.
func (r *Registry) Validate(payload any, name string) error {
	sch, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	value, err := toJSONValue(payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, name, err)
	}
	if err := sch.Validate(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, name, err)
	}
	return nil
}

func toJSONValue(payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
