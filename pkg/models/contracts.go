// Package models defines the cross-service contract types: retrieval
// request/response payloads, the assembled answer, and ingestion events.
//
// Every cross-service payload travels inside an envelope carrying
// x_contract_version; responses always echo the normalized version string.
package models

// ContractVersion is the normalized version echoed in every response,
// regardless of what the caller sent.
const ContractVersion = "1.0"

// EvidenceRequest is the travel-evidence request payload.
type EvidenceRequest struct {
	UserQuery      string         `json:"user_query"`
	Destination    string         `json:"destination,omitempty"`
	Lang           string         `json:"lang,omitempty"`
	Debug          bool           `json:"debug,omitempty"`
	StrategyParams map[string]any `json:"strategy_params,omitempty"`
}

// EvidenceScore carries retrieval scoring detail for one evidence card.
type EvidenceScore struct {
	Distance         *float64 `json:"distance,omitempty"`
	FreshnessPenalty *float64 `json:"freshness_penalty,omitempty"`
	Adjusted         *float64 `json:"adjusted,omitempty"`
}

// EvidenceCard is one retrieved piece of travel evidence. SourceURL is the
// citation handle consumed by the orchestrator.
type EvidenceCard struct {
	CardID          string         `json:"card_id"`
	Summary         string         `json:"summary"`
	Signals         []string       `json:"signals"`
	Places          []string       `json:"places"`
	Categories      []string       `json:"categories"`
	PrimaryCategory string         `json:"primary_category"`
	Confidence      float64        `json:"confidence"`
	SourceURL       string         `json:"source_url"`
	VideoUploadDate string         `json:"video_upload_date,omitempty"`
	Score           *EvidenceScore `json:"score,omitempty"`
	SeenInQueries   []string       `json:"seen_in_queries,omitempty"`
}

// EvidenceResponse is the travel-evidence envelope.
type EvidenceResponse struct {
	XContractVersion string          `json:"x_contract_version"`
	Request          EvidenceRequest `json:"request"`
	ExpandedQueries  []string        `json:"expanded_queries,omitempty"`
	Evidence         []EvidenceCard  `json:"evidence"`
	Debug            map[string]any  `json:"debug,omitempty"`
}

// ProductRequest is the product-candidates request payload.
// MinConfidence is applied as a deterministic post-filter and is not part
// of the cache key.
type ProductRequest struct {
	QuerySignature string  `json:"query_signature"`
	Destination    string  `json:"destination,omitempty"`
	Market         string  `json:"market,omitempty"`
	Lang           string  `json:"lang,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	MinConfidence  float64 `json:"min_confidence,omitempty"`
	Debug          bool    `json:"debug,omitempty"`
}

// ProductCandidate is one retrieved commercial candidate.
type ProductCandidate struct {
	ProductID         string         `json:"product_id"`
	Summary           string         `json:"summary"`
	Link              string         `json:"link"`
	Merchant          string         `json:"merchant"`
	PrimaryCategory   string         `json:"primary_category"`
	Categories        []string       `json:"categories"`
	Triggers          []string       `json:"triggers,omitempty"`
	Constraints       []string       `json:"constraints,omitempty"`
	AffiliatePriority float64        `json:"affiliate_priority"`
	UserValue         float64        `json:"user_value"`
	Confidence        float64        `json:"confidence"`
	Score             map[string]any `json:"score,omitempty"`
}

// ProductResponse is the product-candidates envelope.
type ProductResponse struct {
	XContractVersion string             `json:"x_contract_version"`
	Request          ProductRequest     `json:"request"`
	Candidates       []ProductCandidate `json:"candidates"`
	Debug            map[string]any     `json:"debug,omitempty"`
}

// GraphRequest is the travel-graph request payload.
type GraphRequest struct {
	UserQuery   string `json:"user_query"`
	Destination string `json:"destination,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Debug       bool   `json:"debug,omitempty"`
}

// GraphNode is one node of the travel knowledge graph.
type GraphNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Aliases    []string       `json:"aliases"`
	Properties map[string]any `json:"properties"`
}

// GraphEvidence ties an edge to a video segment.
type GraphEvidence struct {
	VideoURL     string `json:"videoUrl"`
	TimestampURL string `json:"timestampUrl"`
	StartSec     int    `json:"startSec"`
	EndSec       int    `json:"endSec"`
	ChunkIdx     int    `json:"chunkIdx"`
}

// GraphEdge is one directed edge with evidence.
type GraphEdge struct {
	Source     string         `json:"source"`
	Type       string         `json:"type"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties,omitempty"`
	Evidence   GraphEvidence  `json:"evidence"`
}

// Subgraph is the node/edge set returned by the graph service.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// PathItem is one narrative path (itinerary -> dayplan -> poi).
type PathItem struct {
	PathID   string          `json:"path_id"`
	Label    string          `json:"label"`
	Nodes    []string        `json:"nodes"`
	Edges    []string        `json:"edges"`
	Evidence []GraphEvidence `json:"evidence"`
}

// GraphResponse is the travel-graph envelope.
type GraphResponse struct {
	XContractVersion string         `json:"x_contract_version"`
	Request          GraphRequest   `json:"request"`
	Subgraph         Subgraph       `json:"subgraph"`
	Paths            []PathItem     `json:"paths,omitempty"`
	Debug            map[string]any `json:"debug,omitempty"`
}
