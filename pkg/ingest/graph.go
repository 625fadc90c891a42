package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/llm"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

const graphSystemPrompt = `You extract a travel knowledge graph from one video transcript chunk.
Reply with strict JSON only:
{"nodes": [{"id": "type:slug", "type": "...", "name": "...", "aliases": ["..."]}],
 "edges": [{"source": "type:slug", "type": "...", "target": "type:slug"}]}
Node types: city, place, poi, itinerary, dayplan, activity_type, advice, constraint.
Edge types: ITINERARY_FOR, HAS_DAY, INCLUDES_POI, IN_AREA, ORDER_BEFORE, CLUSTERED_BY, SUGGESTED_DAYS, HAS_ACTIVITY_TYPE, HAS_ADVICE, HAS_CONSTRAINT.
Only extract what the chunk explicitly states. Never invent nodes or edges.`

// Extractor pulls grounded graph fragments out of chunks. A nil LLM client
// extracts nothing.
type Extractor struct {
	llm    *llm.Client
	model  string
	logger *slog.Logger
}

// NewExtractor builds an extractor. logger may be nil.
func NewExtractor(client *llm.Client, model string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{llm: client, model: model, logger: logger}
}

// ExtractChunk returns the allow-listed nodes and edges stated in the
// chunk, each edge carrying evidence pointing at the chunk's video segment.
// Model failure yields an empty extraction, never an error: an ungrounded
// graph fragment is worse than a missing one.
func (x *Extractor) ExtractChunk(ctx context.Context, videoURL string, chunkIdx int, chunk models.Chunk) models.GraphExtraction {
	raw, err := x.llm.ChatJSON(ctx, x.model, graphSystemPrompt, chunk.Text)
	if err != nil {
		x.logger.Debug("Graph extraction skipped chunk", "chunk", chunkIdx, "error", err)
		return models.GraphExtraction{}
	}
	var out models.GraphExtraction
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.GraphExtraction{}
	}
	return groundExtraction(out, videoURL, chunkIdx, chunk)
}

// groundExtraction filters to the type allow-lists, drops edges whose
// endpoints were not extracted from the same chunk, and stamps evidence.
func groundExtraction(out models.GraphExtraction, videoURL string, chunkIdx int, chunk models.Chunk) models.GraphExtraction {
	var nodes []models.GraphNode
	known := make(map[string]bool)
	for _, n := range out.Nodes {
		n.ID = strings.TrimSpace(n.ID)
		n.Type = strings.ToLower(strings.TrimSpace(n.Type))
		if n.ID == "" || n.Name == "" || !models.GraphNodeTypes[n.Type] {
			continue
		}
		if known[n.ID] {
			continue
		}
		known[n.ID] = true
		if n.Aliases == nil {
			n.Aliases = []string{}
		}
		if n.Properties == nil {
			n.Properties = map[string]any{}
		}
		nodes = append(nodes, n)
	}

	evidence := models.GraphEvidence{
		VideoURL:     videoURL,
		TimestampURL: TimestampURL(videoURL, chunk.StartSec),
		StartSec:     chunk.StartSec,
		EndSec:       chunk.EndSec,
		ChunkIdx:     chunkIdx,
	}

	var edges []models.GraphEdge
	for _, e := range out.Edges {
		e.Type = strings.ToUpper(strings.TrimSpace(e.Type))
		if !models.GraphEdgeTypes[e.Type] || !known[e.Source] || !known[e.Target] {
			continue
		}
		e.Evidence = evidence
		edges = append(edges, e)
	}
	return models.GraphExtraction{Nodes: nodes, Edges: edges}
}

// TimestampURL appends a seconds offset to a video URL.
func TimestampURL(videoURL string, startSec int) string {
	sep := "?"
	if strings.Contains(videoURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%ds", videoURL, sep, startSec)
}

// MergeExtractions dedupes per-chunk fragments into one deterministic
// graph: nodes unique by id and sorted, aliases a sorted union with
// first-seen name and properties; edges unique by
// (type, source, target, startSec, endSec) and sorted by that key.
func MergeExtractions(parts []models.GraphExtraction) models.GraphExtraction {
	nodeByID := make(map[string]models.GraphNode)
	aliasSets := make(map[string]map[string]bool)
	var nodeIDs []string

	for _, part := range parts {
		for _, n := range part.Nodes {
			if _, ok := nodeByID[n.ID]; !ok {
				nodeByID[n.ID] = n
				aliasSets[n.ID] = make(map[string]bool)
				nodeIDs = append(nodeIDs, n.ID)
			}
			for _, a := range n.Aliases {
				if a = strings.TrimSpace(a); a != "" {
					aliasSets[n.ID][a] = true
				}
			}
		}
	}
	sort.Strings(nodeIDs)

	nodes := make([]models.GraphNode, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n := nodeByID[id]
		aliases := make([]string, 0, len(aliasSets[id]))
		for a := range aliasSets[id] {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		n.Aliases = aliases
		nodes = append(nodes, n)
	}

	edgeKey := func(e models.GraphEdge) string {
		return fmt.Sprintf("%s|%s|%s|%d|%d", e.Type, e.Source, e.Target, e.Evidence.StartSec, e.Evidence.EndSec)
	}
	seen := make(map[string]bool)
	var edges []models.GraphEdge
	for _, part := range parts {
		for _, e := range part.Edges {
			k := edgeKey(e)
			if seen[k] {
				continue
			}
			seen[k] = true
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		return edgeKey(edges[i]) < edgeKey(edges[j])
	})

	return models.GraphExtraction{Nodes: nodes, Edges: edges}
}
