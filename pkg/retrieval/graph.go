package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brunoleme/ai-travel-assistant/pkg/cache"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

const (
	defaultGraphSeedLimit = 25
	maxGraphPaths         = 3
)

// GraphPayload is the cached raw result of one graph retrieval.
type GraphPayload struct {
	Subgraph models.Subgraph
	Paths    []models.PathItem
}

// NewGraphService builds the travel-graph service. On backend
// unavailability it returns a minimal mock subgraph that still validates,
// so downstream assembly never breaks on contract grounds.
func NewGraphService(d *Deps) *Service[models.GraphRequest, GraphPayload] {
	return &Service[models.GraphRequest, GraphPayload]{
		Name:      "graph",
		Operation: "retrieve_travel_graph",
		Schema:    contract.GraphRAG,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "graph"),
		Cache:     cache.New(d.Config.CacheTTLs.Graph),
		CacheKey: func(r *models.GraphRequest) string {
			return cache.GraphKey(r.UserQuery, r.Destination, r.Lang)
		},
		ValidateReq: func(r *models.GraphRequest) error {
			if r.UserQuery == "" {
				return errors.New("user_query is required")
			}
			return nil
		},
		Backend: func(ctx context.Context, r *models.GraphRequest) (GraphPayload, error) {
			limit := r.Limit
			if limit <= 0 || limit > defaultGraphSeedLimit {
				limit = defaultGraphSeedLimit
			}
			return queryGraph(ctx, d.Graph, r.UserQuery+" "+r.Destination, limit)
		},
		Fallback: func(*models.GraphRequest, error) GraphPayload {
			return mockSubgraph()
		},
		Respond: func(r *models.GraphRequest, p GraphPayload) any {
			resp := models.GraphResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				Subgraph: models.Subgraph{
					Nodes: emptyOr(p.Subgraph.Nodes),
					Edges: emptyOr(p.Subgraph.Edges),
				},
				Paths: p.Paths,
			}
			return resp
		},
	}
}

// queryGraph runs the two retrieval phases: text containment over nodes to
// seed the subgraph, then an edge fetch restricted to the seed set.
func queryGraph(ctx context.Context, g store.GraphStore, query string, limit int) (GraphPayload, error) {
	seeds, err := g.FindNodes(ctx, query, limit)
	if err != nil {
		return GraphPayload{}, fmt.Errorf("seed nodes: %w", err)
	}

	nodes := make([]models.GraphNode, 0, len(seeds))
	ids := make([]string, 0, len(seeds))
	for i := range seeds {
		nodes = append(nodes, adaptNode(&seeds[i]))
		ids = append(ids, seeds[i].ID)
	}

	records, err := g.EdgesAmong(ctx, ids)
	if err != nil {
		return GraphPayload{}, fmt.Errorf("fetch edges: %w", err)
	}
	edges := make([]models.GraphEdge, 0, len(records))
	for i := range records {
		edges = append(edges, adaptEdge(&records[i]))
	}

	payload := GraphPayload{Subgraph: models.Subgraph{Nodes: nodes, Edges: edges}}
	payload.Paths = computePaths(payload.Subgraph)
	return payload, nil
}

func adaptNode(n *store.NodeRecord) models.GraphNode {
	props := n.Properties
	if props == nil {
		props = map[string]any{}
	}
	return models.GraphNode{
		ID:         n.ID,
		Type:       n.Type,
		Name:       n.Name,
		Aliases:    emptyOr(n.Aliases),
		Properties: props,
	}
}

// adaptEdge decodes the stored evidence JSON string into the contract's
// evidence object. Undecodable evidence degrades to the stored bounds with
// placeholder URLs so the edge still validates.
func adaptEdge(e *store.EdgeRecord) models.GraphEdge {
	var ev models.GraphEvidence
	if err := json.Unmarshal([]byte(e.Evidence), &ev); err != nil || ev.VideoURL == "" {
		ev = models.GraphEvidence{
			VideoURL:     "https://example.com/video",
			TimestampURL: "https://example.com/video?t=0",
			StartSec:     e.StartSec,
			EndSec:       e.EndSec,
		}
	}
	return models.GraphEdge{
		Source:   e.Source,
		Type:     e.Type,
		Target:   e.Target,
		Evidence: ev,
	}
}

// computePaths derives up to three itinerary -> dayplan -> poi narrative
// paths from the subgraph. For each itinerary, the first complete chain
// wins.
func computePaths(sg models.Subgraph) []models.PathItem {
	byID := make(map[string]models.GraphNode, len(sg.Nodes))
	var itineraries []models.GraphNode
	for _, n := range sg.Nodes {
		byID[n.ID] = n
		if n.Type == "itinerary" {
			itineraries = append(itineraries, n)
		}
	}
	if len(itineraries) > maxGraphPaths {
		itineraries = itineraries[:maxGraphPaths]
	}

	var paths []models.PathItem
	for _, it := range itineraries {
		found := false
		for _, dayEdge := range sg.Edges {
			if found {
				break
			}
			if dayEdge.Type != "HAS_DAY" || dayEdge.Source != it.ID {
				continue
			}
			for _, poiEdge := range sg.Edges {
				if poiEdge.Type != "INCLUDES_POI" || poiEdge.Source != dayEdge.Target {
					continue
				}
				label := "Day 1"
				if day, ok := byID[dayEdge.Target]; ok && day.Name != "" {
					label = day.Name
				}
				paths = append(paths, models.PathItem{
					PathID:   it.ID + "::" + dayEdge.Target + "::" + poiEdge.Target,
					Label:    label,
					Nodes:    []string{it.ID, dayEdge.Target, poiEdge.Target},
					Edges:    []string{dayEdge.Type, poiEdge.Type},
					Evidence: []models.GraphEvidence{dayEdge.Evidence, poiEdge.Evidence},
				})
				found = true
				break
			}
		}
	}
	return paths
}

// mockSubgraph is the valid minimal fallback served when the graph store
// is unreachable. The orchestrator must not depend on its content.
func mockSubgraph() GraphPayload {
	return GraphPayload{
		Subgraph: models.Subgraph{
			Nodes: []models.GraphNode{{
				ID:         "poi:mock_poi",
				Type:       "poi",
				Name:       "Mock POI",
				Aliases:    []string{},
				Properties: map[string]any{},
			}},
			Edges: []models.GraphEdge{{
				Source: "itinerary:mock",
				Type:   "INCLUDES_POI",
				Target: "poi:mock_poi",
				Evidence: models.GraphEvidence{
					VideoURL:     "https://example.com/video",
					TimestampURL: "https://example.com/video?t=0",
					StartSec:     0,
					EndSec:       0,
				},
			}},
		},
	}
}
