package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

func TestGroundExtraction_FiltersToAllowLists(t *testing.T) {
	raw := models.GraphExtraction{
		Nodes: []models.GraphNode{
			{ID: "poi:magic-kingdom", Type: "poi", Name: "Magic Kingdom"},
			{ID: "alien:x", Type: "spaceship", Name: "Not travel"},
			{ID: "dayplan:day-1", Type: "dayplan", Name: "Day 1"},
		},
		Edges: []models.GraphEdge{
			{Source: "dayplan:day-1", Type: "INCLUDES_POI", Target: "poi:magic-kingdom"},
			{Source: "dayplan:day-1", Type: "TELEPORTS_TO", Target: "poi:magic-kingdom"},
			{Source: "dayplan:day-1", Type: "INCLUDES_POI", Target: "poi:never-extracted"},
		},
	}

	chunk := models.Chunk{StartSec: 120, EndSec: 180, Text: "..."}
	out := groundExtraction(raw, "https://youtube.com/watch?v=abc", 2, chunk)

	require.Len(t, out.Nodes, 2)
	require.Len(t, out.Edges, 1)
	edge := out.Edges[0]
	assert.Equal(t, "INCLUDES_POI", edge.Type)
	assert.Equal(t, "https://youtube.com/watch?v=abc&t=120s", edge.Evidence.TimestampURL)
	assert.Equal(t, 120, edge.Evidence.StartSec)
	assert.Equal(t, 2, edge.Evidence.ChunkIdx)
}

func TestTimestampURL(t *testing.T) {
	assert.Equal(t, "https://a.com/v?t=30s", TimestampURL("https://a.com/v", 30))
	assert.Equal(t, "https://a.com/v?x=1&t=30s", TimestampURL("https://a.com/v?x=1", 30))
}

func TestMergeExtractions_Deterministic(t *testing.T) {
	ev1 := models.GraphEvidence{VideoURL: "u", TimestampURL: "u?t=0s", StartSec: 0, EndSec: 30}
	ev2 := models.GraphEvidence{VideoURL: "u", TimestampURL: "u?t=30s", StartSec: 30, EndSec: 60, ChunkIdx: 1}

	parts := []models.GraphExtraction{
		{
			Nodes: []models.GraphNode{
				{ID: "poi:b", Type: "poi", Name: "B", Aliases: []string{"bee"}},
				{ID: "poi:a", Type: "poi", Name: "A", Properties: map[string]any{"area": "north"}},
			},
			Edges: []models.GraphEdge{
				{Source: "poi:a", Type: "ORDER_BEFORE", Target: "poi:b", Evidence: ev1},
			},
		},
		{
			Nodes: []models.GraphNode{
				// Same node seen again: aliases union, first-seen properties win.
				{ID: "poi:a", Type: "poi", Name: "A renamed", Aliases: []string{"ay", "bee"}, Properties: map[string]any{"area": "south"}},
			},
			Edges: []models.GraphEdge{
				// Duplicate 5-tuple: dropped.
				{Source: "poi:a", Type: "ORDER_BEFORE", Target: "poi:b", Evidence: ev1},
				// Same endpoints, different span: kept.
				{Source: "poi:a", Type: "ORDER_BEFORE", Target: "poi:b", Evidence: ev2},
			},
		},
	}

	merged := MergeExtractions(parts)

	require.Len(t, merged.Nodes, 2)
	assert.Equal(t, "poi:a", merged.Nodes[0].ID, "nodes sorted by id")
	assert.Equal(t, "A", merged.Nodes[0].Name, "first-seen name wins")
	assert.Equal(t, map[string]any{"area": "north"}, merged.Nodes[0].Properties)
	assert.Equal(t, []string{"ay", "bee"}, merged.Nodes[0].Aliases, "sorted alias union")

	require.Len(t, merged.Edges, 2)
	assert.Equal(t, 0, merged.Edges[0].Evidence.StartSec)
	assert.Equal(t, 30, merged.Edges[1].Evidence.StartSec)
}
