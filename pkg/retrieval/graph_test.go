package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

func seedItineraryGraph(t *testing.T, g store.GraphStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, g.UpsertNode(ctx, &store.NodeRecord{ID: "itinerary:orlando-3d", Type: "itinerary", Name: "Orlando 3 days"}))
	require.NoError(t, g.UpsertNode(ctx, &store.NodeRecord{ID: "dayplan:orlando-d1", Type: "dayplan", Name: "Day 1"}))
	require.NoError(t, g.UpsertNode(ctx, &store.NodeRecord{ID: "poi:magic-kingdom", Type: "poi", Name: "Magic Kingdom"}))

	ev, err := json.Marshal(models.GraphEvidence{
		VideoURL:     "https://youtube.com/watch?v=abc",
		TimestampURL: "https://youtube.com/watch?v=abc&t=120",
		StartSec:     120,
		EndSec:       180,
		ChunkIdx:     2,
	})
	require.NoError(t, err)

	_, err = g.UpsertEdge(ctx, &store.EdgeRecord{
		Source: "itinerary:orlando-3d", Type: "HAS_DAY", Target: "dayplan:orlando-d1",
		StartSec: 120, EndSec: 180, Evidence: string(ev),
	})
	require.NoError(t, err)
	_, err = g.UpsertEdge(ctx, &store.EdgeRecord{
		Source: "dayplan:orlando-d1", Type: "INCLUDES_POI", Target: "poi:magic-kingdom",
		StartSec: 130, EndSec: 160, Evidence: string(ev),
	})
	require.NoError(t, err)
}

func TestGraph_SubgraphAndPaths(t *testing.T) {
	d := testDeps(t)
	seedItineraryGraph(t, d.Graph)
	svc := NewGraphService(d)

	status, resp := svc.Handle(context.Background(),
		envelope(t, models.GraphRequest{UserQuery: "orlando 3 day itinerary magic kingdom"}), "", "")

	require.Equal(t, http.StatusOK, status)
	out := resp.(models.GraphResponse)
	assert.Equal(t, "1.0", out.XContractVersion)
	assert.Len(t, out.Subgraph.Nodes, 3)
	assert.Len(t, out.Subgraph.Edges, 2)

	require.Len(t, out.Paths, 1)
	path := out.Paths[0]
	assert.Equal(t, "Day 1", path.Label)
	assert.Equal(t, []string{"itinerary:orlando-3d", "dayplan:orlando-d1", "poi:magic-kingdom"}, path.Nodes)
	require.NotEmpty(t, path.Evidence)
	assert.Equal(t, "https://youtube.com/watch?v=abc&t=120", path.Evidence[0].TimestampURL)
}

// failingGraphStore errors on every read.
type failingGraphStore struct {
	store.GraphStore
}

func (failingGraphStore) FindNodes(context.Context, string, int) ([]store.NodeRecord, error) {
	return nil, assert.AnError
}

func TestGraph_UnavailableBackendReturnsMockSubgraph(t *testing.T) {
	d := testDeps(t)
	d.Graph = failingGraphStore{}
	svc := NewGraphService(d)

	status, resp := svc.Handle(context.Background(),
		envelope(t, models.GraphRequest{UserQuery: "anything"}), "", "")

	require.Equal(t, http.StatusOK, status)
	out := resp.(models.GraphResponse)
	require.Len(t, out.Subgraph.Nodes, 1)
	assert.Equal(t, "poi:mock_poi", out.Subgraph.Nodes[0].ID)
	require.Len(t, out.Subgraph.Edges, 1)
	assert.Equal(t, "INCLUDES_POI", out.Subgraph.Edges[0].Type)
	assert.Equal(t, int64(1), svc.Metrics.Snapshot().BackendFallbackTotal)
}

func TestComputePaths_AtMostThree(t *testing.T) {
	var sg models.Subgraph
	ev := models.GraphEvidence{VideoURL: "https://e.com/v", TimestampURL: "https://e.com/v?t=0"}
	for _, suffix := range []string{"a", "b", "c", "d"} {
		it, day, poi := "itinerary:"+suffix, "dayplan:"+suffix, "poi:"+suffix
		sg.Nodes = append(sg.Nodes,
			models.GraphNode{ID: it, Type: "itinerary", Name: "It " + suffix},
			models.GraphNode{ID: day, Type: "dayplan", Name: "Day " + suffix},
			models.GraphNode{ID: poi, Type: "poi", Name: "POI " + suffix},
		)
		sg.Edges = append(sg.Edges,
			models.GraphEdge{Source: it, Type: "HAS_DAY", Target: day, Evidence: ev},
			models.GraphEdge{Source: day, Type: "INCLUDES_POI", Target: poi, Evidence: ev},
		)
	}

	paths := computePaths(sg)
	assert.Len(t, paths, 3)
}
