package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"magic", "kingdom", "filas"}, Tokenize("Magic Kingdom, filas!"))
	assert.Empty(t, Tokenize("a - ."))
}

func TestContainmentScore(t *testing.T) {
	tokens := Tokenize("best times magic kingdom")
	assert.Equal(t, 4, ContainmentScore(tokens, "Best times to visit Magic Kingdom early"))
	assert.Equal(t, 3, ContainmentScore(tokens, "Best times at the kingdom"))
	assert.Equal(t, 0, ContainmentScore(tokens, "unrelated text"))
}

func TestMemoryVectorStore_CardInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore()

	created, err := s.InsertCardIfAbsent(ctx, &CardRecord{
		UUID:        "c1",
		Summary:     "Best times to visit are early morning.",
		Places:      []string{"Magic Kingdom"},
		Destination: "Orlando",
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Duplicate id is a no-op.
	created, err = s.InsertCardIfAbsent(ctx, &CardRecord{UUID: "c1", Summary: "changed"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.InsertCardIfAbsent(ctx, &CardRecord{
		UUID:        "c2",
		Summary:     "Bring sunscreen for the parks.",
		Destination: "Orlando",
	})
	require.NoError(t, err)

	got, err := s.SearchCards(ctx, "best times magic kingdom", "Orlando", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "c1", got[0].UUID)
	// Original summary survived the duplicate insert.
	assert.Equal(t, "Best times to visit are early morning.", got[0].Summary)
}

func TestMemoryVectorStore_SearchFiltersDestination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore()
	_, err := s.InsertCardIfAbsent(ctx, &CardRecord{UUID: "c1", Summary: "paris museums", Destination: "Paris"})
	require.NoError(t, err)

	got, err := s.SearchCards(ctx, "paris museums", "Orlando", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.SearchCards(ctx, "paris museums", "paris", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryVectorStore_ProductCards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore()

	_, err := s.InsertProductCardIfAbsent(ctx, &ProductCardRecord{
		UUID:            "p1",
		Summary:         "Ticket pack for the Orlando parks",
		PrimaryCategory: "tickets",
		Confidence:      0.8,
	})
	require.NoError(t, err)

	got, err := s.SearchProductCards(ctx, "orlando ticket", "", "", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].UUID)

	got, err = s.SearchProductCards(ctx, "zzz nothing", "", "", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryGraphStore_NodesAndEdges(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraphStore()

	require.NoError(t, g.UpsertNode(ctx, &NodeRecord{ID: "itinerary:orlando-3d", Type: "itinerary", Name: "Orlando 3 days"}))
	require.NoError(t, g.UpsertNode(ctx, &NodeRecord{ID: "dayplan:d1", Type: "dayplan", Name: "Day 1"}))
	require.NoError(t, g.UpsertNode(ctx, &NodeRecord{ID: "poi:mk", Type: "poi", Name: "Magic Kingdom"}))

	created, err := g.UpsertEdge(ctx, &EdgeRecord{Source: "itinerary:orlando-3d", Type: "HAS_DAY", Target: "dayplan:d1"})
	require.NoError(t, err)
	assert.True(t, created)

	// Same (type, source, target, startSec, endSec) dedupes.
	created, err = g.UpsertEdge(ctx, &EdgeRecord{Source: "itinerary:orlando-3d", Type: "HAS_DAY", Target: "dayplan:d1"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = g.UpsertEdge(ctx, &EdgeRecord{Source: "dayplan:d1", Type: "INCLUDES_POI", Target: "poi:mk"})
	require.NoError(t, err)

	nodes, err := g.FindNodes(ctx, "orlando itinerary", 10)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	assert.Equal(t, "itinerary:orlando-3d", nodes[0].ID)

	edges, err := g.EdgesAmong(ctx, []string{"itinerary:orlando-3d", "dayplan:d1"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "HAS_DAY", edges[0].Type)

	edges, err = g.EdgesAmong(ctx, []string{"poi:mk"})
	require.NoError(t, err)
	assert.Empty(t, edges)
}
