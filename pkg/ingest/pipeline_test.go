package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

type fakeFetcher struct {
	meta     models.VideoMetadata
	segments []models.Segment
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(context.Context, string) (*models.VideoMetadata, []models.Segment, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	meta := f.meta
	return &meta, f.segments, nil
}

func testPipeline(t *testing.T, fetcher TranscriptFetcher) (*Pipeline, *store.MemoryVectorStore, *store.MemoryGraphStore, *MemoryIdempotency) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vector := store.NewMemoryVectorStore()
	graph := store.NewMemoryGraphStore()
	idem := NewMemoryIdempotency()
	p := NewPipeline(idem, vector, graph, fetcher,
		NewEnricher(nil, "m", logger), NewExtractor(nil, "m", logger), logger)
	return p, vector, graph, idem
}

// drive runs the event through stages until no advancement remains,
// returning the visited stages.
func drive(t *testing.T, p *Pipeline, event *models.IngestionEvent) []models.Stage {
	t.Helper()
	var stages []models.Stage
	for event != nil {
		stages = append(stages, event.Stage)
		next, err := p.Handle(context.Background(), event)
		require.NoError(t, err)
		event = next
	}
	return stages
}

func youtubeEvent(source models.SourceType) *models.IngestionEvent {
	return &models.IngestionEvent{
		EventID:         "e1",
		ContentSourceID: string(source) + ":abc",
		Stage:           models.StageRequested,
		Payload: map[string]any{
			"source_type": string(source),
			"video_url":   "https://youtube.com/watch?v=abc",
			"destination": "Orlando",
			"lang":        "pt",
		},
		MaxRetries: 3,
	}
}

func TestPipeline_YouTubeEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{
		meta: models.VideoMetadata{
			ID: "abc", Title: "Orlando em 3 dias", Channel: "canal",
			UploadDate: "2024-05-01", WebpageURL: "https://youtube.com/watch?v=abc",
		},
		segments: []models.Segment{
			{Start: 0, Duration: 15, Text: strings.Repeat("Dica de Orlando. ", 15)},
			{Start: 15, Duration: 15, Text: strings.Repeat("Mais dicas boas. ", 15)},
		},
	}
	p, vector, _, _ := testPipeline(t, fetcher)

	stages := drive(t, p, youtubeEvent(models.SourceYouTube))
	assert.Equal(t, []models.Stage{
		models.StageRequested, models.StageTranscript, models.StageChunks,
		models.StageEnrichment, models.StageEmbeddings, models.StageWriteComplete,
	}, stages)

	ctx := context.Background()
	cards, err := vector.SearchCards(ctx, "dica orlando", "Orlando", 10)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	card := cards[0]
	assert.Equal(t, VideoUUID("https://youtube.com/watch?v=abc"), card.VideoUUID)
	assert.Contains(t, card.TimestampURL, "t=")
	assert.Equal(t, "Orlando", card.Destination)
	assert.Equal(t, "2024-05-01", card.VideoUploadDate)
}

func TestPipeline_DuplicateDeliveryDoesNotReexecute(t *testing.T) {
	fetcher := &fakeFetcher{
		meta:     models.VideoMetadata{WebpageURL: "https://youtube.com/watch?v=abc"},
		segments: []models.Segment{{Start: 0, Duration: 30, Text: strings.Repeat("texto ", 80)}},
	}
	p, _, _, _ := testPipeline(t, fetcher)

	original := youtubeEvent(models.SourceYouTube)
	next, err := p.Handle(context.Background(), original)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 1, fetcher.calls)

	// Redelivery of the already-advanced event: no work, no advancement.
	dup, err := p.Handle(context.Background(), youtubeEvent(models.SourceYouTube))
	require.NoError(t, err)
	assert.Nil(t, dup)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPipeline_FetchFailurePropagates(t *testing.T) {
	p, _, _, idem := testPipeline(t, &fakeFetcher{err: errors.New("yt-dlp exploded")})

	_, err := p.Handle(context.Background(), youtubeEvent(models.SourceYouTube))
	require.Error(t, err)

	// A failed attempt leaves no mark; a retry runs the stage again.
	seen, err := idem.Seen(context.Background(), IdempotencyKey("youtube:abc", models.StageTranscript))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestPipeline_ProductsEndToEnd(t *testing.T) {
	p, vector, _, _ := testPipeline(t, &fakeFetcher{})

	event := &models.IngestionEvent{
		EventID:         "e2",
		ContentSourceID: "products:batch1",
		Stage:           models.StageRequested,
		Payload: map[string]any{
			"source_type": "products",
			"records": []any{
				map[string]any{
					"question":    "Preciso de chip de dados?",
					"opportunity": "eSIM internacional",
					"link":        "https://www.esimshop.com/us",
					"destination": "Orlando",
					"market":      "US",
					"lang":        "pt",
				},
			},
		},
		MaxRetries: 3,
	}

	drive(t, p, event)

	ctx := context.Background()
	cards, err := vector.SearchProductCards(ctx, "esim internacional", "Orlando", "US", 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, ProductCardUUID("https://www.esimshop.com/us", "Preciso de chip de dados?"), cards[0].UUID)
	assert.Equal(t, "esimshop.com", cards[0].Merchant)
	assert.Equal(t, "other", cards[0].PrimaryCategory, "no model, fallback card")
}

func TestPipeline_GraphWriteDedupes(t *testing.T) {
	p, _, graph, _ := testPipeline(t, &fakeFetcher{})

	ev := models.GraphEvidence{
		VideoURL: "https://youtube.com/watch?v=abc",
		TimestampURL: "https://youtube.com/watch?v=abc&t=0s",
		StartSec: 0, EndSec: 30,
	}
	payload := map[string]any{
		"source_type": "youtube_kg",
		"nodes": toJSONValue([]models.GraphNode{
			{ID: "dayplan:day-1", Type: "dayplan", Name: "Day 1", Aliases: []string{}, Properties: map[string]any{}},
			{ID: "poi:mk", Type: "poi", Name: "Magic Kingdom", Aliases: []string{}, Properties: map[string]any{}},
		}),
		"edges": toJSONValue([]models.GraphEdge{
			{Source: "dayplan:day-1", Type: "INCLUDES_POI", Target: "poi:mk", Evidence: ev},
		}),
	}

	event := &models.IngestionEvent{
		EventID:         "e3",
		ContentSourceID: "youtube_kg:abc",
		Stage:           models.StageEmbeddings,
		Payload:         payload,
		MaxRetries:      3,
	}
	next, err := p.Handle(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, models.StageWriteComplete, next.Stage)

	ctx := context.Background()
	edges, err := graph.EdgesAmong(ctx, []string{"dayplan:day-1", "poi:mk"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Contains(t, edges[0].Evidence, "timestampUrl")

	// Replaying the write (fresh idempotency mark) creates nothing new.
	written, err := p.stageWrite(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, 0, written["written_edges"])
}

func TestPipeline_UnknownSourceTypeFails(t *testing.T) {
	p, _, _, _ := testPipeline(t, &fakeFetcher{})
	_, err := p.Handle(context.Background(), &models.IngestionEvent{
		EventID:         "e4",
		ContentSourceID: "mystery:1",
		Stage:           models.StageRequested,
		Payload:         map[string]any{"source_type": "mystery"},
		MaxRetries:      3,
	})
	assert.Error(t, err)
}

func TestRedisIdempotency_AtMostOneWinner(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	idem := NewRedisIdempotency(client, "")

	ctx := context.Background()
	key := IdempotencyKey("youtube:abc", models.StageChunks)

	seen, err := idem.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	won, err := idem.Mark(ctx, key)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = idem.Mark(ctx, key)
	require.NoError(t, err)
	assert.False(t, won, "second marker loses")

	seen, err = idem.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}
