package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

// TranscriptFetcher is the subtitle collaborator. Implemented by
// subtitles.Fetcher.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*models.VideoMetadata, []models.Segment, error)
}

// EnrichedCard pairs a chunk with its card; the chunk bounds and text feed
// the deterministic card identity at write time.
type EnrichedCard struct {
	Chunk models.Chunk              `json:"chunk"`
	Card  models.RecommendationCard `json:"card"`
}

// EnrichedProduct pairs a product input with its card.
type EnrichedProduct struct {
	Input models.ProductInput `json:"input"`
	Card  models.ProductCard  `json:"card"`
}

// Pipeline runs one ingestion stage per call. It is the queue worker's
// StageHandler: each advancement is guarded by the idempotency store so
// duplicate deliveries advance at most once.
type Pipeline struct {
	idem      Idempotency
	vector    store.VectorStore
	graph     store.GraphStore
	fetcher   TranscriptFetcher
	enricher  *Enricher
	extractor *Extractor
	logger    *slog.Logger
}

// NewPipeline wires the stage handlers. logger may be nil.
func NewPipeline(idem Idempotency, vector store.VectorStore, graph store.GraphStore,
	fetcher TranscriptFetcher, enricher *Enricher, extractor *Extractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		idem:      idem,
		vector:    vector,
		graph:     graph,
		fetcher:   fetcher,
		enricher:  enricher,
		extractor: extractor,
		logger:    logger,
	}
}

// successor maps each state to the stage its transition produces.
var successor = map[models.Stage]models.Stage{
	models.StageRequested:  models.StageTranscript,
	models.StageTranscript: models.StageChunks,
	models.StageChunks:     models.StageEnrichment,
	models.StageEnrichment: models.StageEmbeddings,
	models.StageEmbeddings: models.StageWriteComplete,
}

// Handle runs exactly one stage. A nil next event means no advancement:
// terminal stage, or the successor stage was already processed for this
// content source.
func (p *Pipeline) Handle(ctx context.Context, event *models.IngestionEvent) (*models.IngestionEvent, error) {
	if event.Stage == models.StageWriteComplete {
		return nil, nil
	}
	next, ok := successor[event.Stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", event.Stage)
	}

	key := IdempotencyKey(event.ContentSourceID, next)
	seen, err := p.idem.Seen(ctx, key)
	if err != nil {
		return nil, err
	}
	if seen {
		p.logger.Info("Stage already processed, skipping",
			"content_source_id", event.ContentSourceID, "stage", string(next))
		return nil, nil
	}

	payload, err := p.runStage(ctx, event)
	if err != nil {
		return nil, err
	}

	won, err := p.idem.Mark(ctx, key)
	if err != nil {
		return nil, err
	}
	if !won {
		// A parallel worker advanced the same event between our check and
		// mark; its successor event is already on the queue.
		return nil, nil
	}
	return event.Next(next, payload), nil
}

func (p *Pipeline) runStage(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	switch event.Stage {
	case models.StageRequested:
		return p.stageFetch(ctx, event)
	case models.StageTranscript:
		return p.stageChunk(event)
	case models.StageChunks:
		return p.stageEnrich(ctx, event)
	case models.StageEnrichment:
		// Embedding happens inside the vector store at write time; the
		// stage exists so the state machine is uniform across sources.
		return event.Payload, nil
	case models.StageEmbeddings:
		return p.stageWrite(ctx, event)
	}
	return nil, fmt.Errorf("unroutable stage %q", event.Stage)
}

// stageFetch resolves the external reference. YouTube sources shell out to
// the subtitle fetcher; product sources pass their records through.
func (p *Pipeline) stageFetch(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	switch event.SourceType() {
	case models.SourceYouTube, models.SourceYouTubeKG:
		videoURL, _ := event.Payload["video_url"].(string)
		if videoURL == "" {
			return nil, fmt.Errorf("payload missing video_url for %s", event.ContentSourceID)
		}
		meta, segments, err := p.fetcher.Fetch(ctx, videoURL)
		if err != nil {
			return nil, fmt.Errorf("fetch transcript: %w", err)
		}
		return withPayloadFields(event.Payload, map[string]any{
			"video":    toJSONValue(meta),
			"segments": toJSONValue(segments),
		})

	case models.SourceProducts:
		if _, ok := event.Payload["records"]; !ok {
			return nil, fmt.Errorf("payload missing records for %s", event.ContentSourceID)
		}
		return event.Payload, nil
	}
	return nil, fmt.Errorf("unknown source_type %q", event.Payload["source_type"])
}

// stageChunk packs transcript segments; product sources pass through.
func (p *Pipeline) stageChunk(event *models.IngestionEvent) (map[string]any, error) {
	switch event.SourceType() {
	case models.SourceYouTube, models.SourceYouTubeKG:
		var segments []models.Segment
		if err := payloadField(event.Payload, "segments", &segments); err != nil {
			return nil, err
		}
		chunks := ChunkSegments(segments)
		if len(chunks) == 0 {
			return nil, fmt.Errorf("no chunks produced for %s", event.ContentSourceID)
		}
		return withPayloadFields(event.Payload, map[string]any{"chunks": toJSONValue(chunks)})

	case models.SourceProducts:
		return event.Payload, nil
	}
	return nil, fmt.Errorf("unknown source_type %q", event.Payload["source_type"])
}

// stageEnrich produces cards (youtube, products) or a merged graph
// fragment set (youtube_kg).
func (p *Pipeline) stageEnrich(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	switch event.SourceType() {
	case models.SourceYouTube:
		var meta models.VideoMetadata
		var chunks []models.Chunk
		if err := payloadField(event.Payload, "video", &meta); err != nil {
			return nil, err
		}
		if err := payloadField(event.Payload, "chunks", &chunks); err != nil {
			return nil, err
		}
		cards := make([]EnrichedCard, 0, len(chunks))
		for _, chunk := range chunks {
			cards = append(cards, EnrichedCard{
				Chunk: chunk,
				Card:  p.enricher.EnrichChunk(ctx, meta, chunk),
			})
		}
		return withPayloadFields(event.Payload, map[string]any{"cards": toJSONValue(cards)})

	case models.SourceProducts:
		var records []models.ProductInput
		if err := payloadField(event.Payload, "records", &records); err != nil {
			return nil, err
		}
		enriched := make([]EnrichedProduct, 0, len(records))
		for _, rec := range records {
			enriched = append(enriched, EnrichedProduct{
				Input: rec,
				Card:  p.enricher.EnrichProduct(ctx, rec),
			})
		}
		return withPayloadFields(event.Payload, map[string]any{"product_cards": toJSONValue(enriched)})

	case models.SourceYouTubeKG:
		var meta models.VideoMetadata
		var chunks []models.Chunk
		if err := payloadField(event.Payload, "video", &meta); err != nil {
			return nil, err
		}
		if err := payloadField(event.Payload, "chunks", &chunks); err != nil {
			return nil, err
		}
		parts := make([]models.GraphExtraction, 0, len(chunks))
		for i, chunk := range chunks {
			parts = append(parts, p.extractor.ExtractChunk(ctx, meta.WebpageURL, i, chunk))
		}
		merged := MergeExtractions(parts)
		return withPayloadFields(event.Payload, map[string]any{
			"nodes": toJSONValue(merged.Nodes),
			"edges": toJSONValue(merged.Edges),
		})
	}
	return nil, fmt.Errorf("unknown source_type %q", event.Payload["source_type"])
}

// stageWrite persists with deterministic identities; duplicate runs are
// no-op upserts.
func (p *Pipeline) stageWrite(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	switch event.SourceType() {
	case models.SourceYouTube:
		return p.writeVideoCards(ctx, event)
	case models.SourceProducts:
		return p.writeProducts(ctx, event)
	case models.SourceYouTubeKG:
		return p.writeGraph(ctx, event)
	}
	return nil, fmt.Errorf("unknown source_type %q", event.Payload["source_type"])
}

func (p *Pipeline) writeVideoCards(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	var meta models.VideoMetadata
	var cards []EnrichedCard
	if err := payloadField(event.Payload, "video", &meta); err != nil {
		return nil, err
	}
	if err := payloadField(event.Payload, "cards", &cards); err != nil {
		return nil, err
	}

	destination, _ := event.Payload["destination"].(string)
	lang, _ := event.Payload["lang"].(string)
	videoUUID := VideoUUID(meta.WebpageURL)

	if _, err := p.vector.UpsertVideo(ctx, &store.VideoRecord{
		UUID:       videoUUID,
		URL:        meta.WebpageURL,
		Title:      meta.Title,
		Channel:    meta.Channel,
		UploadDate: meta.UploadDate,
		Lang:       lang,
	}); err != nil {
		return nil, fmt.Errorf("upsert video: %w", err)
	}

	created := 0
	for _, ec := range cards {
		ok, err := p.vector.InsertCardIfAbsent(ctx, &store.CardRecord{
			UUID:            CardUUID(videoUUID, ec.Chunk),
			VideoUUID:       videoUUID,
			Summary:         ec.Card.Summary,
			PrimaryCategory: ec.Card.PrimaryCategory,
			Categories:      ec.Card.Categories,
			Places:          ec.Card.Places,
			Signals:         ec.Card.Signals,
			Confidence:      ec.Card.Confidence,
			StartSec:        ec.Chunk.StartSec,
			EndSec:          ec.Chunk.EndSec,
			TimestampURL:    TimestampURL(meta.WebpageURL, ec.Chunk.StartSec),
			Destination:     destination,
			Lang:            lang,
			VideoUploadDate: meta.UploadDate,
		})
		if err != nil {
			return nil, fmt.Errorf("insert card: %w", err)
		}
		if ok {
			created++
		}
	}
	p.logger.Info("Video cards written",
		"content_source_id", event.ContentSourceID, "cards", len(cards), "created", created)
	return withPayloadFields(event.Payload, map[string]any{"written_cards": created})
}

func (p *Pipeline) writeProducts(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	var enriched []EnrichedProduct
	if err := payloadField(event.Payload, "product_cards", &enriched); err != nil {
		return nil, err
	}

	created := 0
	for _, ep := range enriched {
		productUUID := ProductUUID(ep.Input.Link, ep.Input.Question)
		if _, err := p.vector.UpsertProduct(ctx, &store.ProductRecord{
			UUID:        productUUID,
			Link:        ep.Input.Link,
			Question:    ep.Input.Question,
			Opportunity: ep.Input.Opportunity,
			Destination: ep.Input.Destination,
			Market:      ep.Input.Market,
			Lang:        ep.Input.Lang,
		}); err != nil {
			return nil, fmt.Errorf("upsert product: %w", err)
		}

		ok, err := p.vector.InsertProductCardIfAbsent(ctx, &store.ProductCardRecord{
			UUID:              ProductCardUUID(ep.Input.Link, ep.Input.Question),
			ProductUUID:       productUUID,
			Link:              ep.Input.Link,
			Merchant:          MerchantFromLink(ep.Input.Link),
			Summary:           ep.Card.Summary,
			PrimaryCategory:   ep.Card.PrimaryCategory,
			Categories:        ep.Card.Categories,
			Triggers:          ep.Card.Triggers,
			Constraints:       ep.Card.Constraints,
			AffiliatePriority: ep.Card.AffiliatePriority,
			UserValue:         ep.Card.UserValue,
			Confidence:        ep.Card.Confidence,
			Destination:       ep.Input.Destination,
			Market:            ep.Input.Market,
			Lang:              ep.Input.Lang,
		})
		if err != nil {
			return nil, fmt.Errorf("insert product card: %w", err)
		}
		if ok {
			created++
		}
	}
	p.logger.Info("Product cards written",
		"content_source_id", event.ContentSourceID, "inputs", len(enriched), "created", created)
	return withPayloadFields(event.Payload, map[string]any{"written_cards": created})
}

func (p *Pipeline) writeGraph(ctx context.Context, event *models.IngestionEvent) (map[string]any, error) {
	var nodes []models.GraphNode
	var edges []models.GraphEdge
	if err := payloadField(event.Payload, "nodes", &nodes); err != nil {
		return nil, err
	}
	if err := payloadField(event.Payload, "edges", &edges); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if err := p.graph.UpsertNode(ctx, &store.NodeRecord{
			ID:         n.ID,
			Type:       n.Type,
			Name:       n.Name,
			Aliases:    n.Aliases,
			Properties: n.Properties,
		}); err != nil {
			return nil, fmt.Errorf("upsert node %s: %w", n.ID, err)
		}
	}

	created := 0
	for _, e := range edges {
		evidence, err := json.Marshal(e.Evidence)
		if err != nil {
			return nil, fmt.Errorf("encode edge evidence: %w", err)
		}
		ok, err := p.graph.UpsertEdge(ctx, &store.EdgeRecord{
			Source:   e.Source,
			Type:     e.Type,
			Target:   e.Target,
			StartSec: e.Evidence.StartSec,
			EndSec:   e.Evidence.EndSec,
			Evidence: string(evidence),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert edge: %w", err)
		}
		if ok {
			created++
		}
	}
	p.logger.Info("Graph written",
		"content_source_id", event.ContentSourceID,
		"nodes", len(nodes), "edges", len(edges), "created_edges", created)
	return withPayloadFields(event.Payload, map[string]any{"written_edges": created})
}

// toJSONValue round-trips a typed value into generic JSON shapes so stage
// payloads survive queue serialization unchanged.
func toJSONValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// payloadField decodes one payload entry into a typed value.
func payloadField(payload map[string]any, key string, out any) error {
	v, ok := payload[key]
	if !ok {
		return fmt.Errorf("payload missing %q", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload %q: %w", key, err)
	}
	return nil
}

// withPayloadFields copies the payload and overlays the updates, keeping
// routing tags and carried fields intact across stages.
func withPayloadFields(payload map[string]any, updates map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload)+len(updates))
	for k, v := range payload {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out, nil
}
