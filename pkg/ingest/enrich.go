package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/llm"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

const (
	maxCardCategories = 6
	maxSummaryChars   = 400
	fallbackConfidence = 0.3
	// emptySignalCap demotes cards whose grounding signals came back empty.
	emptySignalCap = 0.4
)

const cardSystemPrompt = `You turn travel video transcript chunks into one recommendation card.
Reply with strict JSON only:
{"summary": "...", "primaryCategory": "...", "categories": ["..."], "places": ["..."], "signals": ["..."], "confidence": 0.0}
categories must come from: attraction, food, hotel, transport, shopping, tip, warning, itinerary, budget, timing, other.
signals are short verbatim phrases from the chunk that ground the summary. Use the chunk language.`

const productSystemPrompt = `You turn a travel product record into one product card.
Reply with strict JSON only:
{"summary": "...", "primaryCategory": "...", "categories": ["..."], "triggers": ["..."], "constraints": ["..."], "affiliatePriority": 0.0, "userValue": 0.0, "confidence": 0.0}
categories must come from: insurance, esim, flights, hotel, tickets, transport, planner, gear, experiences, finance, shopping, official, other.
triggers are user situations in which this product helps.`

// Enricher produces cards from chunks and product inputs. A nil LLM client
// always yields the synthesized fallbacks.
type Enricher struct {
	llm    *llm.Client
	model  string
	logger *slog.Logger
}

// NewEnricher builds an enricher. logger may be nil.
func NewEnricher(client *llm.Client, model string, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{llm: client, model: model, logger: logger}
}

// EnrichChunk produces one recommendation card for a transcript chunk.
// Model failure or unusable output degrades to a low-confidence synthesized
// card; enrichment never fails a stage on its own.
func (e *Enricher) EnrichChunk(ctx context.Context, meta models.VideoMetadata, chunk models.Chunk) models.RecommendationCard {
	user := fmt.Sprintf("Video: %s (%s)\nChunk [%d-%ds]:\n%s",
		meta.Title, meta.Channel, chunk.StartSec, chunk.EndSec, chunk.Text)

	raw, err := e.llm.ChatJSON(ctx, e.model, cardSystemPrompt, user)
	if err != nil {
		e.logger.Debug("Card enrichment fell back", "error", err)
		return fallbackCard(chunk)
	}
	var card models.RecommendationCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return fallbackCard(chunk)
	}
	return coerceCard(card, chunk)
}

// EnrichProduct produces one product card for an input record.
func (e *Enricher) EnrichProduct(ctx context.Context, input models.ProductInput) models.ProductCard {
	user := fmt.Sprintf("Question: %s\nOpportunity: %s\nLink: %s\nDestination: %s",
		input.Question, input.Opportunity, input.Link, input.Destination)

	raw, err := e.llm.ChatJSON(ctx, e.model, productSystemPrompt, user)
	if err != nil {
		e.logger.Debug("Product enrichment fell back", "error", err)
		return fallbackProductCard(input)
	}
	var card models.ProductCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return fallbackProductCard(input)
	}
	return coerceProductCard(card)
}

func fallbackCard(chunk models.Chunk) models.RecommendationCard {
	return models.RecommendationCard{
		Summary:         truncate(chunk.Text, maxSummaryChars),
		PrimaryCategory: "other",
		Categories:      []string{"other"},
		Places:          []string{},
		Signals:         []string{},
		Confidence:      fallbackConfidence,
	}
}

func fallbackProductCard(input models.ProductInput) models.ProductCard {
	summary := input.Opportunity
	if summary == "" {
		summary = input.Question
	}
	return models.ProductCard{
		Summary:         truncate(summary, maxSummaryChars),
		PrimaryCategory: "other",
		Categories:      []string{"other"},
		Triggers:        []string{},
		Constraints:     []string{},
		Confidence:      fallbackConfidence,
	}
}

// coerceCard enforces the closed category set and demotes ungrounded
// output: a card with no verbatim signals cannot claim high confidence.
func coerceCard(card models.RecommendationCard, chunk models.Chunk) models.RecommendationCard {
	card.Summary = truncate(strings.TrimSpace(card.Summary), maxSummaryChars)
	if card.Summary == "" {
		return fallbackCard(chunk)
	}

	card.Categories = filterCategories(card.Categories, models.CardCategories)
	if !models.CardCategories[card.PrimaryCategory] {
		card.PrimaryCategory = "other"
	}
	card.Confidence = clampUnit(card.Confidence)
	if card.Places == nil {
		card.Places = []string{}
	}
	if card.Signals == nil {
		card.Signals = []string{}
	}
	if len(card.Signals) == 0 {
		card.PrimaryCategory = "other"
		if card.Confidence > emptySignalCap {
			card.Confidence = emptySignalCap
		}
	}
	return card
}

func coerceProductCard(card models.ProductCard) models.ProductCard {
	card.Summary = truncate(strings.TrimSpace(card.Summary), maxSummaryChars)
	card.Categories = filterCategories(card.Categories, models.ProductCategories)
	if !models.ProductCategories[card.PrimaryCategory] {
		card.PrimaryCategory = "other"
	}
	card.Confidence = clampUnit(card.Confidence)
	card.AffiliatePriority = clampUnit(card.AffiliatePriority)
	card.UserValue = clampUnit(card.UserValue)
	if card.Triggers == nil {
		card.Triggers = []string{}
	}
	if card.Constraints == nil {
		card.Constraints = []string{}
	}
	if len(card.Triggers) == 0 {
		card.PrimaryCategory = "other"
		if card.Confidence > emptySignalCap {
			card.Confidence = emptySignalCap
		}
	}
	return card
}

func filterCategories(categories []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if allowed[c] {
			out = append(out, c)
		}
		if len(out) == maxCardCategories {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "other")
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncate bounds s to n runes; a byte cut could split an accented rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MerchantFromLink derives a merchant label from the link host.
func MerchantFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(u.Host, "www.")
}
