// Package orchestrator handles one user turn: route to the retrieval
// services, fan out under a shared deadline, merge partial results into a
// deterministic answer, apply guardrails, emit timing and trace data.
package orchestrator

import (
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/cache"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// itineraryKeywords route the graph call.
var itineraryKeywords = []string{
	"itinerary", "itinerario", "itinerário", "roteiro", "routes",
	"day 1", "dia 1", "1-day", "2-day", "3-day", "4-day", "5-day", "7-day",
	"week", "semana",
}

// productSimilarityKeywords and landmarkKeywords infer the vision mode;
// product_similarity wins over landmark, packing is the default.
var productSimilarityKeywords = []string{
	"similar", "parecido", "parecida", "igual a", "like this",
	"where to buy", "onde comprar", "find this", "comprar este", "comprar esta",
}

var landmarkKeywords = []string{
	"where is this", "what place", "which place", "landmark",
	"que lugar", "onde fica", "onde é isso", "monumento",
}

// commercialKeywords gate the addon decision on query intent.
var commercialKeywords = []string{
	"comprar", "buy", "reservar", "book", "hotel", "ingresso", "ticket", "tour",
}

func containsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// wantsGraph reports whether the query carries itinerary intent.
func wantsGraph(userQuery string) bool {
	return containsAny(cache.Normalize(userQuery), itineraryKeywords)
}

// inferVisionMode picks the analysis mode from the query.
func inferVisionMode(userQuery string) models.VisionMode {
	q := cache.Normalize(userQuery)
	switch {
	case containsAny(q, productSimilarityKeywords):
		return models.VisionModeProductSimilarity
	case containsAny(q, landmarkKeywords):
		return models.VisionModeLandmark
	default:
		return models.VisionModePacking
	}
}

// isCommercial reports whether the query carries purchase intent.
func isCommercial(userQuery string) bool {
	return containsAny(cache.Normalize(userQuery), commercialKeywords)
}

const (
	maxSignatureQueryChars = 100
	maxSignatureChars      = 200
)

// productSignature builds the base product query signature:
// destination:user_query[:100]:lang, truncated to 200, plus an optional
// memory-hash suffix so caches separate sessions with different memories.
func productSignature(destination, userQuery, lang, memHash string) string {
	if destination == "" {
		destination = "any"
	}
	if lang == "" {
		lang = "en"
	}
	q := truncateRunes(userQuery, maxSignatureQueryChars)
	sig := truncateRunes(destination+":"+q+":"+lang, maxSignatureChars)
	if memHash != "" {
		sig += "|mem:" + memHash
	}
	return sig
}

// truncateRunes bounds s to n runes so Portuguese queries never leave a
// split multibyte rune at the signature boundary.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// visionAdjustedSignature replaces the base signature when vision produced
// a stronger product cue: the first search query in product_similarity
// mode, or the first suggested category when packing found a gap.
func visionAdjustedSignature(base, destination, lang, memHash string, signals *models.VisionSignals) string {
	if signals == nil {
		return base
	}
	switch signals.Mode {
	case models.VisionModeProductSimilarity:
		if len(signals.SearchQueries) > 0 {
			return productSignature(destination, signals.SearchQueries[0], lang, memHash)
		}
	case models.VisionModePacking:
		// An outfit gap only redirects retrieval when vision named a
		// category to shop for.
		if len(signals.SuggestedCategoriesForProducts) > 0 {
			return productSignature(destination, signals.SuggestedCategoriesForProducts[0], lang, memHash)
		}
	}
	return base
}
