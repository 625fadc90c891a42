// Package guardrails post-processes an assembled response: no unattributed
// factual claims, no unsolicited commercial addon. Rules are deterministic
// and language-agnostic; only answer_text, citations, and addon mutate.
package guardrails

import (
	"regexp"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// SafeFallback replaces an unattributed factual answer.
const SafeFallback = "Não tenho fontes suficientes para confirmar essas informações."

var currencyPattern = regexp.MustCompile(`(?i)R\$\s*\d|USD\s*\d|BRL\s*\d|\$\s*\d|\d+\s*(?:R\$|USD|BRL)|\d\s*\$`)

var factualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(Source:`),
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d+\s*(?:am|pm|h|horas?)\b`),
	regexp.MustCompile(`(?i)\bmust\b`),
	regexp.MustCompile(`(?i)\brequires?\b`),
	regexp.MustCompile(`(?i)\brules?\b`),
}

// bucketKeywords maps each commercial bucket to its vocabulary, matched
// over both the addon fields and the user query.
var bucketKeywords = map[string][]string{
	"tickets":   {"ingresso", "ticket", "pass", "passes", "bilhete"},
	"hotel":     {"hotel", "hospedagem", "accommodation", "stay", "reserva"},
	"insurance": {"seguro", "insurance"},
	"esim":      {"esim", "e-sim", "chip"},
	"transport": {"transporte", "transport", "voo", "flight", "carro", "car"},
	"planner":   {"planner", "planejador", "roteiro"},
	"shopping":  {"comprar", "buy", "shopping"},
}

// bucketOrder fixes iteration order so inference is deterministic.
var bucketOrder = []string{"tickets", "hotel", "insurance", "esim", "transport", "planner", "shopping"}

func looksFactual(text string) bool {
	if currencyPattern.MatchString(text) {
		return true
	}
	for _, p := range factualPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// InferAddonBucket classifies an addon by keyword match over its summary,
// primary category, merchant, and categories. Empty when nothing matches.
func InferAddonBucket(addon *models.Addon) string {
	if addon == nil {
		return ""
	}
	combined := strings.ToLower(strings.Join([]string{
		addon.Summary,
		addon.PrimaryCategory,
		addon.Merchant,
		strings.Join(addon.Categories, " "),
	}, " "))

	for _, bucket := range bucketOrder {
		for _, kw := range bucketKeywords[bucket] {
			if strings.Contains(combined, kw) {
				return bucket
			}
		}
	}
	return ""
}

func userRequestedBucket(userQuery, bucket string) bool {
	q := strings.ToLower(userQuery)
	for _, kw := range bucketKeywords[bucket] {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Apply runs both rules against the response in place.
func Apply(resp *models.AssembledResponse, userQuery string) {
	if len(resp.Citations) == 0 && looksFactual(resp.AnswerText) {
		resp.AnswerText = SafeFallback
		resp.Citations = []string{}
	}

	if resp.Addon != nil {
		if bucket := InferAddonBucket(resp.Addon); bucket != "" && !userRequestedBucket(userQuery, bucket) {
			resp.Addon = nil
		}
	}
}
