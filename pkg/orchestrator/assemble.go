package orchestrator

import (
	"fmt"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// fallbackAnswer is served when no branch produced a signal.
const fallbackAnswer = "No travel evidence found for your query."

// branches carries the per-branch results feeding assembly. A nil pointer
// is a missing signal.
type branches struct {
	evidence *models.EvidenceResponse
	graph    *models.GraphResponse
	vision   *models.VisionSignals
	products *models.ProductResponse
}

// assemble merges the branch results in the fixed order vision -> evidence
// -> graph, independent of completion order. Citations are evidence-derived
// first, then graph-derived (path evidence before subgraph edges).
func assemble(b branches) (answer string, citations []string) {
	var parts []string

	if prefix := visionPrefix(b.vision); prefix != "" {
		parts = append(parts, prefix)
	}

	citations = []string{}
	if b.evidence != nil && len(b.evidence.Evidence) > 0 {
		summaries := make([]string, 0, len(b.evidence.Evidence))
		for _, card := range b.evidence.Evidence {
			summaries = append(summaries, card.Summary)
			citations = appendCitation(citations, card.SourceURL)
		}
		parts = append(parts, strings.Join(summaries, " "))
	}

	if b.graph != nil {
		if narrative := graphNarrative(b.graph); narrative != "" {
			parts = append(parts, narrative)
		}
		for _, path := range b.graph.Paths {
			for _, ev := range path.Evidence {
				citations = appendCitation(citations, ev.TimestampURL)
			}
		}
		for _, edge := range b.graph.Subgraph.Edges {
			citations = appendCitation(citations, edge.Evidence.TimestampURL)
		}
	}

	if len(parts) == 0 {
		return fallbackAnswer, citations
	}
	return strings.Join(parts, " "), citations
}

// appendCitation keeps citation order stable while dropping duplicates and
// URLs too short for the contract.
func appendCitation(citations []string, url string) []string {
	if len(url) < 8 {
		return citations
	}
	for _, existing := range citations {
		if existing == url {
			return citations
		}
	}
	return append(citations, url)
}

// graphNarrative renders up to three path lines "<label>: <names>" using
// the subgraph node map for name lookup. The itinerary head and any node
// repeating the label are left out of the name list.
func graphNarrative(g *models.GraphResponse) string {
	names := make(map[string]string, len(g.Subgraph.Nodes))
	for _, n := range g.Subgraph.Nodes {
		names[n.ID] = n.Name
	}

	var lines []string
	for i, path := range g.Paths {
		if i == 3 {
			break
		}
		var stops []string
		for j, id := range path.Nodes {
			name := names[id]
			if j == 0 || name == "" || name == path.Label {
				continue
			}
			stops = append(stops, name)
		}
		if len(stops) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", path.Label, strings.Join(stops, ", ")))
	}
	return strings.Join(lines, "\n")
}

// visionPrefix renders the mode-dependent sentence placed before the
// knowledge text.
func visionPrefix(s *models.VisionSignals) string {
	if s == nil || s.Error != "" {
		return ""
	}
	switch s.Mode {
	case models.VisionModePacking:
		if s.SuitabilityOK == nil {
			return ""
		}
		if *s.SuitabilityOK {
			return "Your outfit looks suitable for this trip."
		}
		msg := "Your outfit may not be suitable"
		if s.SuitabilityIssue != "" {
			msg += ": " + s.SuitabilityIssue
		}
		msg += "."
		if len(s.SuggestedCategoriesForProducts) > 0 {
			msg += " Consider adding: " + strings.Join(s.SuggestedCategoriesForProducts, ", ") + "."
		}
		return msg

	case models.VisionModeLandmark:
		if len(s.PlaceCandidates) == 0 {
			return ""
		}
		top := s.PlaceCandidates[0]
		if top.Confidence != nil && *top.Confidence >= 0.6 {
			return "This looks like " + top.PlaceName + "."
		}
		return "This might be " + top.PlaceName + "."

	case models.VisionModeProductSimilarity:
		if s.Category == "" {
			return ""
		}
		msg := "The item in your image looks like a " + strings.ReplaceAll(s.Category, "_", " ")
		if len(s.StyleKeywords) > 0 {
			msg += " (" + strings.Join(s.StyleKeywords, ", ") + ")"
		}
		return msg + "."
	}
	return ""
}

// spokenText truncates the answer on whitespace boundaries for synthesis:
// 25 words in quick mode, 60 otherwise.
func spokenText(answer string, quick bool) string {
	limit := 60
	if quick {
		limit = 25
	}
	words := strings.Fields(answer)
	if len(words) <= limit {
		return answer
	}
	return strings.Join(words[:limit], " ")
}

// decideAddon picks the top candidate when any trigger fires: commercial
// query intent, product-similarity vision with candidates, or a packing
// gap that mapped to candidates.
func decideAddon(userQuery string, vision *models.VisionSignals, products *models.ProductResponse) *models.Addon {
	if products == nil || len(products.Candidates) == 0 {
		return nil
	}

	trigger := isCommercial(userQuery)
	if !trigger && vision != nil {
		switch vision.Mode {
		case models.VisionModeProductSimilarity:
			trigger = true
		case models.VisionModePacking:
			trigger = len(vision.SuggestedCategoriesForProducts) > 0
		}
	}
	if !trigger {
		return nil
	}

	top := products.Candidates[0]
	return &models.Addon{
		ProductID:       top.ProductID,
		Summary:         top.Summary,
		Link:            top.Link,
		Merchant:        top.Merchant,
		PrimaryCategory: top.PrimaryCategory,
		Categories:      top.Categories,
	}
}
