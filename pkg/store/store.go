// Package store holds the persistent state behind the retrieval services
// and the ingestion writers: the vector-store record classes
// (RecommendationCard, Video, Product, ProductCard) and the travel graph
// (Entity nodes, REL edges). Field names are preserved for schema
// bootstrap. Two implementations exist: MongoDB and in-memory.
package store

import (
	"context"
	"sort"
	"strings"
)

// VideoRecord is one ingested video.
type VideoRecord struct {
	UUID       string `bson:"_id" json:"uuid"`
	URL        string `bson:"url" json:"url"`
	Title      string `bson:"title" json:"title"`
	Channel    string `bson:"channel" json:"channel"`
	UploadDate string `bson:"uploadDate" json:"uploadDate,omitempty"`
	Lang       string `bson:"lang" json:"lang,omitempty"`
}

// CardRecord is one RecommendationCard row derived from a transcript chunk.
type CardRecord struct {
	UUID            string   `bson:"_id" json:"uuid"`
	VideoUUID       string   `bson:"videoUuid" json:"videoUuid"`
	Summary         string   `bson:"summary" json:"summary"`
	PrimaryCategory string   `bson:"primaryCategory" json:"primaryCategory"`
	Categories      []string `bson:"categories" json:"categories"`
	Places          []string `bson:"places" json:"places"`
	Signals         []string `bson:"signals" json:"signals"`
	Confidence      float64  `bson:"confidence" json:"confidence"`
	StartSec        int      `bson:"startSec" json:"startSec"`
	EndSec          int      `bson:"endSec" json:"endSec"`
	TimestampURL    string   `bson:"timestampUrl" json:"timestampUrl"`
	Destination     string   `bson:"destination" json:"destination,omitempty"`
	Lang            string   `bson:"lang" json:"lang,omitempty"`
	VideoUploadDate string   `bson:"videoUploadDate" json:"videoUploadDate,omitempty"`
}

// ProductRecord is one ingested product.
type ProductRecord struct {
	UUID        string `bson:"_id" json:"uuid"`
	Link        string `bson:"link" json:"link"`
	Question    string `bson:"question" json:"question"`
	Opportunity string `bson:"opportunity" json:"opportunity,omitempty"`
	Destination string `bson:"destination" json:"destination,omitempty"`
	Market      string `bson:"market" json:"market,omitempty"`
	Lang        string `bson:"lang" json:"lang,omitempty"`
}

// ProductCardRecord is one enriched ProductCard row.
type ProductCardRecord struct {
	UUID              string   `bson:"_id" json:"uuid"`
	ProductUUID       string   `bson:"productUuid" json:"productUuid"`
	Link              string   `bson:"link" json:"link"`
	Merchant          string   `bson:"merchant" json:"merchant"`
	Summary           string   `bson:"summary" json:"summary"`
	PrimaryCategory   string   `bson:"primaryCategory" json:"primaryCategory"`
	Categories        []string `bson:"categories" json:"categories"`
	Triggers          []string `bson:"triggers" json:"triggers"`
	Constraints       []string `bson:"constraints" json:"constraints"`
	AffiliatePriority float64  `bson:"affiliatePriority" json:"affiliatePriority"`
	UserValue         float64  `bson:"userValue" json:"userValue"`
	Confidence        float64  `bson:"confidence" json:"confidence"`
	Destination       string   `bson:"destination" json:"destination,omitempty"`
	Market            string   `bson:"market" json:"market,omitempty"`
	Lang              string   `bson:"lang" json:"lang,omitempty"`
}

// NodeRecord is one Entity node of the travel graph.
type NodeRecord struct {
	ID         string         `bson:"_id" json:"id"`
	Type       string         `bson:"type" json:"type"`
	Name       string         `bson:"name" json:"name"`
	Aliases    []string       `bson:"aliases" json:"aliases"`
	Properties map[string]any `bson:"properties" json:"properties"`
}

// EdgeRecord is one REL edge. Evidence stores the JSON string of the
// contract evidence object.
type EdgeRecord struct {
	Source   string `bson:"source" json:"source"`
	Type     string `bson:"type" json:"type"`
	Target   string `bson:"target" json:"target"`
	StartSec int    `bson:"startSec" json:"startSec"`
	EndSec   int    `bson:"endSec" json:"endSec"`
	Evidence string `bson:"evidence" json:"evidence"`
}

// VectorStore is the persistence surface for videos, cards, products, and
// product cards. All writers are upsert-if-absent: the bool reports whether
// a new record was created.
type VectorStore interface {
	UpsertVideo(ctx context.Context, v *VideoRecord) (bool, error)
	InsertCardIfAbsent(ctx context.Context, c *CardRecord) (bool, error)
	UpsertProduct(ctx context.Context, p *ProductRecord) (bool, error)
	InsertProductCardIfAbsent(ctx context.Context, c *ProductCardRecord) (bool, error)

	SearchCards(ctx context.Context, query, destination string, limit int) ([]CardRecord, error)
	SearchProductCards(ctx context.Context, signature, destination, market string, limit int) ([]ProductCardRecord, error)
}

// GraphStore is the persistence surface for the travel graph.
type GraphStore interface {
	UpsertNode(ctx context.Context, n *NodeRecord) error
	UpsertEdge(ctx context.Context, e *EdgeRecord) (bool, error)

	FindNodes(ctx context.Context, query string, limit int) ([]NodeRecord, error)
	EdgesAmong(ctx context.Context, nodeIDs []string) ([]EdgeRecord, error)
}

// Tokenize lowercases and splits on non-alphanumeric runs, dropping
// one-character tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r > 127)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// ContainmentScore counts how many query tokens appear in the document
// text. Zero means no overlap.
func ContainmentScore(queryTokens []string, docText string) int {
	doc := strings.ToLower(docText)
	score := 0
	for _, tok := range queryTokens {
		if strings.Contains(doc, tok) {
			score++
		}
	}
	return score
}

type scored[T any] struct {
	item  T
	score int
	order int
}

// rankByScore keeps items with positive score, highest first; ties resolve
// by original order so results are deterministic.
func rankByScore[T any](items []scored[T], limit int) []T {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].order < items[j].order
	})
	var out []T
	for _, it := range items {
		if it.score <= 0 {
			continue
		}
		out = append(out, it.item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// cardText is the searchable projection of a card.
func cardText(c *CardRecord) string {
	return c.Summary + " " + strings.Join(c.Places, " ") + " " + strings.Join(c.Signals, " ") + " " + strings.Join(c.Categories, " ")
}

// productCardText is the searchable projection of a product card.
func productCardText(c *ProductCardRecord) string {
	return c.Summary + " " + c.PrimaryCategory + " " + strings.Join(c.Categories, " ") + " " + strings.Join(c.Triggers, " ")
}
