package models

// Segment is one timestamped transcript segment from the subtitle fetcher.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Chunk is a packed run of segments with second-granularity bounds.
type Chunk struct {
	StartSec int    `json:"startSec"`
	EndSec   int    `json:"endSec"`
	Text     string `json:"text"`
}

// CardCategories is the closed category set for video recommendation cards.
var CardCategories = map[string]bool{
	"attraction": true,
	"food":       true,
	"hotel":      true,
	"transport":  true,
	"shopping":   true,
	"tip":        true,
	"warning":    true,
	"itinerary":  true,
	"budget":     true,
	"timing":     true,
	"other":      true,
}

// ProductCategories is the closed category set for product cards.
var ProductCategories = map[string]bool{
	"insurance":   true,
	"esim":        true,
	"flights":     true,
	"hotel":       true,
	"tickets":     true,
	"transport":   true,
	"planner":     true,
	"gear":        true,
	"experiences": true,
	"finance":     true,
	"shopping":    true,
	"official":    true,
	"other":       true,
}

// RecommendationCard is the enrichment result for one transcript chunk.
type RecommendationCard struct {
	Summary         string   `json:"summary"`
	PrimaryCategory string   `json:"primaryCategory"`
	Categories      []string `json:"categories"`
	Places          []string `json:"places"`
	Signals         []string `json:"signals"`
	Confidence      float64  `json:"confidence"`
	Rationale       string   `json:"rationale,omitempty"`
}

// ProductInput is one product record entering the ingestion pipeline.
type ProductInput struct {
	Question    string `json:"question"`
	Opportunity string `json:"opportunity"`
	Link        string `json:"link"`
	Destination string `json:"destination,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Market      string `json:"market,omitempty"`
}

// ProductCard is the enrichment result for one product input.
type ProductCard struct {
	Summary           string   `json:"summary"`
	PrimaryCategory   string   `json:"primaryCategory"`
	Categories        []string `json:"categories"`
	Triggers          []string `json:"triggers"`
	Constraints       []string `json:"constraints"`
	AffiliatePriority float64  `json:"affiliatePriority"`
	UserValue         float64  `json:"userValue"`
	Confidence        float64  `json:"confidence"`
	Rationale         string   `json:"rationale,omitempty"`
}

// GraphExtraction is the node/edge set extracted from one chunk.
type GraphExtraction struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNodeTypes is the allow-list for extracted node types.
var GraphNodeTypes = map[string]bool{
	"city":          true,
	"place":         true,
	"poi":           true,
	"itinerary":     true,
	"dayplan":       true,
	"activity_type": true,
	"advice":        true,
	"constraint":    true,
}

// GraphEdgeTypes is the allow-list for extracted edge types.
var GraphEdgeTypes = map[string]bool{
	"ITINERARY_FOR":     true,
	"HAS_DAY":           true,
	"INCLUDES_POI":      true,
	"IN_AREA":           true,
	"ORDER_BEFORE":      true,
	"CLUSTERED_BY":      true,
	"SUGGESTED_DAYS":    true,
	"HAS_ACTIVITY_TYPE": true,
	"HAS_ADVICE":        true,
	"HAS_CONSTRAINT":    true,
}

// VideoMetadata is what the subtitle fetcher reports about a video.
type VideoMetadata struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Channel    string `json:"channel"`
	UploadDate string `json:"upload_date,omitempty"`
	WebpageURL string `json:"webpage_url"`
}
