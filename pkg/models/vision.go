package models

// VisionMode selects the analysis prompt and the shape of VisionSignals.
type VisionMode string

// Vision analysis modes.
const (
	VisionModePacking           VisionMode = "packing"
	VisionModeLandmark          VisionMode = "landmark"
	VisionModeProductSimilarity VisionMode = "product_similarity"
)

// TravelItemCategories is the closed 18-item set for packing and
// product-similarity categories. Model output outside this set is dropped.
var TravelItemCategories = map[string]bool{
	"light_top":            true,
	"warm_top":             true,
	"insulated_jacket":     true,
	"rain_jacket":          true,
	"long_pants":           true,
	"shorts_or_skirt":      true,
	"walking_shoes":        true,
	"sandals":              true,
	"weather_proof_shoes":  true,
	"sun_protection":       true,
	"cold_accessory":       true,
	"umbrella":             true,
	"day_bag":              true,
	"travel_bag_organizer": true,
	"power_adapter":        true,
	"portable_charger":     true,
	"water_bottle":         true,
	"travel_comfort_item":  true,
}

// SceneTypes is the closed 11-value set for landmark scene classification.
var SceneTypes = map[string]bool{
	"landmark":   true,
	"street":     true,
	"beach":      true,
	"mountain":   true,
	"museum":     true,
	"airport":    true,
	"restaurant": true,
	"hotel":      true,
	"transit":    true,
	"urban":      true,
	"nature":     true,
}

// VisionRequest is the image-analysis request payload.
type VisionRequest struct {
	ImageRef    string         `json:"image_ref"`
	Mode        VisionMode     `json:"mode"`
	TripContext map[string]any `json:"trip_context,omitempty"`
	UserQuery   string         `json:"user_query,omitempty"`
	Lang        string         `json:"lang,omitempty"`
	Debug       bool           `json:"debug,omitempty"`
}

// PlaceCandidate is one guessed place for landmark mode.
type PlaceCandidate struct {
	PlaceName  string   `json:"place_name"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// VisionSignals is the mode-tagged analysis result. Only the fields for the
// tagged mode are populated; Mode always echoes the request.
type VisionSignals struct {
	Mode       VisionMode `json:"mode"`
	Confidence float64    `json:"confidence"`
	Error      string     `json:"error,omitempty"`

	// packing
	DetectedItems                  []string `json:"detected_items,omitempty"`
	MissingCategories              []string `json:"missing_categories,omitempty"`
	SuitabilityOK                  *bool    `json:"suitability_ok,omitempty"`
	SuitabilityIssue               string   `json:"suitability_issue,omitempty"`
	SuggestedCategoriesForProducts []string `json:"suggested_categories_for_products,omitempty"`

	// landmark
	SceneType           string           `json:"scene_type,omitempty"`
	OCRText             []string         `json:"ocr_text,omitempty"`
	DistinctiveFeatures []string         `json:"distinctive_features,omitempty"`
	LanguageHint        string           `json:"language_hint,omitempty"`
	PlaceCandidates     []PlaceCandidate `json:"place_candidates,omitempty"`

	// product_similarity
	Category      string            `json:"category,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	StyleKeywords []string          `json:"style_keywords,omitempty"`
	SearchQueries []string          `json:"search_queries,omitempty"`
}

// VisionResponse is the image-analysis envelope.
type VisionResponse struct {
	XContractVersion string         `json:"x_contract_version"`
	Request          VisionRequest  `json:"request"`
	Signals          VisionSignals  `json:"signals"`
	Debug            map[string]any `json:"debug,omitempty"`
}

// STTRequest is the speech-to-text request payload. AudioRef is a
// data:audio/...;base64 URL or an http(s) URL.
type STTRequest struct {
	AudioRef string `json:"audio_ref"`
	Language string `json:"language,omitempty"`
	Debug    bool   `json:"debug,omitempty"`
}

// STTResponse is the transcription envelope. On backend failure Transcript
// is empty and Error is set; the envelope still validates.
type STTResponse struct {
	XContractVersion string         `json:"x_contract_version"`
	Request          STTRequest     `json:"request"`
	Transcript       string         `json:"transcript"`
	Language         string         `json:"language,omitempty"`
	Confidence       *float64       `json:"confidence,omitempty"`
	DurationSeconds  *float64       `json:"duration_seconds,omitempty"`
	Error            string         `json:"error,omitempty"`
	Debug            map[string]any `json:"debug,omitempty"`
}

// TTSRequest is the speech-synthesis request payload.
type TTSRequest struct {
	Text     string   `json:"text"`
	Voice    string   `json:"voice,omitempty"`
	Language string   `json:"language,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Format   string   `json:"format,omitempty"`
	Debug    bool     `json:"debug,omitempty"`
}

// TTSResponse is the synthesis envelope. AudioRef is always non-empty; a
// placeholder data URL is used on failure with Error set.
type TTSResponse struct {
	XContractVersion string         `json:"x_contract_version"`
	Request          TTSRequest     `json:"request"`
	AudioRef         string         `json:"audio_ref"`
	Format           string         `json:"format,omitempty"`
	DurationSeconds  *float64       `json:"duration_seconds,omitempty"`
	Error            string         `json:"error,omitempty"`
	Debug            map[string]any `json:"debug,omitempty"`
}
