package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brunoleme/ai-travel-assistant/pkg/cache"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// Prompt templates per analysis mode. Each demands strict JSON so the
// tolerant parser has something to find.
const (
	packingPrompt = `You are a travel packing analyst. Inspect the image and answer ONLY with a JSON object:
{"detected_items": [..], "missing_categories": [..], "suitability_ok": true|false, "suitability_issue": "...", "suggested_categories_for_products": [..], "confidence": 0.0-1.0}
Categories must come from: light_top, warm_top, insulated_jacket, rain_jacket, long_pants, shorts_or_skirt, walking_shoes, sandals, weather_proof_shoes, sun_protection, cold_accessory, umbrella, day_bag, travel_bag_organizer, power_adapter, portable_charger, water_bottle, travel_comfort_item.`

	landmarkPrompt = `You are a travel scene analyst. Inspect the image and answer ONLY with a JSON object:
{"scene_type": "...", "ocr_text": [..], "distinctive_features": [..], "language_hint": "...", "place_candidates": [{"place_name": "...", "confidence": 0.0-1.0, "reason": "..."}], "confidence": 0.0-1.0}
scene_type must be one of: landmark, street, beach, mountain, museum, airport, restaurant, hotel, transit, urban, nature.`

	productSimilarityPrompt = `You are a travel product analyst. Inspect the item in the image and answer ONLY with a JSON object:
{"category": "...", "attributes": {"color": "...", "material": "..."}, "style_keywords": [..], "search_queries": [..], "confidence": 0.0-1.0}
category must come from: light_top, warm_top, insulated_jacket, rain_jacket, long_pants, shorts_or_skirt, walking_shoes, sandals, weather_proof_shoes, sun_protection, cold_accessory, umbrella, day_bag, travel_bag_organizer, power_adapter, portable_charger, water_bottle, travel_comfort_item.`
)

// NewVisionService builds the image-analysis service. The backend is the
// vision model; its free-form output is coerced onto the closed signal
// sets before anything leaves the service.
func NewVisionService(d *Deps) *Service[models.VisionRequest, models.VisionSignals] {
	return &Service[models.VisionRequest, models.VisionSignals]{
		Name:      "vision",
		Operation: "analyze_image",
		Schema:    contract.VisionSignals,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "vision"),
		Cache:     cache.New(d.Config.CacheTTLs.Vision),
		CacheKey: func(r *models.VisionRequest) string {
			return cache.VisionKey(r.ImageRef, string(r.Mode), r.TripContext)
		},
		ValidateReq: func(r *models.VisionRequest) error {
			if len(r.ImageRef) < 8 {
				return errors.New("image_ref is required")
			}
			switch r.Mode {
			case models.VisionModePacking, models.VisionModeLandmark, models.VisionModeProductSimilarity:
				return nil
			default:
				return fmt.Errorf("unknown vision mode %q", r.Mode)
			}
		},
		Backend: func(ctx context.Context, r *models.VisionRequest) (models.VisionSignals, error) {
			if d.LLM == nil {
				return mockVisionSignals(r.Mode), nil
			}
			raw, err := d.LLM.ChatVisionJSON(ctx, d.Config.Models.Vision, promptFor(r.Mode), visionUserText(r), r.ImageRef)
			if err != nil {
				return models.VisionSignals{}, err
			}
			return CoerceVisionSignals(r.Mode, raw)
		},
		Fallback: func(r *models.VisionRequest, cause error) models.VisionSignals {
			return models.VisionSignals{
				Mode:       r.Mode,
				Confidence: 0,
				Error:      cause.Error(),
			}
		},
		Respond: func(r *models.VisionRequest, s models.VisionSignals) any {
			return models.VisionResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				Signals:          s,
			}
		},
	}
}

func promptFor(mode models.VisionMode) string {
	switch mode {
	case models.VisionModeLandmark:
		return landmarkPrompt
	case models.VisionModeProductSimilarity:
		return productSimilarityPrompt
	default:
		return packingPrompt
	}
}

func visionUserText(r *models.VisionRequest) string {
	text := r.UserQuery
	if text == "" {
		text = "Analyze this image."
	}
	if len(r.TripContext) > 0 {
		text += " Trip context: " + cache.CanonicalJSON(r.TripContext)
	}
	return text
}

// rawVisionSignals is the tolerant decode target for model output.
type rawVisionSignals struct {
	Confidence float64 `json:"confidence"`

	DetectedItems                  []string `json:"detected_items"`
	MissingCategories              []string `json:"missing_categories"`
	SuitabilityOK                  *bool    `json:"suitability_ok"`
	SuitabilityIssue               string   `json:"suitability_issue"`
	SuggestedCategoriesForProducts []string `json:"suggested_categories_for_products"`

	SceneType           string                  `json:"scene_type"`
	OCRText             []string                `json:"ocr_text"`
	DistinctiveFeatures []string                `json:"distinctive_features"`
	LanguageHint        string                  `json:"language_hint"`
	PlaceCandidates     []models.PlaceCandidate `json:"place_candidates"`

	Category      string            `json:"category"`
	Attributes    map[string]string `json:"attributes"`
	StyleKeywords []string          `json:"style_keywords"`
	SearchQueries []string          `json:"search_queries"`
}

// CoerceVisionSignals maps raw model JSON onto the mode-tagged contract:
// categories filtered to the 18-item set, scene type to the 11-value set,
// confidence clamped, at most three place candidates, mode echoed.
func CoerceVisionSignals(mode models.VisionMode, raw []byte) (models.VisionSignals, error) {
	var r rawVisionSignals
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.VisionSignals{}, fmt.Errorf("decode vision signals: %w", err)
	}

	out := models.VisionSignals{
		Mode:       mode,
		Confidence: clamp01(r.Confidence),
	}

	switch mode {
	case models.VisionModePacking:
		out.DetectedItems = r.DetectedItems
		out.MissingCategories = filterCategories(r.MissingCategories)
		out.SuitabilityOK = r.SuitabilityOK
		out.SuitabilityIssue = r.SuitabilityIssue
		out.SuggestedCategoriesForProducts = filterCategories(r.SuggestedCategoriesForProducts)

	case models.VisionModeLandmark:
		if models.SceneTypes[r.SceneType] {
			out.SceneType = r.SceneType
		}
		out.OCRText = r.OCRText
		out.DistinctiveFeatures = r.DistinctiveFeatures
		out.LanguageHint = r.LanguageHint
		candidates := r.PlaceCandidates
		if len(candidates) > 3 {
			candidates = candidates[:3]
		}
		for i := range candidates {
			if candidates[i].Confidence != nil {
				c := clamp01(*candidates[i].Confidence)
				candidates[i].Confidence = &c
			}
		}
		kept := candidates[:0]
		for _, c := range candidates {
			if c.PlaceName != "" {
				kept = append(kept, c)
			}
		}
		out.PlaceCandidates = kept

	case models.VisionModeProductSimilarity:
		if models.TravelItemCategories[r.Category] {
			out.Category = r.Category
		}
		out.Attributes = r.Attributes
		out.StyleKeywords = r.StyleKeywords
		out.SearchQueries = r.SearchQueries
	}

	return out, nil
}

func filterCategories(in []string) []string {
	var out []string
	for _, c := range in {
		if models.TravelItemCategories[c] {
			out = append(out, c)
		}
	}
	return out
}

// mockVisionSignals keeps the contract valid in development when no model
// credentials are configured.
func mockVisionSignals(mode models.VisionMode) models.VisionSignals {
	switch mode {
	case models.VisionModeLandmark:
		conf := 0.2
		return models.VisionSignals{
			Mode:       mode,
			Confidence: 0.3,
			SceneType:  "landmark",
			PlaceCandidates: []models.PlaceCandidate{
				{PlaceName: "Unknown landmark", Confidence: &conf},
			},
		}
	case models.VisionModeProductSimilarity:
		return models.VisionSignals{
			Mode:          mode,
			Confidence:    0.3,
			Category:      "day_bag",
			SearchQueries: []string{"travel day bag"},
		}
	default:
		ok := true
		return models.VisionSignals{
			Mode:          mode,
			Confidence:    0.3,
			DetectedItems: []string{"light_top", "walking_shoes"},
			SuitabilityOK: &ok,
		}
	}
}
