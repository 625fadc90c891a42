package retrieval

import (
	"context"
	"errors"

	"github.com/brunoleme/ai-travel-assistant/pkg/cache"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

const (
	defaultEvidenceLimit = 8
	// evidenceStrategyVersion keys the cache; bump it when retrieval
	// scoring changes so stale rankings age out immediately.
	evidenceStrategyVersion = "v1"
)

// NewKnowledgeService builds the travel-evidence service over the vector
// store. Backend failure degrades to an empty evidence list.
func NewKnowledgeService(d *Deps) *Service[models.EvidenceRequest, []models.EvidenceCard] {
	return &Service[models.EvidenceRequest, []models.EvidenceCard]{
		Name:      "knowledge",
		Operation: "retrieve_travel_evidence",
		Schema:    contract.TravelEvidence,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "knowledge"),
		Cache:     cache.New(d.Config.CacheTTLs.Evidence),
		CacheKey: func(r *models.EvidenceRequest) string {
			return cache.EvidenceKey(r.UserQuery, r.Destination, r.Lang, evidenceStrategyVersion)
		},
		ValidateReq: func(r *models.EvidenceRequest) error {
			if r.UserQuery == "" {
				return errors.New("user_query is required")
			}
			return nil
		},
		Backend: func(ctx context.Context, r *models.EvidenceRequest) ([]models.EvidenceCard, error) {
			records, err := d.Vector.SearchCards(ctx, r.UserQuery, r.Destination, defaultEvidenceLimit)
			if err != nil {
				return nil, err
			}
			cards := make([]models.EvidenceCard, 0, len(records))
			for i := range records {
				if c, ok := adaptCard(&records[i]); ok {
					cards = append(cards, c)
				}
			}
			return cards, nil
		},
		Fallback: func(*models.EvidenceRequest, error) []models.EvidenceCard {
			return []models.EvidenceCard{}
		},
		Respond: func(r *models.EvidenceRequest, cards []models.EvidenceCard) any {
			return models.EvidenceResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				Evidence:         emptyOr(cards),
			}
		},
	}
}

// adaptCard maps a stored card onto the evidence contract. Records that
// cannot satisfy the contract's length bounds are dropped rather than
// failing the whole result.
func adaptCard(c *store.CardRecord) (models.EvidenceCard, bool) {
	if len(c.UUID) < 8 || len(c.Summary) < 10 || len(c.TimestampURL) < 8 {
		return models.EvidenceCard{}, false
	}
	return models.EvidenceCard{
		CardID:          c.UUID,
		Summary:         c.Summary,
		Signals:         emptyOr(c.Signals),
		Places:          emptyOr(c.Places),
		Categories:      emptyOr(c.Categories),
		PrimaryCategory: c.PrimaryCategory,
		Confidence:      clamp01(c.Confidence),
		SourceURL:       c.TimestampURL,
		VideoUploadDate: c.VideoUploadDate,
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
