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
	defaultProductLimit = 5
	// productScanLimit is how many ranked cards the backend pulls before
	// the per-request limit and confidence filter apply.
	productScanLimit = 50
)

// NewProductsService builds the product-candidates service. min_confidence
// and limit are applied after the cache read so tighter thresholds reuse
// looser cached results.
func NewProductsService(d *Deps) *Service[models.ProductRequest, []models.ProductCandidate] {
	return &Service[models.ProductRequest, []models.ProductCandidate]{
		Name:      "products",
		Operation: "retrieve_product_candidates",
		Schema:    contract.ProductCandidates,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "products"),
		Cache:     cache.New(d.Config.CacheTTLs.Products),
		CacheKey: func(r *models.ProductRequest) string {
			return cache.ProductKey(r.QuerySignature, r.Market, r.Destination, r.Lang)
		},
		ValidateReq: func(r *models.ProductRequest) error {
			if r.QuerySignature == "" {
				return errors.New("query_signature is required")
			}
			if len(r.QuerySignature) > 220 {
				return errors.New("query_signature exceeds 220 characters")
			}
			return nil
		},
		Backend: func(ctx context.Context, r *models.ProductRequest) ([]models.ProductCandidate, error) {
			records, err := d.Vector.SearchProductCards(ctx, r.QuerySignature, r.Destination, r.Market, productScanLimit)
			if err != nil {
				return nil, err
			}
			out := make([]models.ProductCandidate, 0, len(records))
			for i := range records {
				if c, ok := adaptProductCard(&records[i]); ok {
					out = append(out, c)
				}
			}
			return out, nil
		},
		Fallback: func(*models.ProductRequest, error) []models.ProductCandidate {
			return []models.ProductCandidate{}
		},
		PostFilter: func(r *models.ProductRequest, payload []models.ProductCandidate) []models.ProductCandidate {
			limit := r.Limit
			if limit <= 0 {
				limit = defaultProductLimit
			}
			out := make([]models.ProductCandidate, 0, limit)
			for _, c := range payload {
				if c.Confidence < r.MinConfidence {
					continue
				}
				out = append(out, c)
				if len(out) >= limit {
					break
				}
			}
			return out
		},
		Respond: func(r *models.ProductRequest, payload []models.ProductCandidate) any {
			return models.ProductResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				Candidates:       emptyOr(payload),
			}
		},
	}
}

// adaptProductCard maps a stored product card onto the candidate contract.
func adaptProductCard(c *store.ProductCardRecord) (models.ProductCandidate, bool) {
	if len(c.UUID) < 4 || len(c.Summary) < 10 || len(c.Link) < 8 {
		return models.ProductCandidate{}, false
	}
	return models.ProductCandidate{
		ProductID:         c.UUID,
		Summary:           c.Summary,
		Link:              c.Link,
		Merchant:          c.Merchant,
		PrimaryCategory:   c.PrimaryCategory,
		Categories:        emptyOr(c.Categories),
		Triggers:          emptyOr(c.Triggers),
		Constraints:       emptyOr(c.Constraints),
		AffiliatePriority: clamp01(c.AffiliatePriority),
		UserValue:         clamp01(c.UserValue),
		Confidence:        clamp01(c.Confidence),
	}, true
}
