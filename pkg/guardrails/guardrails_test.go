package guardrails

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

func TestApply_UnsourcedFactualClaimRewritten(t *testing.T) {
	resp := &models.AssembledResponse{
		AnswerText: "You must visit at 8am. The rule requires advance booking.",
		Citations:  []string{},
	}

	Apply(resp, "when to go to Disney")

	assert.Equal(t, SafeFallback, resp.AnswerText)
	assert.Empty(t, resp.Citations)
}

func TestApply_CurrencyWithoutCitations(t *testing.T) {
	cases := []string{
		"Tickets cost R$ 450 per day.",
		"Expect USD 120 for a one-day pass.",
		"It is about $80 including transport.",
		"Cerca de 300 BRL por pessoa.",
		"Entry runs 100$ at the gate.",
	}
	for _, answer := range cases {
		resp := &models.AssembledResponse{AnswerText: answer, Citations: []string{}}
		Apply(resp, "how much is disney")
		assert.Equal(t, SafeFallback, resp.AnswerText, "answer: %s", answer)
	}
}

func TestApply_CitedClaimsSurvive(t *testing.T) {
	resp := &models.AssembledResponse{
		AnswerText: "You must arrive before 8am for rope drop.",
		Citations:  []string{"https://example.com/tips"},
	}

	Apply(resp, "when to go")

	assert.Equal(t, "You must arrive before 8am for rope drop.", resp.AnswerText)
	assert.Equal(t, []string{"https://example.com/tips"}, resp.Citations)
}

func TestApply_NonFactualUncitedAnswerSurvives(t *testing.T) {
	resp := &models.AssembledResponse{
		AnswerText: "Magic Kingdom is usually less crowded early in the day.",
		Citations:  []string{},
	}

	Apply(resp, "dicas magic kingdom")

	assert.NotEqual(t, SafeFallback, resp.AnswerText)
}

func TestApply_UnsolicitedAddonDropped(t *testing.T) {
	resp := &models.AssembledResponse{
		AnswerText: "Here are some tips.",
		Citations:  []string{"https://example.com/a"},
		Addon: &models.Addon{
			ProductID: "p1",
			Summary:   "Ticket pack for the parks",
			Link:      "https://example.com/p1",
			Merchant:  "m",
		},
	}

	Apply(resp, "dicas para evitar filas")

	assert.Nil(t, resp.Addon, "tickets bucket not mentioned in query")
}

func TestApply_RequestedAddonKept(t *testing.T) {
	addon := &models.Addon{
		ProductID: "p1",
		Summary:   "Ticket pack for the parks",
		Link:      "https://example.com/p1",
		Merchant:  "m",
	}
	resp := &models.AssembledResponse{
		AnswerText: "Here you go.",
		Citations:  []string{"https://example.com/a"},
		Addon:      addon,
	}

	Apply(resp, "quero comprar ingresso Magic Kingdom")

	assert.Equal(t, addon, resp.Addon)
}

func TestApply_UnclassifiableAddonKept(t *testing.T) {
	resp := &models.AssembledResponse{
		AnswerText: "Here you go.",
		Citations:  []string{"https://example.com/a"},
		Addon: &models.Addon{
			ProductID: "p2",
			Summary:   "A generic travel companion item",
			Link:      "https://example.com/p2",
			Merchant:  "m",
		},
	}

	Apply(resp, "random query")

	assert.NotNil(t, resp.Addon, "no inferable bucket means no drop")
}

func TestInferAddonBucket(t *testing.T) {
	assert.Equal(t, "tickets", InferAddonBucket(&models.Addon{Summary: "Park ticket bundle"}))
	assert.Equal(t, "hotel", InferAddonBucket(&models.Addon{Categories: []string{"hotel"}}))
	assert.Equal(t, "esim", InferAddonBucket(&models.Addon{Summary: "Global eSIM data plan"}))
	assert.Equal(t, "", InferAddonBucket(nil))
}
