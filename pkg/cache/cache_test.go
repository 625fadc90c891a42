package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(1 * time.Minute)

	c.Set("k", "v")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCache_Miss(t *testing.T) {
	c := New(1 * time.Minute)

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(30 * time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on access")
}

func TestCache_Overwrite(t *testing.T) {
	c := New(1 * time.Minute)

	c.Set("k", "old")
	c.Set("k", "new")

	v, _ := c.Get("k")
	assert.Equal(t, "new", v)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dicas magic kingdom", Normalize("  Dicas   Magic\tKingdom "))
	assert.Equal(t, "", Normalize("   "))
}

func TestEvidenceKey_NormalizedEquality(t *testing.T) {
	a := EvidenceKey("  Filas Magic Kingdom ", "Orlando", "PT", "v1")
	b := EvidenceKey("filas   magic kingdom", "orlando", "pt", "v1")
	assert.Equal(t, a, b)

	c := EvidenceKey("filas magic kingdom", "orlando", "pt", "v2")
	assert.NotEqual(t, a, c)
}

func TestProductKey_ExcludesMinConfidence(t *testing.T) {
	// The builder has no min_confidence parameter at all; requests that
	// differ only by threshold must map to the same key.
	a := ProductKey("orlando:ingresso:pt", "BR", "Orlando", "pt")
	b := ProductKey("orlando:ingresso:pt", "br", "orlando", "pt")
	assert.Equal(t, a, b)
}

func TestVisionKey_TripContextOrderIndependent(t *testing.T) {
	ctx1 := map[string]any{"destination": "Orlando", "temp_band": "cold"}
	ctx2 := map[string]any{"temp_band": "cold", "destination": "Orlando"}

	assert.Equal(t,
		VisionKey("data:image/png;base64,AAA", "packing", ctx1),
		VisionKey("data:image/png;base64,AAA", "packing", ctx2),
	)

	assert.NotEqual(t,
		VisionKey("data:image/png;base64,AAA", "packing", ctx1),
		VisionKey("data:image/png;base64,BBB", "packing", ctx1),
	)
}

func TestCanonicalJSON_Empty(t *testing.T) {
	assert.Equal(t, "{}", CanonicalJSON(nil))
	assert.Equal(t, "{}", CanonicalJSON(map[string]any{}))
}
