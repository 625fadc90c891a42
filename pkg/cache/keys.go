package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize applies the universal key normalization: trim outer whitespace,
// collapse internal runs to a single space, lowercase. Empty stays empty.
func Normalize(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func join(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = Normalize(p)
	}
	return strings.Join(normalized, "|")
}

// EvidenceKey builds the travel-evidence cache key.
func EvidenceKey(userQuery, destination, lang, strategyVersion string) string {
	return join(userQuery, destination, lang, strategyVersion)
}

// ProductKey builds the product-candidates cache key. min_confidence is
// deliberately excluded: it is a deterministic post-filter, so tighter
// thresholds reuse looser cached results.
func ProductKey(querySignature, market, destination, lang string) string {
	return join(querySignature, market, destination, lang)
}

// GraphKey builds the travel-graph cache key.
func GraphKey(userQuery, destination, lang string) string {
	return join(userQuery, destination, lang)
}

// VisionKey builds the vision cache key from a truncated hash of the image
// reference, the mode, and the canonical JSON of the trip context.
func VisionKey(imageRef, mode string, tripContext map[string]any) string {
	sum := sha256.Sum256([]byte(imageRef))
	return join(hex.EncodeToString(sum[:])[:32], mode, CanonicalJSON(tripContext))
}

// CanonicalJSON renders a map with sorted keys so equal contexts always
// produce equal strings. Nil and empty both render as "{}".
func CanonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(m[k])
		if err != nil {
			vb = []byte(`null`)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}
