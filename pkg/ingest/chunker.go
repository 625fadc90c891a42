package ingest

import (
	"math"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// Chunk packing bounds. Splits happen at segment boundaries only.
const (
	minChunkChars = 350
	maxChunkChars = 1200
	minChunkSecs  = 25.0
	maxChunkSecs  = 75.0
	softSplitGap  = 2.5
)

// boundaryCues mark topic transitions in travel videos; a cue forces a
// split once the current chunk already passes the minimum size.
var boundaryCues = []string{
	"next up", "moving on", "let's talk about", "another tip", "next tip",
	"proxima dica", "próxima dica", "outra dica", "agora vamos",
	"falando de", "mudando de assunto",
}

func startsWithCue(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, cue := range boundaryCues {
		if strings.HasPrefix(t, cue) {
			return true
		}
	}
	return false
}

// ChunkSegments packs timestamped segments into chunks of 350–1200 chars
// and 25–75 s: soft split at gaps over 2.5 s once minima are met, hard
// split at boundary cues past minima, hard split at maxima. The tail chunk
// is emitted regardless of size.
func ChunkSegments(segments []models.Segment) []models.Chunk {
	var chunks []models.Chunk

	var texts []string
	var chars int
	var start, end float64
	open := false

	flush := func() {
		if !open || len(texts) == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{
			StartSec: int(math.Floor(start)),
			EndSec:   int(math.Ceil(end)),
			Text:     strings.Join(texts, " "),
		})
		texts, chars, open = nil, 0, false
	}

	meetsMinima := func() bool {
		return chars >= minChunkChars && end-start >= minChunkSecs
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if open {
			gap := seg.Start - end
			if gap > softSplitGap && meetsMinima() {
				flush()
			} else if startsWithCue(text) && meetsMinima() {
				flush()
			}
		}

		if !open {
			start = seg.Start
			end = seg.Start
			open = true
		}
		texts = append(texts, text)
		chars += len(text) + 1
		if segEnd := seg.Start + seg.Duration; segEnd > end {
			end = segEnd
		}

		if chars >= maxChunkChars || end-start >= maxChunkSecs {
			flush()
		}
	}
	flush()
	return chunks
}
