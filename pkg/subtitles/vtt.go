package subtitles

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

var (
	cueTiming = regexp.MustCompile(`(\d{1,2}:)?\d{2}:\d{2}\.\d{3}\s+-->\s+(\d{1,2}:)?\d{2}:\d{2}\.\d{3}`)
	inlineTag = regexp.MustCompile(`<[^>]*>`)
)

// ParseVTT turns a WebVTT document into transcript segments. Inline tags
// are stripped and consecutive cues with identical text are collapsed,
// which flattens the rolling repeats in automatic captions.
func ParseVTT(doc string) []models.Segment {
	var segments []models.Segment
	lines := strings.Split(doc, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !cueTiming.MatchString(line) {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		start, ok1 := parseTimestamp(strings.TrimSpace(parts[0]))
		endField := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endField) == 0 {
			continue
		}
		end, ok2 := parseTimestamp(endField[0])
		if !ok1 || !ok2 || end < start {
			continue
		}

		var text []string
		for i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" || cueTiming.MatchString(next) {
				break
			}
			i++
			cleaned := strings.TrimSpace(inlineTag.ReplaceAllString(next, ""))
			if cleaned != "" {
				text = append(text, cleaned)
			}
		}
		if len(text) == 0 {
			continue
		}
		joined := strings.Join(text, " ")
		if n := len(segments); n > 0 && segments[n-1].Text == joined {
			// Rolling caption repeat: extend the previous cue instead.
			segments[n-1].Duration = end - segments[n-1].Start
			continue
		}
		segments = append(segments, models.Segment{
			Start:    start,
			Duration: end - start,
			Text:     joined,
		})
	}
	return segments
}

// parseTimestamp reads hh:mm:ss.mmm or mm:ss.mmm into seconds.
func parseTimestamp(ts string) (float64, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
