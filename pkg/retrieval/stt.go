package retrieval

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// mimeToFormat maps audio MIME subtypes to the file-extension hint the
// transcription API expects.
var mimeToFormat = map[string]string{
	"mpeg":  "mp3",
	"mp3":   "mp3",
	"wav":   "wav",
	"x-wav": "wav",
	"ogg":   "ogg",
	"webm":  "webm",
	"mp4":   "m4a",
	"m4a":   "m4a",
	"x-m4a": "m4a",
	"flac":  "flac",
}

// STTPayload is the raw transcription result. STT responses are not cached.
type STTPayload struct {
	Transcript string
	Language   string
	Error      string
}

// NewSTTService builds the speech-to-text service.
func NewSTTService(d *Deps) *Service[models.STTRequest, STTPayload] {
	return &Service[models.STTRequest, STTPayload]{
		Name:      "stt",
		Operation: "transcribe",
		Schema:    contract.STTTranscript,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "stt"),
		ValidateReq: func(r *models.STTRequest) error {
			if len(r.AudioRef) < 8 {
				return errors.New("audio_ref is required")
			}
			return nil
		},
		Backend: func(ctx context.Context, r *models.STTRequest) (STTPayload, error) {
			if d.LLM == nil {
				return STTPayload{Language: r.Language, Error: "stt model not configured"}, nil
			}
			audio, format, err := DecodeAudioRef(ctx, r.AudioRef)
			if err != nil {
				return STTPayload{}, err
			}
			text, err := d.LLM.Transcribe(ctx, d.Config.Models.STT, audio, format, r.Language)
			if err != nil {
				return STTPayload{}, err
			}
			return STTPayload{Transcript: text, Language: r.Language}, nil
		},
		Fallback: func(r *models.STTRequest, cause error) STTPayload {
			return STTPayload{Language: r.Language, Error: cause.Error()}
		},
		Respond: func(r *models.STTRequest, p STTPayload) any {
			return models.STTResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				Transcript:       p.Transcript,
				Language:         p.Language,
				Error:            p.Error,
			}
		},
	}
}

// DecodeAudioRef resolves an audio reference into raw bytes and a format
// hint. data:audio/...;base64 URLs decode in place; http(s) URLs are
// fetched.
func DecodeAudioRef(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "data:audio/"):
		rest := strings.TrimPrefix(ref, "data:audio/")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return nil, "", errors.New("audio data URL is not base64")
		}
		format, ok := mimeToFormat[rest[:semi]]
		if !ok {
			format = "mp3"
		}
		audio, err := base64.StdEncoding.DecodeString(rest[semi+len(";base64,"):])
		if err != nil {
			return nil, "", fmt.Errorf("decode audio payload: %w", err)
		}
		return audio, format, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, "", fmt.Errorf("audio request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetch audio: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch audio: status %d", resp.StatusCode)
		}
		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read audio: %w", err)
		}
		format := "mp3"
		if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "audio/") {
			if f, ok := mimeToFormat[strings.TrimPrefix(ct, "audio/")]; ok {
				format = f
			}
		}
		return audio, format, nil

	default:
		return nil, "", fmt.Errorf("unsupported audio reference scheme: %.12s", ref)
	}
}
