package retrieval

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// placeholderAudioRef satisfies the contract's non-empty audio_ref when
// synthesis fails.
const placeholderAudioRef = "data:audio/mp3;base64,YQ=="

var ttsVoices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

var ttsFormats = map[string]bool{
	"mp3":  true,
	"opus": true,
	"aac":  true,
	"wav":  true,
	"pcm":  true,
}

// TTSPayload is the raw synthesis result. TTS responses are not cached.
type TTSPayload struct {
	AudioRef string
	Format   string
	Error    string
}

// NewTTSService builds the speech-synthesis service. The response always
// carries a non-empty audio_ref.
func NewTTSService(d *Deps) *Service[models.TTSRequest, TTSPayload] {
	return &Service[models.TTSRequest, TTSPayload]{
		Name:      "tts",
		Operation: "synthesize",
		Schema:    contract.TTSAudio,
		Registry:  d.Registry,
		Metrics:   metrics.NewMetrics(),
		Logger:    metrics.NewRequestLogger(d.Logger, "tts"),
		ValidateReq: func(r *models.TTSRequest) error {
			if r.Text == "" {
				return errors.New("text is required")
			}
			if len(r.Text) > 4000 {
				return errors.New("text exceeds 4000 characters")
			}
			return nil
		},
		Backend: func(ctx context.Context, r *models.TTSRequest) (TTSPayload, error) {
			format := r.Format
			if !ttsFormats[format] {
				format = "mp3"
			}
			if d.LLM == nil {
				return TTSPayload{AudioRef: placeholderAudioRef, Format: format, Error: "tts model not configured"}, nil
			}

			voice := r.Voice
			if !ttsVoices[voice] {
				voice = "alloy"
			}
			speed := 1.0
			if r.Speed != nil {
				speed = *r.Speed
				if speed < 0.25 {
					speed = 0.25
				}
				if speed > 4 {
					speed = 4
				}
			}

			audio, err := d.LLM.Speak(ctx, d.Config.Models.TTS, r.Text, voice, format, speed)
			if err != nil {
				return TTSPayload{}, err
			}
			ref := "data:audio/" + format + ";base64," + base64.StdEncoding.EncodeToString(audio)
			return TTSPayload{AudioRef: ref, Format: format}, nil
		},
		Fallback: func(r *models.TTSRequest, cause error) TTSPayload {
			format := r.Format
			if !ttsFormats[format] {
				format = "mp3"
			}
			return TTSPayload{AudioRef: placeholderAudioRef, Format: format, Error: cause.Error()}
		},
		Respond: func(r *models.TTSRequest, p TTSPayload) any {
			return models.TTSResponse{
				XContractVersion: models.ContractVersion,
				Request:          *r,
				AudioRef:         p.AudioRef,
				Format:           p.Format,
				Error:            p.Error,
			}
		},
	}
}
