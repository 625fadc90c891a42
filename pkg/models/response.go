package models

// TurnRequest is one user turn received over the session channel.
type TurnRequest struct {
	SessionID   string         `json:"session_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	UserQuery   string         `json:"user_query"`
	Destination string         `json:"destination,omitempty"`
	Lang        string         `json:"lang,omitempty"`
	ImageRef    string         `json:"image_ref,omitempty"`
	AudioRef    string         `json:"audio_ref,omitempty"`
	TripContext map[string]any `json:"trip_context,omitempty"`
	VoiceMode   bool           `json:"voice_mode,omitempty"`
}

// Addon is an optional commercial product attached to an answer.
type Addon struct {
	ProductID       string   `json:"product_id"`
	Summary         string   `json:"summary"`
	Link            string   `json:"link"`
	Merchant        string   `json:"merchant"`
	PrimaryCategory string   `json:"primary_category,omitempty"`
	Categories      []string `json:"categories,omitempty"`
}

// AssembledResponse is the single response emitted per user turn.
// Citations are ordered evidence-derived first, then graph-derived.
type AssembledResponse struct {
	XContractVersion string   `json:"x_contract_version"`
	SessionID        string   `json:"session_id"`
	RequestID        string   `json:"request_id"`
	AnswerText       string   `json:"answer_text"`
	Citations        []string `json:"citations"`
	Addon            *Addon   `json:"addon"`
	AudioRef         string   `json:"audio_ref,omitempty"`
}

// Timing is the per-request phase timing record, in milliseconds. It feeds
// evaluation and logs; it is never part of the response payload.
type Timing struct {
	KnowledgeMS float64 `json:"knowledge_ms"`
	ProductsMS  float64 `json:"products_ms"`
	GraphMS     float64 `json:"graph_ms"`
	VisionMS    float64 `json:"vision_ms"`
	STTMS       float64 `json:"stt_ms"`
	TTSMS       float64 `json:"tts_ms"`
	TotalMS     float64 `json:"total_ms"`
}
