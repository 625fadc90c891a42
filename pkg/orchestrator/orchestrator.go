package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/guardrails"
	"github.com/brunoleme/ai-travel-assistant/pkg/memory"
	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
	"github.com/brunoleme/ai-travel-assistant/pkg/trace"
)

// Retriever is the downstream surface the orchestrator fans out to.
// *mcp.Client implements it.
type Retriever interface {
	RetrieveTravelEvidence(ctx context.Context, req models.EvidenceRequest) (*models.EvidenceResponse, error)
	RetrieveProductCandidates(ctx context.Context, req models.ProductRequest) (*models.ProductResponse, error)
	RetrieveTravelGraph(ctx context.Context, req models.GraphRequest) (*models.GraphResponse, error)
	AnalyzeImage(ctx context.Context, req models.VisionRequest) (*models.VisionResponse, error)
	Transcribe(ctx context.Context, req models.STTRequest) (*models.STTResponse, error)
	Synthesize(ctx context.Context, req models.TTSRequest) (*models.TTSResponse, error)
}

// Orchestrator handles user turns end to end.
type Orchestrator struct {
	client   Retriever
	memory   *memory.Store
	registry *contract.Registry
	tracer   trace.Tracer
	logger   *metrics.RequestLogger
	slogger  *slog.Logger
}

// New wires an orchestrator.
func New(client Retriever, mem *memory.Store, registry *contract.Registry, tracer trace.Tracer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		memory:   mem,
		registry: registry,
		tracer:   tracer,
		logger:   metrics.NewRequestLogger(logger, "orchestrator"),
		slogger:  logger,
	}
}

// HandleTurn processes one turn: STT first when audio is present, memory
// update, concurrent fan-out, products, deterministic assembly, guardrails,
// optional TTS. Branch failures are missing signals; the only error path is
// an assembled response that fails outbound validation.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn models.TurnRequest) (*models.AssembledResponse, *models.Timing, error) {
	start := time.Now()
	timing := &models.Timing{}

	sessionID := turn.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	requestID := turn.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	userQuery := turn.UserQuery
	ctx, endTurn := o.tracer.Span(ctx, "handle_turn", map[string]string{
		"session_id":      sessionID,
		"request_id":      requestID,
		"user_query_hash": metrics.QueryHash(userQuery),
	})
	defer endTurn()

	anyFallback := false

	// Audio replaces the user query before any routing decision.
	if turn.AudioRef != "" {
		sttStart := time.Now()
		_, end := o.tracer.Span(ctx, "stt_mcp_call", nil)
		sttResp, err := o.client.Transcribe(ctx, models.STTRequest{AudioRef: turn.AudioRef, Language: turn.Lang})
		end()
		timing.STTMS = msSince(sttStart)
		if err != nil || sttResp.Transcript == "" {
			anyFallback = true
			o.slogger.Warn("Transcription unavailable, keeping typed query", "request_id", requestID)
		} else {
			userQuery = sttResp.Transcript
		}
	}

	// Memory effects must be visible to the first downstream call.
	o.memory.Update(sessionID, userQuery, nil)
	memHash := o.memory.Hash(sessionID, 8)

	b := branches{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		kStart := time.Now()
		_, end := o.tracer.Span(ctx, "answer_generation", nil)
		defer end()
		resp, err := o.client.RetrieveTravelEvidence(ctx, models.EvidenceRequest{
			UserQuery:   userQuery,
			Destination: turn.Destination,
			Lang:        turn.Lang,
		})
		mu.Lock()
		defer mu.Unlock()
		timing.KnowledgeMS = msSince(kStart)
		if err != nil {
			anyFallback = true
			return
		}
		b.evidence = resp
	}()

	if wantsGraph(userQuery) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gStart := time.Now()
			_, end := o.tracer.Span(ctx, "graph_mcp_call", nil)
			defer end()
			resp, err := o.client.RetrieveTravelGraph(ctx, models.GraphRequest{
				UserQuery:   userQuery,
				Destination: turn.Destination,
				Lang:        turn.Lang,
			})
			mu.Lock()
			defer mu.Unlock()
			timing.GraphMS = msSince(gStart)
			if err != nil {
				anyFallback = true
				return
			}
			b.graph = resp
		}()
	}

	if turn.ImageRef != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vStart := time.Now()
			_, end := o.tracer.Span(ctx, "vision_mcp_call", nil)
			defer end()
			resp, err := o.client.AnalyzeImage(ctx, models.VisionRequest{
				ImageRef:    turn.ImageRef,
				Mode:        inferVisionMode(userQuery),
				TripContext: turn.TripContext,
				UserQuery:   userQuery,
				Lang:        turn.Lang,
			})
			mu.Lock()
			defer mu.Unlock()
			timing.VisionMS = msSince(vStart)
			if err != nil {
				anyFallback = true
				return
			}
			b.vision = &resp.Signals
		}()
	}

	wg.Wait()

	// Products run after vision: a vision result can redirect the query
	// signature toward what the image showed.
	pStart := time.Now()
	_, endProducts := o.tracer.Span(ctx, "product_decision", nil)
	signature := productSignature(turn.Destination, userQuery, turn.Lang, memHash)
	signature = visionAdjustedSignature(signature, turn.Destination, turn.Lang, memHash, b.vision)
	productsResp, err := o.client.RetrieveProductCandidates(ctx, models.ProductRequest{
		QuerySignature: signature,
		Destination:    turn.Destination,
		Lang:           turn.Lang,
		Limit:          5,
	})
	endProducts()
	timing.ProductsMS = msSince(pStart)
	if err != nil {
		anyFallback = true
	} else {
		b.products = productsResp
	}

	answer, citations := assemble(b)
	resp := &models.AssembledResponse{
		XContractVersion: models.ContractVersion,
		SessionID:        sessionID,
		RequestID:        requestID,
		AnswerText:       answer,
		Citations:        citations,
		Addon:            decideAddon(userQuery, b.vision, b.products),
	}
	guardrails.Apply(resp, userQuery)

	if turn.VoiceMode {
		tStart := time.Now()
		_, endTTS := o.tracer.Span(ctx, "tts_mcp_call", nil)
		quick, _ := turn.TripContext["voice_style"].(string)
		ttsResp, err := o.client.Synthesize(ctx, models.TTSRequest{
			Text:     spokenText(resp.AnswerText, quick == "quick"),
			Language: turn.Lang,
		})
		endTTS()
		timing.TTSMS = msSince(tStart)
		if err != nil {
			anyFallback = true
		} else {
			resp.AudioRef = ttsResp.AudioRef
		}
	}

	timing.TotalMS = msSince(start)
	o.logger.Log("turn", false, time.Since(start), sessionID, requestID, anyFallback)

	if err := o.registry.Validate(resp, contract.AgentResponse); err != nil {
		return nil, timing, err
	}
	return resp, timing, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
