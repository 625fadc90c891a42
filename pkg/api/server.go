// Package api is the edge surface of the agent: the WebSocket session
// channel, feedback submission, and health.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/feedback"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// TurnHandler processes one user turn. Implemented by orchestrator.Orchestrator.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn models.TurnRequest) (*models.AssembledResponse, *models.Timing, error)
}

// Server wires the edge routes.
type Server struct {
	turns    TurnHandler
	feedback *feedback.Store
	registry *contract.Registry
	logger   *slog.Logger
	sessions *sessionManager
}

// NewServer builds the edge server. logger may be nil.
func NewServer(turns TurnHandler, fb *feedback.Store, registry *contract.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		turns:    turns,
		feedback: fb,
		registry: registry,
		logger:   logger,
		sessions: newSessionManager(turns, logger),
	}
}

// Router returns the edge handler. The session route is registered on a
// plain mux beside the gin engine: the WebSocket handshake must hijack
// the underlying connection, and gin's wrapped writer refuses the hijack
// once the 101 status has gone through it.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/feedback", s.handleFeedback)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/session", s.handleSession)
	mux.Handle("/", r)
	return mux
}

// handleFeedback validates the submitted event against the feedback
// contract before persisting. Structural violations are the caller's
// fault: 422, not 500.
func (s *Server) handleFeedback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := s.registry.Validate(raw, contract.FeedbackEvent); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var event feedback.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := s.feedback.Append(event); err != nil {
		s.logger.Error("Failed to persist feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feedback not recorded"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}
