package retrieval

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brunoleme/ai-travel-assistant/pkg/metrics"
)

// Endpoint is the router-facing view of one retrieval service.
type Endpoint interface {
	ServiceName() string
	OperationName() string
	MetricsSnapshot() metrics.Snapshot
	HandleRaw(c *gin.Context)
}

func (s *Service[Req, P]) ServiceName() string   { return s.Name }
func (s *Service[Req, P]) OperationName() string { return s.Operation }

func (s *Service[Req, P]) MetricsSnapshot() metrics.Snapshot { return s.Metrics.Snapshot() }

// HandleRaw adapts the template pipeline onto gin.
func (s *Service[Req, P]) HandleRaw(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "unreadable request body"})
		return
	}
	status, resp := s.Handle(c.Request.Context(), raw, c.GetHeader("X-Session-ID"), c.GetHeader("X-Request-ID"))
	c.JSON(status, resp)
}

// NewRouter mounts the standard surface for a set of endpoints:
// GET /health, GET /metrics, POST /mcp/<operation> per endpoint.
func NewRouter(endpoints ...Endpoint) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		out := make(map[string]metrics.Snapshot, len(endpoints))
		for _, e := range endpoints {
			out[e.ServiceName()] = e.MetricsSnapshot()
		}
		c.JSON(http.StatusOK, out)
	})
	for _, e := range endpoints {
		router.POST("/mcp/"+e.OperationName(), e.HandleRaw)
	}
	return router
}
