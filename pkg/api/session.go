package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// writeTimeout bounds a single WebSocket send so one stalled client cannot
// pin a turn goroutine.
const writeTimeout = 10 * time.Second

// sessionManager tracks live session connections. Each connection is owned
// by its read loop; the map exists for counting and shutdown.
type sessionManager struct {
	turns  TurnHandler
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*sessionConn
}

type sessionConn struct {
	sessionID string
	ws        *websocket.Conn
	ctx       context.Context
	cancel    context.CancelFunc
}

func newSessionManager(turns TurnHandler, logger *slog.Logger) *sessionManager {
	return &sessionManager{
		turns:  turns,
		logger: logger,
		conns:  make(map[string]*sessionConn),
	}
}

// handleSession upgrades the request and runs the connection until the
// client goes away. One connection carries one session: every turn sent on
// it shares the session ID issued at accept time unless the client pins
// its own.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	s.sessions.run(r.Context(), ws)
}

// activeSessions returns the live connection count.
func (m *sessionManager) activeSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *sessionManager) run(parentCtx context.Context, ws *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	conn := &sessionConn{
		sessionID: uuid.NewString(),
		ws:        ws,
		ctx:       ctx,
		cancel:    cancel,
	}

	m.register(conn)
	defer m.unregister(conn)

	m.sendJSON(conn, map[string]string{
		"type":       "session.established",
		"session_id": conn.sessionID,
	})

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}

		var turn models.TurnRequest
		if err := json.Unmarshal(data, &turn); err != nil {
			m.sendJSON(conn, map[string]string{
				"type":    "error",
				"message": "invalid turn payload",
			})
			continue
		}
		m.handleTurn(conn, turn)
	}
}

// handleTurn runs one turn and writes the assembled response. Turn errors
// are reported on the channel as error frames; they never close the
// connection.
func (m *sessionManager) handleTurn(conn *sessionConn, turn models.TurnRequest) {
	if turn.SessionID == "" {
		turn.SessionID = conn.sessionID
	}
	if turn.RequestID == "" {
		turn.RequestID = uuid.NewString()
	}

	resp, timing, err := m.turns.HandleTurn(conn.ctx, turn)
	if err != nil {
		m.logger.Error("Turn failed", "session_id", turn.SessionID,
			"request_id", turn.RequestID, "error", err)
		m.sendJSON(conn, map[string]string{
			"type":       "error",
			"request_id": turn.RequestID,
			"message":    "turn could not be processed",
		})
		return
	}

	m.sendJSON(conn, map[string]any{
		"type":     "turn.response",
		"response": resp,
		"timing":   timing,
	})
}

func (m *sessionManager) register(c *sessionConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.sessionID] = c
}

func (m *sessionManager) unregister(c *sessionConn) {
	m.mu.Lock()
	delete(m.conns, c.sessionID)
	m.mu.Unlock()

	c.cancel()
	_ = c.ws.Close(websocket.StatusNormalClosure, "")
}

func (m *sessionManager) sendJSON(c *sessionConn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("Failed to marshal session message", "session_id", c.sessionID, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		m.logger.Warn("Failed to send session message", "session_id", c.sessionID, "error", err)
	}
}
