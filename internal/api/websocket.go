package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Krigsexe/Kage/internal/agent"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API binds to localhost; browser origin checks do not apply.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is a client-to-server message. Type is "message" for a new
// user turn or "confirm" for a pending dangerous tool decision.
type wsFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`
}

// wsEvent is a server-to-client message wrapping an engine step or a
// protocol error.
type wsEvent struct {
	Event string      `json:"event"`
	Step  *agent.Step `json:"step,omitempty"`
	Error string      `json:"error,omitempty"`
}

// handleWS upgrades the connection and runs a persistent session. One
// engine serves the whole connection, so conversation state carries
// across turns. Steps stream to the client as they are emitted; when
// the engine parks on waiting_confirmation the next "confirm" frame
// resumes it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	engine := s.newEngine()
	ctx := r.Context()

	// Gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	send := func(ev wsEvent) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	awaitingConfirm := false
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var steps <-chan agent.Step
		switch frame.Type {
		case "message":
			if awaitingConfirm {
				send(wsEvent{Event: "error", Error: "a tool call is awaiting confirmation"})
				continue
			}
			if frame.Content == "" {
				send(wsEvent{Event: "error", Error: "content is required"})
				continue
			}
			steps = engine.Run(ctx, frame.Content)
		case "confirm":
			if !awaitingConfirm {
				send(wsEvent{Event: "error", Error: "no tool call awaiting confirmation"})
				continue
			}
			awaitingConfirm = false
			steps = engine.Confirm(ctx, frame.Accepted)
		default:
			send(wsEvent{Event: "error", Error: "unknown frame type: " + frame.Type})
			continue
		}

		for step := range steps {
			if step.State == agent.StateWaitingConfirmation {
				awaitingConfirm = true
			}
			st := step
			if err := send(wsEvent{Event: "step", Step: &st}); err != nil {
				return
			}
		}
	}
}
