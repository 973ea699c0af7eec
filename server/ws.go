package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/zhubert/plural-panel/panel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.HasPrefix(origin, "vscode-webview://") ||
			strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "http://127.0.0.1")
	},
}

// clientCommand is one inbound websocket message from the webview.
type clientCommand struct {
	Type      string `json:"type"`
	Prompt    string `json:"prompt,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Index     int    `json:"index,omitempty"`
}

// wsConn serializes writes to one websocket connection. Both the event pump
// and command error responses write through it.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeError(msg string) {
	c.writeJSON(map[string]any{"type": "error", "data": map[string]string{"message": msg}})
}

// handleWS upgrades the connection and binds a fresh panel to it. The panel's
// event feed is pumped to the client; inbound messages carry chat commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	p := panel.New(s.store, s.factory, s.log)
	ws := &wsConn{conn: conn}
	log := s.log.With("panelID", p.ID)
	log.Info("webview connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		p.Close()
		conn.Close()
		log.Info("webview disconnected")
	}()

	// Event pump: everything the processor emits goes straight to the client.
	go func() {
		for msg := range p.Out() {
			if err := ws.writeJSON(msg); err != nil {
				log.Debug("event write failed", "error", err)
				cancel()
				return
			}
		}
	}()

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}
		s.dispatchCommand(ctx, ws, p, cmd, log)
	}
}

func (s *Server) dispatchCommand(ctx context.Context, ws *wsConn, p *panel.Panel, cmd clientCommand, log *slog.Logger) {
	switch cmd.Type {
	case "chat":
		if strings.TrimSpace(cmd.Prompt) == "" {
			ws.writeError("empty prompt")
			return
		}
		// Turns run async so interrupts can arrive mid-stream
		go func() {
			if err := p.SendPrompt(ctx, cmd.Prompt); err != nil {
				ws.writeError(err.Error())
			}
		}()

	case "interrupt":
		if err := p.Interrupt(); err != nil {
			ws.writeError(err.Error())
		}

	case "newSession":
		if err := p.NewSession(); err != nil {
			ws.writeError(err.Error())
		}

	case "loadConversation":
		if err := p.LoadConversation(cmd.SessionID); err != nil {
			ws.writeError(err.Error())
		}

	case "replay":
		// The webview asks for this after reloading so it can rebuild the
		// timeline from the logged events.
		for _, msg := range p.ReplaySnapshot() {
			if err := ws.writeJSON(msg); err != nil {
				log.Debug("replay write failed", "error", err)
				return
			}
		}

	case "truncate":
		if err := p.TruncateAfter(cmd.Index); err != nil {
			ws.writeError(err.Error())
		}

	default:
		log.Warn("unknown client command", "type", cmd.Type)
		ws.writeError("unknown command: " + cmd.Type)
	}
}
