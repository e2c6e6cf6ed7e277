package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lastminutejob75/standardiste/internal/clock"
	"github.com/lastminutejob75/standardiste/internal/engine"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// wsIdleTimeout closes chat sockets that stay silent long past the session
// TTL; the session itself expires independently server-side.
const wsIdleTimeout = 30 * time.Minute

// wsInbound is one client frame on the chat socket.
type wsInbound struct {
	Text string `json:"text"`
}

// wsOutbound is one server frame: the events produced by a single turn.
type wsOutbound struct {
	ConvID string         `json:"conv_id"`
	Events []engine.Event `json:"events"`
}

// handleChat serves the web-chat websocket. Query parameters: tenant_id
// (required), conv_id (optional, generated when absent). The greeting is
// pushed immediately after the handshake; each subsequent client frame is one
// user turn. The server closes the socket once the conversation reaches a
// terminal state.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id query parameter is required", http.StatusBadRequest)
		return
	}
	convID := r.URL.Query().Get("conv_id")
	if convID == "" {
		convID = clock.NewConversationID()
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("gateway: websocket accept failed", "tenant_id", tenantID, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	log := slog.With("tenant_id", tenantID, "conv_id", convID)

	msg := engine.Message{
		TenantID: tenantID,
		ConvID:   convID,
		Channel:  session.ChannelText,
	}

	greeting, err := s.engine.Greet(ctx, msg)
	if err != nil {
		log.Error("gateway: chat greet failed", "error", err)
		conn.Close(websocket.StatusInternalError, "conversation open failed")
		return
	}
	if err := wsjson.Write(ctx, conn, wsOutbound{ConvID: convID, Events: greeting}); err != nil {
		return
	}

	for {
		readCtx, cancel := context.WithTimeout(ctx, wsIdleTimeout)
		var in wsInbound
		err := wsjson.Read(readCtx, conn, &in)
		cancel()
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			log.Debug("gateway: chat read ended", "error", err)
			return
		}

		msg.Text = in.Text
		msg.ReceivedAt = time.Now().UTC()
		events, err := s.engine.HandleMessage(ctx, msg)
		if err != nil {
			log.Error("gateway: chat handle failed", "error", err)
			conn.Close(websocket.StatusInternalError, "message handling failed")
			return
		}
		if err := wsjson.Write(ctx, conn, wsOutbound{ConvID: convID, Events: events}); err != nil {
			return
		}

		if last := events[len(events)-1]; last.NewState.Terminal() {
			conn.Close(websocket.StatusNormalClosure, "conversation closed")
			return
		}
	}
}
