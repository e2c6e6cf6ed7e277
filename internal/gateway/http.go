package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lastminutejob75/standardiste/internal/clock"
	"github.com/lastminutejob75/standardiste/internal/engine"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// maxBodyBytes bounds webhook payloads well above the engine's own message
// cap so oversized messages reach the too-long guard instead of a 413.
const maxBodyBytes = 64 << 10

// messageRequest is the JSON body accepted by POST /v1/messages and
// POST /v1/conversations.
type messageRequest struct {
	TenantID string `json:"tenant_id"`
	ConvID   string `json:"conv_id"`
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	CallerID string `json:"caller_id,omitempty"`
}

// messageResponse carries the engine events back to the channel adapter.
type messageResponse struct {
	ConvID string         `json:"conv_id"`
	Events []engine.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r *messageRequest) validate() error {
	var errs []error
	if strings.TrimSpace(r.TenantID) == "" {
		errs = append(errs, errors.New("tenant_id is required"))
	}
	switch session.Channel(r.Channel) {
	case session.ChannelVoice, session.ChannelText:
	case "":
		r.Channel = string(session.ChannelText)
	default:
		errs = append(errs, errors.New(`channel must be "voice" or "text"`))
	}
	return errors.Join(errs...)
}

func (r *messageRequest) toMessage(now clock.Clock) engine.Message {
	if r.ConvID == "" {
		r.ConvID = clock.NewConversationID()
	}
	return engine.Message{
		TenantID:   r.TenantID,
		ConvID:     r.ConvID,
		Channel:    session.Channel(r.Channel),
		Text:       r.Text,
		CallerID:   r.CallerID,
		ReceivedAt: now.Now(),
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*messageRequest, bool) {
	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return nil, false
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return &req, true
}

// handleOpen creates (or replays) a conversation and returns the greeting.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	events, err := s.engine.Greet(r.Context(), req.toMessage(clock.System{}))
	if err != nil {
		slog.Error("gateway: greet failed", "tenant_id", req.TenantID,
			"conv_id", req.ConvID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "conversation open failed"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{ConvID: req.ConvID, Events: events})
}

// handleMessage runs one user message through the engine. The engine never
// returns a bare error for conversational faults, so a non-nil error here is
// a transport-level problem only.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.ConvID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "conv_id is required"})
		return
	}
	events, err := s.engine.HandleMessage(r.Context(), req.toMessage(clock.System{}))
	if err != nil {
		slog.Error("gateway: handle failed", "tenant_id", req.TenantID,
			"conv_id", req.ConvID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "message handling failed"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{ConvID: req.ConvID, Events: events})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("gateway: response encode failed", "error", err)
	}
}
