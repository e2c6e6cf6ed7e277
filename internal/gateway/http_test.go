package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	calmock "github.com/lastminutejob75/standardiste/internal/calendar/mock"
	"github.com/lastminutejob75/standardiste/internal/clock"
	"github.com/lastminutejob75/standardiste/internal/engine"
	faqmock "github.com/lastminutejob75/standardiste/internal/faq/mock"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/session"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cal := &calmock.Backend{
		FreeSlotsResult: []calendar.SlotOffer{
			{Start: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), Label: "mardi 3 mars à 9h00"},
		},
		BookResult: "evt-1",
	}
	eng := engine.New(engine.Deps{
		Store:    session.NewMemStore(0),
		Calendar: cal,
		FAQ:      &faqmock.Matcher{},
		Clock:    &clock.Fixed{T: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}, engine.Options{}, map[string]*prompt.Catalog{"cabinet": prompt.NewCatalog("Cabinet Dupont")})
	return New(eng, nil, nil).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) messageResponse {
	t.Helper()
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestOpenConversation(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/conversations",
		`{"tenant_id":"cabinet","conv_id":"conv-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	resp := decodeResponse(t, rec)
	if resp.ConvID != "conv-1" {
		t.Errorf("conv_id = %q", resp.ConvID)
	}
	if len(resp.Events) != 1 || !strings.Contains(resp.Events[0].Text, "Cabinet Dupont") {
		t.Errorf("events = %+v, want the tenant greeting", resp.Events)
	}
}

func TestOpenConversation_GeneratesConvID(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/conversations", `{"tenant_id":"cabinet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if resp := decodeResponse(t, rec); resp.ConvID == "" {
		t.Error("conv_id must be generated when absent")
	}
}

func TestHandleMessage(t *testing.T) {
	h := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/v1/conversations",
		`{"tenant_id":"cabinet","conv_id":"conv-1","channel":"voice"}`)

	rec := doJSON(t, h, http.MethodPost, "/v1/messages",
		`{"tenant_id":"cabinet","conv_id":"conv-1","channel":"voice","text":"oui"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	resp := decodeResponse(t, rec)
	if len(resp.Events) == 0 {
		t.Fatal("no events returned")
	}
	if got := resp.Events[0].NewState; got != fsm.QualifName {
		t.Errorf("new state = %s, want %s", got, fsm.QualifName)
	}
}

func TestHandleMessage_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantFrag string
	}{
		{"missing tenant", `{"conv_id":"c1","text":"oui"}`, "tenant_id is required"},
		{"missing conv", `{"tenant_id":"cabinet","text":"oui"}`, "conv_id is required"},
		{"bad channel", `{"tenant_id":"cabinet","conv_id":"c1","channel":"fax"}`, "channel"},
		{"unknown field", `{"tenant_id":"cabinet","conv_id":"c1","bogus":true}`, "invalid request body"},
		{"malformed json", `{"tenant_id":`, "invalid request body"},
	}
	h := newTestHandler(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/v1/messages", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.wantFrag) {
				t.Errorf("body = %s, want it to mention %q", rec.Body, tc.wantFrag)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/messages", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestChatSocket(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/v1/chat?tenant_id=cabinet&conv_id=chat-1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// The greeting is pushed right after the handshake.
	var frame wsOutbound
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if frame.ConvID != "chat-1" || len(frame.Events) != 1 {
		t.Fatalf("greeting frame = %+v", frame)
	}
	if !strings.Contains(frame.Events[0].Text, "Cabinet Dupont") {
		t.Errorf("greeting = %q", frame.Events[0].Text)
	}

	// A goodbye closes the conversation and then the socket.
	if err := wsjson.Write(ctx, conn, wsInbound{Text: "au revoir"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if last := frame.Events[len(frame.Events)-1]; !last.NewState.Terminal() {
		t.Errorf("state = %s, want terminal", last.NewState)
	}

	err = wsjson.Read(ctx, conn, &frame)
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("close status = %v, want normal closure", err)
	}
}

func TestChatSocket_RequiresTenant(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
