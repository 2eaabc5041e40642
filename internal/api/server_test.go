package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wtthornton/homeiq-core/internal/audit"
	"github.com/wtthornton/homeiq-core/internal/infrastructure/config"
	"github.com/wtthornton/homeiq-core/internal/infrastructure/logging"
	"github.com/wtthornton/homeiq-core/internal/validate"
)

const cleanDoc = `alias: Morning lights
description: Hallway motion lighting
initial_state: true
trigger:
  - platform: state
    entity_id: binary_sensor.hall_motion
    to: "on"
action:
  - service: light.turn_on
    target:
      entity_id: light.hallway
`

// memoryHistory is an in-memory audit.Repository for handler tests.
type memoryHistory struct {
	mu      sync.Mutex
	records []audit.Record
	nextID  int
	failErr error
}

func (m *memoryHistory) Create(_ context.Context, rec *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.nextID++
	rec.ID = "val-" + strings.Repeat("0", 7) + string(rune('0'+m.nextID))
	rec.CreatedAt = time.Now().UTC()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryHistory) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []audit.Record{}
	for _, rec := range m.records {
		if filter.DocumentHash != "" && rec.DocumentHash != filter.DocumentHash {
			continue
		}
		if filter.OnlyFailed && rec.Valid {
			continue
		}
		out = append(out, rec)
	}
	return &audit.ListResult{Records: out, Total: len(out), Limit: 50}, nil
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Host:            "127.0.0.1",
		Port:            0,
		MaxDocumentSize: 256 * 1024,
		Timeouts:        config.APITimeoutConfig{Read: 5, Write: 5, Idle: 30},
	}
}

// newTestServer builds a Server wired to an in-memory history store
// and returns it with its router.
func newTestServer(t *testing.T) (*Server, *memoryHistory, http.Handler) {
	t.Helper()

	history := &memoryHistory{}
	srv, err := New(Deps{
		Config:     testAPIConfig(),
		WS:         config.WebSocketConfig{MaxMessageSize: 65536, PingInterval: 30, PongTimeout: 10},
		Validation: config.ValidationConfig{DefaultMode: "moderate", NormalizeDefault: true},
		Logger:     logging.Default(),
		Pipeline:   validate.New(nil, nil),
		History:    history,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, history, srv.buildRouter()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Health and Middleware
// =============================================================================

func TestHealth(t *testing.T) {
	_, _, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, _, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	// Client-provided IDs are echoed back.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("X-Request-ID = %q, want req-abc", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, _, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/validate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}
}

// =============================================================================
// Validate Endpoint
// =============================================================================

func TestValidateCleanDocument(t *testing.T) {
	_, history, handler := newTestServer(t)

	rec := postJSON(t, handler, "/api/v1/validate", map[string]any{
		"document_text": cleanDoc,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Valid        bool    `json:"valid"`
		Score        float64 `json:"score"`
		Summary      string  `json:"summary"`
		DocumentHash string  `json:"document_hash"`
		HistoryID    string  `json:"history_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if !resp.Valid {
		t.Error("valid = false, want true")
	}
	if resp.Score != 100 {
		t.Errorf("score = %v, want 100", resp.Score)
	}
	if len(resp.DocumentHash) != 64 {
		t.Errorf("document_hash length = %d, want 64", len(resp.DocumentHash))
	}
	if resp.HistoryID == "" {
		t.Error("history_id is empty, want a generated ID")
	}

	history.mu.Lock()
	defer history.mu.Unlock()
	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	if history.records[0].DocumentHash != resp.DocumentHash {
		t.Error("stored record hash does not match response hash")
	}
}

func TestValidateInvalidDocument(t *testing.T) {
	_, _, handler := newTestServer(t)

	rec := postJSON(t, handler, "/api/v1/validate", map[string]any{
		"document_text": "alias: broken\naction:\n  - service: light.turn_on\n",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Valid {
		t.Error("valid = true for document with no triggers")
	}
	if len(resp.Errors) == 0 {
		t.Error("errors is empty, want at least one")
	}
}

func TestValidateNormalizeApplied(t *testing.T) {
	_, _, handler := newTestServer(t)

	doc := "alias: Plural keys\ndescription: d\ninitial_state: true\ntriggers:\n  - platform: state\n    entity_id: binary_sensor.hall_motion\nactions:\n  - service: light.turn_on\n"
	rec := postJSON(t, handler, "/api/v1/validate", map[string]any{
		"document_text": doc,
	})

	var resp struct {
		Valid        bool     `json:"valid"`
		FixedText    string   `json:"fixed_text"`
		FixesApplied []string `json:"fixes_applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !resp.Valid {
		t.Error("valid = false after normalization")
	}
	if len(resp.FixesApplied) != 2 {
		t.Errorf("fixes_applied = %v, want 2 fixes", resp.FixesApplied)
	}
	if !strings.Contains(resp.FixedText, "trigger:") {
		t.Error("fixed_text does not contain renamed trigger key")
	}
}

func TestValidateNormalizeDisabledPerRequest(t *testing.T) {
	_, _, handler := newTestServer(t)

	doc := "alias: Plural keys\ndescription: d\ninitial_state: true\ntriggers:\n  - platform: state\nactions:\n  - service: light.turn_on\n"
	rec := postJSON(t, handler, "/api/v1/validate", map[string]any{
		"document_text": doc,
		"normalize":     false,
	})

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// Plural keys are structural errors when normalization is off.
	if resp.Valid {
		t.Error("valid = true, want false with normalization disabled")
	}
}

func TestValidateBadRequests(t *testing.T) {
	_, _, handler := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed JSON", "{not json", http.StatusBadRequest},
		{"missing document_text", "{}", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestValidateHistoryFailureStillResponds(t *testing.T) {
	srv, history, _ := newTestServer(t)
	history.failErr = context.DeadlineExceeded
	handler := srv.buildRouter()

	rec := postJSON(t, handler, "/api/v1/validate", map[string]any{
		"document_text": cleanDoc,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite history failure", rec.Code)
	}

	var resp struct {
		HistoryID string `json:"history_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.HistoryID != "" {
		t.Errorf("history_id = %q, want empty when the store fails", resp.HistoryID)
	}
}

// =============================================================================
// Normalize Endpoint
// =============================================================================

func TestNormalizeEndpoint(t *testing.T) {
	_, _, handler := newTestServer(t)

	rec := postJSON(t, handler, "/api/v1/normalize", map[string]any{
		"document_text": "alias: a\ntriggers:\n  - platform: state\n",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		NormalizedText string   `json:"normalized_text"`
		FixesApplied   []string `json:"fixes_applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.FixesApplied) != 1 {
		t.Fatalf("fixes_applied = %v, want 1 fix", resp.FixesApplied)
	}
	if !strings.Contains(resp.NormalizedText, "trigger:") {
		t.Error("normalized_text missing renamed key")
	}
}

func TestNormalizeUnparseableReturnsVerbatim(t *testing.T) {
	_, _, handler := newTestServer(t)

	doc := "alias: [unclosed\n"
	rec := postJSON(t, handler, "/api/v1/normalize", map[string]any{
		"document_text": doc,
	})

	var resp struct {
		NormalizedText string   `json:"normalized_text"`
		FixesApplied   []string `json:"fixes_applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.NormalizedText != doc {
		t.Errorf("normalized_text = %q, want verbatim input", resp.NormalizedText)
	}
	if len(resp.FixesApplied) != 0 {
		t.Errorf("fixes_applied = %v, want none", resp.FixesApplied)
	}
}

// =============================================================================
// Render Endpoint
// =============================================================================

func TestRenderEndpoint(t *testing.T) {
	_, _, handler := newTestServer(t)

	spec := map[string]any{
		"alias": "Evening lamp",
		"trigger": []map[string]any{
			{"platform": "state", "entity_id": []string{"binary_sensor.dusk"}, "to": "on"},
		},
		"action": []map[string]any{
			{"service": "light.turn_on", "target": map[string]any{"entity_id": []string{"light.lamp"}}},
		},
	}

	rec := postJSON(t, handler, "/api/v1/render", spec)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RenderedText string `json:"rendered_text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(resp.RenderedText, "alias: Evening lamp") {
		t.Errorf("rendered_text = %q, missing alias line", resp.RenderedText)
	}
	if !strings.HasPrefix(resp.RenderedText, "alias:") {
		t.Errorf("rendered_text = %q, want alias first", resp.RenderedText)
	}
}

func TestRenderInvalidSpec(t *testing.T) {
	_, _, handler := newTestServer(t)

	// No alias, no triggers, no actions.
	rec := postJSON(t, handler, "/api/v1/render", map[string]any{})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp Error
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != ErrCodeUnrenderable {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeUnrenderable)
	}
}

// =============================================================================
// History Endpoint
// =============================================================================

func TestHistoryEndpoint(t *testing.T) {
	_, history, handler := newTestServer(t)

	history.records = []audit.Record{
		{ID: "val-1", DocumentHash: "aaa", Valid: true, Score: 100},
		{ID: "val-2", DocumentHash: "bbb", Valid: false, Score: 55},
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp audit.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Errorf("records = %d, want 2", len(resp.Records))
	}

	// failed=true filters out passing runs.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?failed=true", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "val-2" {
		t.Errorf("failed filter records = %+v, want only val-2", resp.Records)
	}
}

func TestHistoryBadPagination(t *testing.T) {
	_, _, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	srv, err := New(Deps{
		Config:   testAPIConfig(),
		Logger:   logging.Default(),
		Pipeline: validate.New(nil, nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	handler := srv.buildRouter()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when history is disabled", rec.Code)
	}
}

// =============================================================================
// Dependency Validation
// =============================================================================

func TestNewMissingDeps(t *testing.T) {
	if _, err := New(Deps{Pipeline: validate.New(nil, nil)}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without pipeline should fail")
	}
}

// =============================================================================
// WebSocket
// =============================================================================

func TestWebSocketBroadcast(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Subscribe to validation events.
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{"validation.completed"}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var ack WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("ReadJSON(ack) error = %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want response", ack.Type)
	}

	srv.hub.Broadcast("validation.completed", map[string]any{"valid": true, "score": 100})

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON(event) error = %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != "validation.completed" {
		t.Errorf("event = %+v, want validation.completed event", event)
	}
}

func TestWebSocketUnsubscribedClientReceivesNothing(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// No subscription: the broadcast must not reach this client.
	srv.hub.Broadcast("validation.completed", map[string]any{"valid": true})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("received %+v, want read timeout", msg)
	}
}
