package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prepmate/interview/internal/interview"
	"prepmate/interview/internal/models"
)

// decodeSSE parses the `data:` lines of an event stream body.
func decodeSSE(t *testing.T, body string) []interview.Event {
	t.Helper()
	var events []interview.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev interview.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("unparseable event line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func hasEventType(events []interview.Event, typ string) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func TestStartEndpointStreamsOpeningTurn(t *testing.T) {
	f := newFixture(t)

	body := `{"session_id": "s1", "user_id": "u1", "mode": "mock", "max_questions": 3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %s", ct)
	}

	events := decodeSSE(t, rec.Body.String())
	for _, typ := range []string{"state_update", "progress", "token", "done"} {
		if !hasEventType(events, typ) {
			t.Fatalf("missing %s event, got %v", typ, events)
		}
	}

	session, err := f.store.GetSession("s1")
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if session.Status != models.StatusActive {
		t.Fatalf("unexpected status %s", session.Status)
	}
}

func TestStartEndpointRejectsMissingSessionID(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(`{"mode": "mock"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable error body: %v", err)
	}
	if resp.Code != "missing_session_id" {
		t.Fatalf("unexpected error code %s", resp.Code)
	}
}

func TestStartEndpointRejectsDuplicateSession(t *testing.T) {
	f := newFixture(t)

	body := `{"session_id": "s1"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(body))
	f.router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, second)

	events := decodeSSE(t, rec.Body.String())
	if len(events) == 0 || events[len(events)-1].Type != "error" {
		t.Fatalf("expected terminal error event, got %v", events)
	}
}

func TestTurnEndpointAdvancesInterview(t *testing.T) {
	f := newFixture(t)

	start := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(`{"session_id": "s1", "max_questions": 3}`))
	f.router.ServeHTTP(httptest.NewRecorder(), start)

	turn := httptest.NewRequest(http.MethodPost, "/api/v1/interview/turn",
		strings.NewReader(`{"session_id": "s1", "message": "我有五年后端开发经验，主要写 Go 服务。"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, turn)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	events := decodeSSE(t, rec.Body.String())
	if !hasEventType(events, "done") {
		t.Fatalf("turn did not complete: %v", events)
	}

	session, err := f.store.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if session.QuestionCount != 1 {
		t.Fatalf("expected question count 1, got %d", session.QuestionCount)
	}
}

func TestTurnEndpointUnknownSession(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/turn",
		strings.NewReader(`{"session_id": "ghost", "message": "你好"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	events := decodeSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].Type != "error" {
		t.Fatalf("expected single error event, got %v", events)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	f := newFixture(t)

	start := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(`{"session_id": "s1", "max_questions": 3}`))
	f.router.ServeHTTP(httptest.NewRecorder(), start)
	turn := httptest.NewRequest(http.MethodPost, "/api/v1/interview/turn",
		strings.NewReader(`{"session_id": "s1", "message": "我有五年后端开发经验。"}`))
	f.router.ServeHTTP(httptest.NewRecorder(), turn)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/s1/rollback", strings.NewReader(`{"index": 1}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.RollbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.MessageCount != 1 {
		t.Fatalf("expected 1 kept message, got %d", resp.MessageCount)
	}
	if resp.QuestionCount != 0 {
		t.Fatalf("expected question count 0 after rollback, got %d", resp.QuestionCount)
	}
}

func TestRollbackEndpointUnknownSession(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/ghost/rollback", strings.NewReader(`{"index": 0}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSummaryEndpointStreams(t *testing.T) {
	f := newFixture(t)

	start := httptest.NewRequest(http.MethodPost, "/api/v1/interview/start", strings.NewReader(`{"session_id": "s1", "max_questions": 3}`))
	f.router.ServeHTTP(httptest.NewRecorder(), start)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/s1/summary", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	events := decodeSSE(t, rec.Body.String())
	if !hasEventType(events, "token") || !hasEventType(events, "done") {
		t.Fatalf("summary stream incomplete: %v", events)
	}
}
