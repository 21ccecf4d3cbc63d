package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prepmate/interview/internal/handlers"
)

func TestHealthRoutes(t *testing.T) {
	router := chi.NewRouter()
	handler := handlers.NewHealthHandler(nil, nil, nil)

	HealthRoutes(router, handler)

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz route not registered correctly, got status %d", rec.Code)
	}
}

func TestInterviewRoutesRegistersEndpoints(t *testing.T) {
	router := chi.NewRouter()
	logger := zap.NewNop()

	InterviewRoutes(router, handlers.NewInterviewHandler(nil, nil, logger))
	SessionRoutes(router, handlers.NewSessionHandler(nil, logger))
	ProfileRoutes(router, handlers.NewProfileHandler(nil, nil, logger))
	MetricsRoutes(router)

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}

	expected := []string{
		"POST /api/v1/interview/start",
		"POST /api/v1/interview/turn",
		"POST /api/v1/interview/{session_id}/summary",
		"POST /api/v1/interview/{session_id}/rollback",
		"GET /api/v1/sessions/",
		"GET /api/v1/sessions/{session_id}",
		"GET /api/v1/sessions/{session_id}/plan",
		"DELETE /api/v1/sessions/{session_id}",
		"GET /api/v1/profiles/sessions/{session_id}",
		"GET /api/v1/profiles/users/{user_id}",
		"POST /api/v1/profiles/users/{user_id}/generate",
		"GET /metrics",
	}

	for _, route := range expected {
		if !paths[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}
