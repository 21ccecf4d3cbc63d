package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"prepmate/interview/internal/analysis"
	"prepmate/interview/internal/interview"
	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/middleware"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/progress"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
)

type mockProvider struct {
	completeFn   func(ctx context.Context, channel llm.Channel, prompt string) (string, error)
	chatStreamFn func(ctx context.Context, channel llm.Channel, system string, history []llm.ChatMessage) (<-chan llm.StreamChunk, error)
}

func (m *mockProvider) Complete(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
	if m.completeFn == nil {
		return `{"decision": "ANSWER_PASS", "reason": "ok"}`, nil
	}
	return m.completeFn(ctx, channel, prompt)
}

func (m *mockProvider) Chat(context.Context, llm.Channel, string, []llm.ChatMessage) (string, error) {
	return "", errors.New("not scripted")
}

func (m *mockProvider) ChatStream(ctx context.Context, channel llm.Channel, system string, history []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
	if m.chatStreamFn == nil {
		return streamOf("面试官", "的回复")(ctx, channel, system, history)
	}
	return m.chatStreamFn(ctx, channel, system, history)
}

func (m *mockProvider) GetProviderName() string { return "mock" }

func streamOf(chunks ...string) func(context.Context, llm.Channel, string, []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
	return func(context.Context, llm.Channel, string, []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
		out := make(chan llm.StreamChunk, len(chunks))
		for _, c := range chunks {
			out <- llm.StreamChunk{Text: c}
		}
		close(out)
		return out, nil
	}
}

type stubPlanner struct {
	questions []models.Question
	store     *store.Store
}

func (p *stubPlanner) BuildPlan(ctx context.Context, session *models.Session) ([]models.Question, error) {
	if err := p.store.SavePlan(session.SessionID, p.questions); err != nil {
		return nil, err
	}
	return p.questions, nil
}

type noopTrigger struct{}

func (noopTrigger) EnqueueSession(string, string) {}

type fixture struct {
	router *chi.Mux
	store  *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	st, err := store.NewStore(db, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("failed to create prompt manager: %v", err)
	}

	provider := &mockProvider{}
	controller := interview.NewController(
		st, provider, pm,
		progress.NewHeuristic(progress.DefaultConfig()),
		&stubPlanner{questions: models.DefaultQuestions(3), store: st},
		noopTrigger{},
		interview.Caps{MaxFollowUps: 2, MaxClarifies: 2},
		zap.NewNop(),
	)
	ability := analysis.NewAbilityService(st, provider, pm, time.Minute, 5, zap.NewNop())

	logger := zap.NewNop()
	router := chi.NewRouter()
	interviewHandler := NewInterviewHandler(controller, st, logger)
	sessionHandler := NewSessionHandler(st, logger)
	profileHandler := NewProfileHandler(st, ability, logger)
	healthHandler := NewHealthHandler(provider, pm, st)

	router.Route("/api/v1/interview", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/start", interviewHandler.StartHandler)
		r.With(middleware.ValidateRequest[*models.TurnRequest]()).Post("/turn", interviewHandler.TurnHandler)
		r.Post("/{session_id}/summary", interviewHandler.SummaryHandler)
		r.With(middleware.ValidateRequest[*models.RollbackRequest]()).Post("/{session_id}/rollback", interviewHandler.RollbackHandler)
	})
	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", sessionHandler.ListHandler)
		r.Get("/{session_id}", sessionHandler.GetHandler)
		r.Get("/{session_id}/plan", sessionHandler.PlanHandler)
		r.Delete("/{session_id}", sessionHandler.DeleteHandler)
	})
	router.Route("/api/v1/profiles", func(r chi.Router) {
		r.Get("/sessions/{session_id}", profileHandler.SessionProfileHandler)
		r.Get("/users/{user_id}", profileHandler.UserProfileHandler)
		r.Post("/users/{user_id}/generate", profileHandler.GenerateProfileHandler)
	})
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)

	return &fixture{router: router, store: st}
}
