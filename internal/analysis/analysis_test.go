package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
)

type mockProvider struct {
	completeFn func(ctx context.Context, channel llm.Channel, prompt string) (string, error)
}

func (m *mockProvider) Complete(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
	return m.completeFn(ctx, channel, prompt)
}

func (m *mockProvider) Chat(context.Context, llm.Channel, string, []llm.ChatMessage) (string, error) {
	return "", errors.New("not scripted")
}

func (m *mockProvider) ChatStream(context.Context, llm.Channel, string, []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not scripted")
}

func (m *mockProvider) GetProviderName() string { return "mock" }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	st, err := store.NewStore(db, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return st
}

func newPromptManager(t *testing.T) *prompts.PromptManager {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("failed to create prompt manager: %v", err)
	}
	return pm
}

const profileJSON = `{
	"professional_competence": {"score": 7.5, "evidence": "对 goroutine 调度有理解", "trend": "stable"},
	"execution_results": {"score": 6.0, "evidence": "项目落地经验尚可", "trend": "stable"},
	"logic_problem_solving": {"score": 7.0, "evidence": "", "trend": "stable"},
	"communication": {"score": 6.0, "evidence": "表达基本清晰", "trend": "stable"},
	"growth_potential": {"score": 6.5, "evidence": "", "trend": "stable"},
	"collaboration": {"score": 6.0, "evidence": "", "trend": "stable"},
	"skill_tags": ["Go", "并发"],
	"overall_assessment": "基础扎实",
	"key_strengths": ["并发模型理解到位"],
	"key_weaknesses": ["系统设计经验不足"],
	"recommendation": "maybe",
	"confidence": 0.8
}`

func TestBuildQAHistoryPairsMessages(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleAssistant, Content: "请介绍一下自己"},
		{Role: models.RoleUser, Content: "我是一名后端工程师"},
		{Role: models.RoleAssistant, Content: "讲讲 goroutine"},
		{Role: models.RoleUser, Content: "goroutine 是轻量级线程"},
		{Role: models.RoleAssistant, Content: "面试结束，再见"}, // no answer follows
	}
	pairs := BuildQAHistory(messages)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[1].Question != "讲讲 goroutine" || pairs[1].Answer != "goroutine 是轻量级线程" {
		t.Fatalf("unexpected pair: %+v", pairs[1])
	}

	formatted := FormatQAHistory(pairs)
	if !strings.Contains(formatted, "问题 2：讲讲 goroutine") {
		t.Fatalf("unexpected formatting: %s", formatted)
	}
}

func TestBuildQAHistorySkipsUnpairedUserMessage(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "你好"},
		{Role: models.RoleAssistant, Content: "请介绍一下自己"},
		{Role: models.RoleUser, Content: "好的"},
	}
	pairs := BuildQAHistory(messages)
	if len(pairs) != 1 || pairs[0].Answer != "好的" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestAnalyzerExtractsAndSavesProfile(t *testing.T) {
	st := newTestStore(t)
	var sawHistory bool
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			if strings.Contains(prompt, "讲讲 goroutine") {
				sawHistory = true
			}
			return "```json\n" + profileJSON + "\n```", nil
		},
	}
	a := NewAnalyzer(st, provider, newPromptManager(t), nil, zap.NewNop())

	if err := st.AppendMessage(&models.Message{SessionID: "s1", Role: models.RoleAssistant, Content: "讲讲 goroutine", QuestionIndex: 1}); err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}
	if err := st.AppendMessage(&models.Message{SessionID: "s1", Role: models.RoleUser, Content: "轻量级线程", QuestionIndex: 1}); err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}

	a.Start()
	a.EnqueueSession("s1", "u1")
	a.Stop()

	if !sawHistory {
		t.Fatal("qa history not included in the extraction prompt")
	}
	profile, err := st.GetProfile("s1")
	if err != nil {
		t.Fatalf("profile not saved: %v", err)
	}
	if profile.ProfessionalCompetence.Score != 7.5 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.TotalQuestionsAnalyzed != 1 {
		t.Fatalf("expected 1 analyzed question, got %d", profile.TotalQuestionsAnalyzed)
	}
}

func TestAnalyzerSkipsEmptyTranscript(t *testing.T) {
	st := newTestStore(t)
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			t.Fatal("provider should not be called for an empty transcript")
			return "", nil
		},
	}
	a := NewAnalyzer(st, provider, newPromptManager(t), nil, zap.NewNop())

	a.Start()
	a.EnqueueSession("empty", "u1")
	a.Stop()

	if _, err := st.GetProfile("empty"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no profile, got %v", err)
	}
}

func seedProfiles(t *testing.T, st *store.Store, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := models.EmptyProfile()
		p.ProfessionalCompetence.Score = float64(5 + i)
		p.KeyWeaknesses = []string{fmt.Sprintf("weakness-%d", i)}
		if err := st.SaveProfile(fmt.Sprintf("%s-s%d", userID, i), userID, &p); err != nil {
			t.Fatalf("failed to seed profile: %v", err)
		}
		time.Sleep(time.Millisecond) // distinct updated_at ordering
	}
}

func TestAbilityGeneratesWeightedAggregate(t *testing.T) {
	st := newTestStore(t)
	var prompt string
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, p string) (string, error) {
			if channel != llm.ChannelSmart {
				t.Fatalf("aggregation should use the smart channel, got %s", channel)
			}
			prompt = p
			return profileJSON, nil
		},
	}
	ability := NewAbilityService(st, provider, newPromptManager(t), time.Minute, 5, zap.NewNop())
	seedProfiles(t, st, "u1", 4)

	result, err := ability.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.Profile.Recommendation != models.RecommendMaybe {
		t.Fatalf("unexpected aggregate: %+v", result.Profile)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning with 4 records: %s", result.Warning)
	}
	// newest profile carries full weight
	if !strings.Contains(prompt, `"weight": 1`) {
		t.Fatalf("weights missing from prompt: %s", prompt)
	}

	stored, err := st.GetUserProfile("u1")
	if err != nil || stored.Recommendation != models.RecommendMaybe {
		t.Fatalf("aggregate not persisted: %v", err)
	}
}

func TestAbilityWarnsOnFewRecords(t *testing.T) {
	st := newTestStore(t)
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			return profileJSON, nil
		},
	}
	ability := NewAbilityService(st, provider, newPromptManager(t), time.Minute, 5, zap.NewNop())
	seedProfiles(t, st, "u1", 2)

	result, err := ability.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(result.Warning, "仅基于 2 次面试记录") {
		t.Fatalf("expected low-sample warning, got %q", result.Warning)
	}
}

func TestAbilityFallsBackToLatestOnFailure(t *testing.T) {
	st := newTestStore(t)
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	ability := NewAbilityService(st, provider, newPromptManager(t), time.Minute, 5, zap.NewNop())
	seedProfiles(t, st, "u1", 3)

	result, err := ability.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(result.Warning, "生成失败") {
		t.Fatalf("expected fallback warning, got %q", result.Warning)
	}
	// newest seeded profile has the highest score
	if result.Profile.ProfessionalCompetence.Score != 7 {
		t.Fatalf("expected latest profile as fallback, got %+v", result.Profile)
	}
}

func TestAbilityEmptyProfileWithoutRecords(t *testing.T) {
	st := newTestStore(t)
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			t.Fatal("provider should not be called without records")
			return "", nil
		},
	}
	ability := NewAbilityService(st, provider, newPromptManager(t), time.Minute, 5, zap.NewNop())

	result, err := ability.Generate(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.Profile.OverallAssessment != "暂无面试记录，请先完成一次模拟面试。" {
		t.Fatalf("expected empty profile, got %+v", result.Profile)
	}
}

func TestAbilityCooldown(t *testing.T) {
	st := newTestStore(t)
	provider := &mockProvider{
		completeFn: func(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
			return profileJSON, nil
		},
	}
	ability := NewAbilityService(st, provider, newPromptManager(t), time.Minute, 5, zap.NewNop())
	seedProfiles(t, st, "u1", 3)

	if _, err := ability.Generate(context.Background(), "u1"); err != nil {
		t.Fatalf("first Generate returned error: %v", err)
	}
	if _, err := ability.Generate(context.Background(), "u1"); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown, got %v", err)
	}
	// other users are unaffected
	seedProfiles(t, st, "u2", 3)
	if _, err := ability.Generate(context.Background(), "u2"); err != nil {
		t.Fatalf("Generate for another user returned error: %v", err)
	}
}

func TestWeightDecay(t *testing.T) {
	if weightFor(0) != 1.0 {
		t.Fatalf("newest weight = %v", weightFor(0))
	}
	if weightFor(4) != 1.0-4*0.15 {
		t.Fatalf("oldest weight = %v", weightFor(4))
	}
}
