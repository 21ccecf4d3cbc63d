package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
	"prepmate/interview/internal/utils"
)

const (
	resumePromptLimit = 500
	jdPromptLimit     = 500
	hintTimeout       = 90 * time.Second
)

// Planner builds the question list for a new session. Plan generation runs
// on the smart channel; hint generation is fired off on the fast channel
// and patched into the stored plan when it lands.
type Planner struct {
	provider llm.Provider
	prompts  *prompts.PromptManager
	store    *store.Store
	logger   *zap.Logger

	hintWG sync.WaitGroup
}

func NewPlanner(provider llm.Provider, pm *prompts.PromptManager, st *store.Store, logger *zap.Logger) *Planner {
	return &Planner{provider: provider, prompts: pm, store: st, logger: logger}
}

// BuildPlan generates, normalizes and persists the interview plan. The
// returned list always has exactly session.MaxQuestions entries: model
// overproduction is truncated, underproduction is padded from the default
// question bank. A failed generation falls back to defaults entirely, and a
// failed save is logged without blocking the turn.
func (p *Planner) BuildPlan(ctx context.Context, session *models.Session) ([]models.Question, error) {
	prompt, err := p.buildPrompt(session)
	if err != nil {
		return nil, err
	}

	questions := p.generate(ctx, prompt)
	if len(questions) == 0 {
		p.logger.Warn("plan generation failed, using default questions",
			zap.String("session_id", session.SessionID))
		questions = models.DefaultQuestions(session.MaxQuestions)
	}
	questions = normalize(questions, session.MaxQuestions)

	if err := p.store.SavePlan(session.SessionID, questions); err != nil {
		// The current turn can still run off the in-memory plan. Hints are
		// skipped: patching them would retry the same failing write.
		p.logger.Error("failed to persist plan, continuing with in-memory copy",
			zap.String("session_id", session.SessionID), zap.Error(err))
		return questions, nil
	}

	// the goroutine gets its own copy so callers can use the plan freely
	hintCopy := make([]models.Question, len(questions))
	copy(hintCopy, questions)
	p.hintWG.Add(1)
	go p.generateHints(session.SessionID, hintCopy)

	return questions, nil
}

// Wait blocks until in-flight hint generation finishes. Used on shutdown.
func (p *Planner) Wait() {
	p.hintWG.Wait()
}

func (p *Planner) buildPrompt(session *models.Session) (string, error) {
	variant := session.RoundType
	if variant == "" {
		variant = "default"
	}
	companyInfo := session.CompanyInfo
	if companyInfo == "" {
		companyInfo = "未知"
	}

	prompt, err := p.prompts.Build("planner", variant, map[string]string{
		"ResumeContext":  truncateRunes(session.ResumeContext, resumePromptLimit),
		"JobDescription": truncateRunes(session.JobDescription, jdPromptLimit),
		"CompanyInfo":    companyInfo,
		"MaxQuestions":   strconv.Itoa(session.MaxQuestions),
	})
	if err != nil {
		return "", err
	}

	// Later rounds see what the previous round already covered.
	if session.RoundIndex > 1 && session.ParentSessionID != "" {
		prompt += p.previousRoundContext(session.ParentSessionID)
	}
	return prompt, nil
}

// previousRoundContext summarizes the parent session so follow-up rounds
// avoid repeats and target known weaknesses.
func (p *Planner) previousRoundContext(parentSessionID string) string {
	var sb strings.Builder

	if parentPlan, err := p.store.GetPlan(parentSessionID); err == nil && len(parentPlan) > 0 {
		sb.WriteString("\n【上一轮已问问题】（请勿重复出题）：\n")
		for _, q := range parentPlan {
			fmt.Fprintf(&sb, "- [%s] %s\n", q.Topic, q.Content)
		}
	}
	if profile, err := p.store.GetProfile(parentSessionID); err == nil {
		if len(profile.KeyWeaknesses) > 0 {
			sb.WriteString("【上一轮暴露的薄弱点】（本轮可针对性考察）：\n")
			for _, w := range profile.KeyWeaknesses {
				fmt.Fprintf(&sb, "- %s\n", w)
			}
		}
	}
	return sb.String()
}

func (p *Planner) generate(ctx context.Context, prompt string) []models.Question {
	raw, err := p.provider.Complete(ctx, llm.ChannelSmart, prompt)
	if err != nil {
		p.logger.Warn("planner call failed", zap.Error(err))
		return nil
	}
	questions, err := parsePlan(raw)
	if err != nil {
		p.logger.Warn("unparseable plan output", zap.Error(err), zap.String("output", truncateRunes(raw, 200)))
		return nil
	}
	return questions
}

// parsePlan accepts either {"questions": [...]} or a bare JSON array, with
// or without a markdown fence.
func parsePlan(raw string) ([]models.Question, error) {
	payload := utils.FirstJSONBlock(utils.StripFences(raw))

	var wrapper struct {
		Questions []models.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err == nil && len(wrapper.Questions) > 0 {
		return wrapper.Questions, nil
	}

	var bare []models.Question
	if err := json.Unmarshal([]byte(payload), &bare); err != nil {
		return nil, fmt.Errorf("plan is neither an object nor an array: %w", err)
	}
	return bare, nil
}

// normalize forces the plan to exactly max entries with complete fields.
func normalize(questions []models.Question, max int) []models.Question {
	out := make([]models.Question, 0, max)
	for _, q := range questions {
		if strings.TrimSpace(q.Content) == "" {
			continue
		}
		if q.Topic == "" {
			q.Topic = "未知主题"
		}
		if !models.ValidQuestionType(q.Type) {
			q.Type = models.QuestionTech
		}
		out = append(out, q)
		if len(out) == max {
			break
		}
	}

	// pad underproduced plans from the default bank
	if len(out) < max {
		for _, q := range models.DefaultQuestions(max)[len(out):] {
			out = append(out, q)
		}
	}

	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

// generateHints fills in answer hints question by question, then re-saves
// the plan. Failures are logged and skipped; the interview never waits on
// hints.
func (p *Planner) generateHints(sessionID string, questions []models.Question) {
	defer p.hintWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), hintTimeout)
	defer cancel()

	updated := false
	for i := range questions {
		prompt, err := p.prompts.Build("hints", "default", map[string]string{
			"Topic":   questions[i].Topic,
			"Content": questions[i].Content,
		})
		if err != nil {
			p.logger.Error("failed to build hint prompt", zap.Error(err))
			return
		}

		hint, err := p.provider.Complete(ctx, llm.ChannelFast, prompt)
		if err != nil {
			p.logger.Warn("hint generation failed",
				zap.String("session_id", sessionID),
				zap.Int("question_id", questions[i].ID),
				zap.Error(err))
			continue
		}
		questions[i].Hint = strings.TrimSpace(hint)
		updated = true
	}

	if !updated {
		return
	}
	if err := p.store.SavePlan(sessionID, questions); err != nil {
		p.logger.Error("failed to save plan with hints",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
