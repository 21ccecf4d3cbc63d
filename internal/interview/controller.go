package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/metrics"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/progress"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
)

// recentHistoryWindow caps how much transcript is replayed to the model.
const recentHistoryWindow = 10

// Event is one server-sent event emitted while processing a turn.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Sink receives events as they are produced.
type Sink func(Event)

// PlanBuilder produces the question list for a new session.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, session *models.Session) ([]models.Question, error)
}

// AnalysisTrigger schedules background profile analysis for a finished
// session.
type AnalysisTrigger interface {
	EnqueueSession(sessionID, userID string)
}

// Controller orchestrates one interview turn: evaluate the reply, move the
// state machine, and stream the interviewer's next message.
type Controller struct {
	store     *store.Store
	provider  llm.Provider
	prompts   *prompts.PromptManager
	estimator progress.Estimator
	planner   PlanBuilder
	evaluator *Evaluator
	analysis  AnalysisTrigger
	caps      Caps
	logger    *zap.Logger
}

func NewController(
	st *store.Store,
	provider llm.Provider,
	pm *prompts.PromptManager,
	estimator progress.Estimator,
	planner PlanBuilder,
	analysis AnalysisTrigger,
	caps Caps,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		store:     st,
		provider:  provider,
		prompts:   pm,
		estimator: estimator,
		planner:   planner,
		evaluator: NewEvaluator(provider, pm, logger),
		analysis:  analysis,
		caps:      caps,
		logger:    logger,
	}
}

// StartInterview creates the session, builds its plan and streams the
// opening question.
func (c *Controller) StartInterview(ctx context.Context, req *models.StartInterviewRequest, emit Sink) error {
	if _, err := c.store.GetSession(req.SessionID); err == nil {
		return &models.ErrorResponse{Code: "session_exists", Message: "session already exists"}
	} else if err != store.ErrNotFound {
		return err
	}

	session := &models.Session{
		SessionID:       req.SessionID,
		UserID:          req.UserID,
		Title:           req.Title,
		Mode:            req.Mode,
		ResumeContext:   req.ResumeContext,
		JobDescription:  req.JobDescription,
		CompanyInfo:     req.CompanyInfo,
		MaxQuestions:    req.MaxQuestions,
		RoundIndex:      req.RoundIndex,
		RoundType:       req.RoundType,
		ParentSessionID: req.ParentSession,
		Status:          models.StatusActive,
	}
	if err := c.store.CreateSession(session); err != nil {
		return err
	}

	plan, err := c.planner.BuildPlan(ctx, session)
	if err != nil {
		return err
	}

	state := models.NewTurnState()
	if err := c.store.SaveTurnState(session.SessionID, &state); err != nil {
		return err
	}

	c.emitState(emit, session, &state, len(plan))

	text, err := c.streamInterviewerTurn(ctx, session, plan, &state, Transition{}, "", emit)
	if err != nil {
		return err
	}
	if err := c.appendAssistant(session.SessionID, text, state.CurrentIndex+1); err != nil {
		return err
	}

	emit(Event{Type: "done"})
	return nil
}

// ProcessTurn handles one candidate reply end to end.
func (c *Controller) ProcessTurn(ctx context.Context, sessionID, message string, emit Sink) error {
	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.StatusActive {
		return &models.ErrorResponse{Code: "session_completed", Message: "interview already completed"}
	}

	plan, err := c.store.GetPlan(sessionID)
	if err != nil {
		return err
	}

	state, err := c.loadOrRebuildState(sessionID, plan)
	if err != nil {
		return err
	}

	if err := c.store.AppendMessage(&models.Message{
		SessionID:     sessionID,
		Role:          models.RoleUser,
		Content:       message,
		QuestionIndex: state.CurrentIndex + 1,
		Timestamp:     time.Now(),
	}); err != nil {
		return err
	}

	// Classify the reply against the question it answers.
	question := ""
	if state.CurrentIndex < len(plan) {
		question = plan[state.CurrentIndex].Content
	}
	eval := c.evaluator.Evaluate(ctx, question, message)
	metrics.ObserveTurn(eval.Decision)

	prevIndex := state.CurrentIndex
	next, tr := Apply(*state, eval, session.Mode, c.caps)

	if tr.Completed {
		session.QuestionCount++
	}
	if err := c.store.SaveTurnState(sessionID, &next); err != nil {
		return err
	}
	if err := c.store.UpdateSession(session); err != nil {
		return err
	}

	c.logger.Info("turn processed",
		zap.String("session_id", sessionID),
		zap.String("decision", eval.Decision),
		zap.String("status", next.Status),
		zap.Int("question_index", next.CurrentIndex))

	c.emitState(emit, session, &next, len(plan))

	if next.CurrentIndex >= len(plan) {
		return c.finishInterview(ctx, session, emit)
	}

	prevQuestion := ""
	if tr.Explain && prevIndex < len(plan) {
		prevQuestion = plan[prevIndex].Content
	}
	text, err := c.streamInterviewerTurn(ctx, session, plan, &next, tr, prevQuestion, emit)
	if err != nil {
		return err
	}
	if err := c.appendAssistant(sessionID, text, next.CurrentIndex+1); err != nil {
		return err
	}

	emit(Event{Type: "done"})
	return nil
}

// Summary streams the closing report on demand. A still-active session is
// closed the same way a finished turn closes it (status, analysis trigger
// included); re-requesting the report afterwards only regenerates the text,
// without appending another closing message.
func (c *Controller) Summary(ctx context.Context, sessionID string, emit Sink) error {
	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.StatusCompleted {
		return c.finishInterview(ctx, session, emit)
	}
	if _, err := c.generateSummary(ctx, session, emit); err != nil {
		return err
	}
	emit(Event{Type: "done"})
	return nil
}

// loadOrRebuildState fetches the stored turn state, reconstructing it from
// the transcript when missing (fresh rollback, legacy session).
func (c *Controller) loadOrRebuildState(sessionID string, plan []models.Question) (*models.TurnState, error) {
	state, err := c.store.GetTurnState(sessionID)
	if err == nil {
		return state, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	messages, err := c.store.GetMessages(sessionID)
	if err != nil {
		return nil, err
	}
	snap := c.estimator.Estimate(messages, plan, 0)
	rebuilt := models.TurnState{
		CurrentIndex:  snap.CurrentIndex,
		FollowUpCount: snap.FollowUpCount,
		Status:        models.TurnStartNew,
	}
	c.logger.Info("rebuilt turn state from transcript",
		zap.String("session_id", sessionID),
		zap.Int("current_index", rebuilt.CurrentIndex),
		zap.Int("follow_up_count", rebuilt.FollowUpCount))

	if err := c.store.SaveTurnState(sessionID, &rebuilt); err != nil {
		return nil, err
	}
	return &rebuilt, nil
}

func (c *Controller) finishInterview(ctx context.Context, session *models.Session, emit Sink) error {
	if _, err := c.streamSummary(ctx, session, emit); err != nil {
		return err
	}

	session.Status = models.StatusCompleted
	if err := c.store.UpdateSession(session); err != nil {
		return err
	}

	emit(Event{Type: "complete", Data: map[string]interface{}{
		"session_id":     session.SessionID,
		"question_count": session.QuestionCount,
	}})

	if c.analysis != nil {
		c.analysis.EnqueueSession(session.SessionID, session.UserID)
	}

	emit(Event{Type: "done"})
	return nil
}

func (c *Controller) streamSummary(ctx context.Context, session *models.Session, emit Sink) (string, error) {
	text, err := c.generateSummary(ctx, session, emit)
	if err != nil {
		return "", err
	}

	// indexed one past the plan so rollback accounting still holds
	if err := c.appendAssistant(session.SessionID, text, session.QuestionCount+1); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Controller) generateSummary(ctx context.Context, session *models.Session, emit Sink) (string, error) {
	system, err := c.prompts.Build("summary", session.Mode, nil)
	if err != nil {
		return "", err
	}

	messages, err := c.store.GetMessages(session.SessionID)
	if err != nil {
		return "", err
	}

	text, err := c.streamChat(ctx, system, toChatHistory(messages, len(messages)), emit)
	if err != nil {
		// never leave the candidate without a closing message
		c.logger.Error("summary generation failed", zap.Error(err))
		text = "面试结束，感谢你的参与。报告生成暂时失败，请稍后在会话详情中查看。"
		emit(Event{Type: "token", Data: text})
	}
	return text, nil
}

func (c *Controller) streamInterviewerTurn(
	ctx context.Context,
	session *models.Session,
	plan []models.Question,
	state *models.TurnState,
	tr Transition,
	prevQuestion string,
	emit Sink,
) (string, error) {
	variant := variantFor(state.Status, tr)
	system, err := c.prompts.Build("interviewer", variant, map[string]string{
		"Persona":      personaFor(session.Mode),
		"Question":     plan[state.CurrentIndex].Content,
		"PrevQuestion": prevQuestion,
		"Reason":       state.Reason,
	})
	if err != nil {
		return "", err
	}

	messages, err := c.store.GetMessages(session.SessionID)
	if err != nil {
		return "", err
	}

	return c.streamChat(ctx, system, toChatHistory(messages, recentHistoryWindow), emit)
}

// streamChat runs a streaming completion on the smart channel, forwarding
// each chunk as a token event and returning the assembled text.
func (c *Controller) streamChat(ctx context.Context, system string, history []llm.ChatMessage, emit Sink) (string, error) {
	start := time.Now()
	stream, err := c.provider.ChatStream(ctx, llm.ChannelSmart, system, history)
	if err != nil {
		metrics.ObserveLLMCall(string(llm.ChannelSmart), time.Since(start), err)
		return "", err
	}

	var builder strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			metrics.ObserveLLMCall(string(llm.ChannelSmart), time.Since(start), chunk.Err)
			return "", chunk.Err
		}
		builder.WriteString(chunk.Text)
		emit(Event{Type: "token", Data: chunk.Text})
	}
	metrics.ObserveLLMCall(string(llm.ChannelSmart), time.Since(start), nil)

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty interviewer response")
	}
	return text, nil
}

func (c *Controller) appendAssistant(sessionID, content string, questionIndex int) error {
	return c.store.AppendMessage(&models.Message{
		SessionID:     sessionID,
		Role:          models.RoleAssistant,
		Content:       content,
		QuestionIndex: questionIndex,
		Timestamp:     time.Now(),
	})
}

func (c *Controller) emitState(emit Sink, session *models.Session, state *models.TurnState, planLen int) {
	emit(Event{Type: "state_update", Data: map[string]interface{}{
		"current_index":   state.CurrentIndex,
		"follow_up_count": state.FollowUpCount,
		"clarify_count":   state.ClarifyCount,
		"status":          state.Status,
		"question_count":  session.QuestionCount,
	}})

	percent := 0
	if planLen > 0 {
		done := session.QuestionCount
		if done > planLen {
			done = planLen
		}
		percent = done * 100 / planLen
	}
	emit(Event{Type: "progress", Data: map[string]interface{}{
		"completed": session.QuestionCount,
		"total":     planLen,
		"percent":   percent,
	}})
}

func variantFor(status string, tr Transition) string {
	switch status {
	case models.TurnFollowUp:
		return "follow_up"
	case models.TurnClarify:
		return "clarify"
	case models.TurnStartNew:
		if tr.Explain {
			return "start_new_explain"
		}
		if tr.Skipped {
			return "start_new_skip"
		}
		return "start_new"
	}
	return "default"
}

func personaFor(mode string) string {
	if mode == models.ModeCoach {
		return "你是一位耐心的技术导师，正在进行技术辅导。"
	}
	return "你是一位专业、语气平和的技术面试官。"
}

// toChatHistory converts the transcript tail into provider chat messages.
func toChatHistory(messages []models.Message, window int) []llm.ChatMessage {
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	history := make([]llm.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return history
}
