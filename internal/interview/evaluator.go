package interview

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/utils"
)

var (
	clarifyKeywords = []string{"什么", "为什么", "怎么", "如何", "请问", "能否", "可以", "?", "？"}
	unknownKeywords = []string{"不知道", "不会", "没了解", "不清楚"}
)

// Evaluator classifies a candidate's reply against the current question.
// Classification runs on the fast channel; when the model output cannot be
// parsed it falls back to keyword matching so a turn never gets stuck.
type Evaluator struct {
	provider llm.Provider
	prompts  *prompts.PromptManager
	logger   *zap.Logger
}

func NewEvaluator(provider llm.Provider, pm *prompts.PromptManager, logger *zap.Logger) *Evaluator {
	return &Evaluator{provider: provider, prompts: pm, logger: logger}
}

func (e *Evaluator) Evaluate(ctx context.Context, question, answer string) Evaluation {
	prompt, err := e.prompts.Build("evaluator", "default", map[string]string{
		"Question": question,
		"Answer":   answer,
	})
	if err != nil {
		e.logger.Error("failed to build evaluator prompt", zap.Error(err))
		return fallbackEvaluation(answer)
	}

	raw, err := e.provider.Complete(ctx, llm.ChannelFast, prompt)
	if err != nil {
		e.logger.Warn("evaluator call failed, using keyword fallback", zap.Error(err))
		return fallbackEvaluation(answer)
	}

	var eval Evaluation
	payload := utils.FirstJSONBlock(utils.StripFences(raw))
	if err := json.Unmarshal([]byte(payload), &eval); err != nil || !validDecision(eval.Decision) {
		e.logger.Warn("unparseable evaluator output, using keyword fallback",
			zap.String("output", raw))
		return fallbackEvaluation(answer)
	}
	return eval
}

func validDecision(d string) bool {
	switch d {
	case models.DecisionAnswerPass, models.DecisionAnswerWeak,
		models.DecisionAskClarification, models.DecisionUnknown:
		return true
	}
	return false
}

// fallbackEvaluation applies cheap keyword heuristics when the model can't
// be consulted.
func fallbackEvaluation(answer string) Evaluation {
	text := strings.ToLower(answer)
	length := len([]rune(text))

	for _, kw := range clarifyKeywords {
		if strings.Contains(text, kw) && length < 50 {
			return Evaluation{Decision: models.DecisionAskClarification, Reason: "用户似乎在提问"}
		}
	}
	for _, kw := range unknownKeywords {
		if strings.Contains(text, kw) {
			return Evaluation{Decision: models.DecisionUnknown, Reason: "用户表示不了解"}
		}
	}
	if length < 20 {
		return Evaluation{Decision: models.DecisionAnswerWeak, Reason: "回答过于简短"}
	}
	return Evaluation{Decision: models.DecisionAnswerPass, Reason: "回答基本完整"}
}
