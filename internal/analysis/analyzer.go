package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/metrics"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
	"prepmate/interview/internal/utils"
)

const (
	jobQueueSize = 64
	jobTimeout   = 2 * time.Minute
)

type job struct {
	sessionID string
	userID    string
}

// Analyzer extracts a candidate profile from a finished session in the
// background. One worker drains a buffered queue; enqueueing never blocks
// the interview path.
type Analyzer struct {
	store    *store.Store
	provider llm.Provider
	prompts  *prompts.PromptManager
	ability  *AbilityService
	logger   *zap.Logger

	jobs chan job
	done chan struct{}
}

func NewAnalyzer(
	st *store.Store,
	provider llm.Provider,
	pm *prompts.PromptManager,
	ability *AbilityService,
	logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		store:    st,
		provider: provider,
		prompts:  pm,
		ability:  ability,
		logger:   logger,
		jobs:     make(chan job, jobQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (a *Analyzer) Start() {
	go a.run()
}

// Stop closes the queue and waits for queued jobs to drain.
func (a *Analyzer) Stop() {
	close(a.jobs)
	<-a.done
}

// EnqueueSession schedules profile extraction for a completed session. A
// full queue drops the job rather than stalling the caller.
func (a *Analyzer) EnqueueSession(sessionID, userID string) {
	select {
	case a.jobs <- job{sessionID: sessionID, userID: userID}:
	default:
		a.logger.Warn("analysis queue full, dropping job",
			zap.String("session_id", sessionID))
		metrics.ObserveAnalysisJob("dropped")
	}
}

func (a *Analyzer) run() {
	defer close(a.done)
	for j := range a.jobs {
		if err := a.process(j); err != nil {
			a.logger.Error("session analysis failed",
				zap.String("session_id", j.sessionID), zap.Error(err))
			metrics.ObserveAnalysisJob("failed")
			continue
		}
		metrics.ObserveAnalysisJob("ok")
	}
}

func (a *Analyzer) process(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	messages, err := a.store.GetMessages(j.sessionID)
	if err != nil {
		return err
	}
	pairs := BuildQAHistory(messages)
	if len(pairs) == 0 {
		a.logger.Warn("no answered questions to analyze",
			zap.String("session_id", j.sessionID))
		return nil
	}

	prompt, err := a.prompts.Build("profile", "default", map[string]string{
		"QAHistory": FormatQAHistory(pairs),
	})
	if err != nil {
		return err
	}

	raw, err := a.provider.Complete(ctx, llm.ChannelSmart, prompt)
	if err != nil {
		return err
	}

	profile, err := parseProfile(raw)
	if err != nil {
		return err
	}
	profile.TotalQuestionsAnalyzed = len(pairs)
	profile.LastUpdated = time.Now().Format(time.RFC3339)

	if err := a.store.SaveProfile(j.sessionID, j.userID, profile); err != nil {
		return err
	}
	a.logger.Info("session profile saved",
		zap.String("session_id", j.sessionID),
		zap.Int("qa_pairs", len(pairs)))

	// Refreshing the overall profile is best effort; cooldown and busy
	// rejections are expected here.
	if a.ability != nil {
		if _, err := a.ability.Generate(ctx, j.userID); err != nil {
			a.logger.Debug("overall profile refresh skipped",
				zap.String("user_id", j.userID), zap.Error(err))
		}
	}
	return nil
}

func parseProfile(raw string) (*models.CandidateProfile, error) {
	payload := utils.FirstJSONBlock(utils.StripFences(raw))
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("empty profile output")
	}
	var profile models.CandidateProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("unparseable profile output: %w", err)
	}
	return &profile, nil
}
