package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"prepmate/interview/internal/llm"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/store"
)

var (
	// ErrBusy means an aggregation for this user is already running.
	ErrBusy = errors.New("profile generation already in progress")
	// ErrCooldown means the user regenerated too recently.
	ErrCooldown = errors.New("profile generated too recently")
)

// lowSampleThreshold is the record count under which results carry a
// warning.
const lowSampleThreshold = 3

// AbilityService aggregates a user's recent session profiles into one
// time-weighted overall profile.
type AbilityService struct {
	store    *store.Store
	provider llm.Provider
	prompts  *prompts.PromptManager
	logger   *zap.Logger

	cooldown time.Duration
	window   int

	mu       sync.Mutex
	inFlight map[string]bool
	lastRun  map[string]time.Time
}

func NewAbilityService(
	st *store.Store,
	provider llm.Provider,
	pm *prompts.PromptManager,
	cooldown time.Duration,
	window int,
	logger *zap.Logger,
) *AbilityService {
	return &AbilityService{
		store:    st,
		provider: provider,
		prompts:  pm,
		logger:   logger,
		cooldown: cooldown,
		window:   window,
		inFlight: make(map[string]bool),
		lastRun:  make(map[string]time.Time),
	}
}

// Result bundles a profile with a non-fatal warning.
type Result struct {
	Profile *models.CandidateProfile
	Warning string
}

// Generate rebuilds the user's overall profile from their recent session
// profiles. At most one generation runs per user, with a cooldown between
// runs. A failed aggregation degrades to the latest single profile rather
// than failing the request.
func (a *AbilityService) Generate(ctx context.Context, userID string) (*Result, error) {
	if err := a.acquire(userID); err != nil {
		return nil, err
	}
	defer a.release(userID)

	recent, err := a.store.GetRecentProfiles(userID, a.window)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		empty := models.EmptyProfile()
		return &Result{Profile: &empty}, nil
	}

	profile, err := a.aggregate(ctx, recent)
	if err != nil {
		a.logger.Error("profile aggregation failed, falling back to latest",
			zap.String("user_id", userID), zap.Error(err))
		latest := recent[0]
		return &Result{
			Profile: &latest,
			Warning: "生成失败，已显示最近一次面试结果。请稍后重试。",
		}, nil
	}

	if err := a.store.SaveUserProfile(userID, profile); err != nil {
		return nil, err
	}
	a.markDone(userID)

	result := &Result{Profile: profile}
	if len(recent) < lowSampleThreshold {
		result.Warning = fmt.Sprintf("当前仅基于 %d 次面试记录，建议完成更多面试以获得更准确的评估。", len(recent))
	}
	return result, nil
}

// Get returns the stored overall profile without regenerating it.
func (a *AbilityService) Get(userID string) (*models.CandidateProfile, error) {
	return a.store.GetUserProfile(userID)
}

func (a *AbilityService) acquire(userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[userID] {
		return ErrBusy
	}
	if last, ok := a.lastRun[userID]; ok && time.Since(last) < a.cooldown {
		return ErrCooldown
	}
	a.inFlight[userID] = true
	return nil
}

func (a *AbilityService) release(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, userID)
}

func (a *AbilityService) markDone(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRun[userID] = time.Now()
}

// weightFor decays 0.15 per step back in time, newest first.
func weightFor(i int) float64 {
	w := 1.0 - float64(i)*0.15
	if w < 0.1 {
		w = 0.1
	}
	return w
}

func (a *AbilityService) aggregate(ctx context.Context, recent []models.CandidateProfile) (*models.CandidateProfile, error) {
	type weighted struct {
		Index   int                     `json:"index"`
		Weight  float64                 `json:"weight"`
		Profile models.CandidateProfile `json:"profile"`
	}
	entries := make([]weighted, 0, len(recent))
	for i, p := range recent {
		entries = append(entries, weighted{Index: i + 1, Weight: weightFor(i), Profile: p})
	}
	blob, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt, err := a.prompts.Build("aggregate", "default", map[string]string{
		"Profiles": string(blob),
	})
	if err != nil {
		return nil, err
	}

	raw, err := a.provider.Complete(ctx, llm.ChannelSmart, prompt)
	if err != nil {
		return nil, err
	}

	profile, err := parseProfile(raw)
	if err != nil {
		return nil, err
	}
	profile.LastUpdated = time.Now().Format(time.RFC3339)
	return profile, nil
}
