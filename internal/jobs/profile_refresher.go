package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"prepmate/interview/internal/analysis"
	"prepmate/interview/internal/store"
)

const refreshRunTimeout = 10 * time.Minute

// RefresherConfig contains configuration for the profile refresher job.
type RefresherConfig struct {
	Schedule string // cron schedule (e.g. "0 3 * * *" for 3 AM daily)
	Enabled  bool
}

// ProfileRefresherJob periodically regenerates overall profiles for every
// user with interview history, so the aggregate view does not go stale for
// users who stop requesting it explicitly.
type ProfileRefresherJob struct {
	store   *store.Store
	ability *analysis.AbilityService
	config  *RefresherConfig
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewProfileRefresherJob(
	st *store.Store,
	ability *analysis.AbilityService,
	config *RefresherConfig,
	logger *zap.Logger,
) *ProfileRefresherJob {
	return &ProfileRefresherJob{
		store:   st,
		ability: ability,
		config:  config,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start begins the scheduled refresh job.
func (prj *ProfileRefresherJob) Start() error {
	if !prj.config.Enabled {
		prj.logger.Info("profile refresh is disabled, skipping scheduler")
		return nil
	}

	_, err := prj.cron.AddFunc(prj.config.Schedule, func() {
		if err := prj.RunRefresh(); err != nil {
			prj.logger.Error("profile refresh run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule profile refresh: %w", err)
	}

	prj.cron.Start()
	prj.logger.Info("profile refresher started", zap.String("schedule", prj.config.Schedule))
	return nil
}

// Stop stops the scheduled refresh job.
func (prj *ProfileRefresherJob) Stop() {
	if prj.cron != nil {
		prj.cron.Stop()
		prj.logger.Info("profile refresher stopped")
	}
}

// RunRefresh regenerates the overall profile for every known user. Busy and
// cooldown rejections mean someone else refreshed recently, so they are not
// failures.
func (prj *ProfileRefresherJob) RunRefresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshRunTimeout)
	defer cancel()

	userIDs, err := prj.store.ListUserIDs()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(userIDs) == 0 {
		prj.logger.Info("no users with interview history, nothing to refresh")
		return nil
	}

	refreshed := 0
	for _, userID := range userIDs {
		if _, err := prj.ability.Generate(ctx, userID); err != nil {
			if errors.Is(err, analysis.ErrBusy) || errors.Is(err, analysis.ErrCooldown) {
				continue
			}
			prj.logger.Warn("profile refresh failed for user",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		refreshed++
	}

	prj.logger.Info("profile refresh run finished",
		zap.Int("users", len(userIDs)), zap.Int("refreshed", refreshed))
	return nil
}

// RunManual runs a refresh immediately (for testing or on-demand runs).
func (prj *ProfileRefresherJob) RunManual() error {
	return prj.RunRefresh()
}
