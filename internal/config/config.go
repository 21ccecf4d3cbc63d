package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries all tunables for the interview service. Values come from the
// environment; defaults match production behavior.
type Config struct {
	Provider string

	// Turn controller caps.
	MaxFollowUps int
	MaxClarifies int

	// Progress estimator thresholds.
	EstimatorRunLength     int
	EstimatorContentPrefix int
	EstimatorMinTopicLen   int
	EstimatorLightMatchLen int
	EstimatorFollowUpFloor int
	EstimatorForcedStops   int

	// Profile aggregation.
	ProfileCooldown     time.Duration
	ProfileRecentWindow int

	// Nightly profile refresh job.
	ProfileRefreshCron   string
	ProfileRefreshEnable bool
}

// LoadConfig reads service configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Provider: getEnvOrDefault("AI_PROVIDER", "gemini"),

		MaxFollowUps: getEnvInt("INTERVIEW_MAX_FOLLOW_UPS", 2),
		MaxClarifies: getEnvInt("INTERVIEW_MAX_CLARIFIES", 2),

		EstimatorRunLength:     getEnvInt("ESTIMATOR_RUN_LENGTH", 10),
		EstimatorContentPrefix: getEnvInt("ESTIMATOR_CONTENT_PREFIX", 40),
		EstimatorMinTopicLen:   getEnvInt("ESTIMATOR_MIN_TOPIC_LEN", 2),
		EstimatorLightMatchLen: getEnvInt("ESTIMATOR_LIGHT_MATCH_LEN", 4),
		EstimatorFollowUpFloor: getEnvInt("ESTIMATOR_FOLLOW_UP_FLOOR", 10),
		EstimatorForcedStops:   getEnvInt("ESTIMATOR_FORCED_STOPS", 3),

		ProfileCooldown:     getEnvDuration("PROFILE_COOLDOWN", time.Minute),
		ProfileRecentWindow: getEnvInt("PROFILE_RECENT_WINDOW", 5),

		ProfileRefreshCron:   getEnvOrDefault("PROFILE_REFRESH_SCHEDULE", "0 3 * * *"),
		ProfileRefreshEnable: getEnvOrDefault("PROFILE_REFRESH_ENABLED", "false") == "true",
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Provider != "gemini" {
		return fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
	if cfg.MaxFollowUps < 0 || cfg.MaxClarifies < 0 {
		return fmt.Errorf("follow-up and clarification caps must be >= 0")
	}
	if cfg.EstimatorContentPrefix < cfg.EstimatorRunLength {
		return fmt.Errorf("ESTIMATOR_CONTENT_PREFIX (%d) must be >= ESTIMATOR_RUN_LENGTH (%d)",
			cfg.EstimatorContentPrefix, cfg.EstimatorRunLength)
	}
	if cfg.ProfileRecentWindow < 1 {
		return fmt.Errorf("PROFILE_RECENT_WINDOW must be >= 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
