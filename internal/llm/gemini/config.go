package gemini

import (
	"errors"
	"os"
)

// holds Gemini-specific configuration
type Config struct {
	APIKey     string
	FastModel  string
	SmartModel string
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	fastModel := os.Getenv("GEMINI_FAST_MODEL")
	if fastModel == "" {
		fastModel = "gemini-2.5-flash" // default fast model
	}

	smartModel := os.Getenv("GEMINI_SMART_MODEL")
	if smartModel == "" {
		smartModel = "gemini-2.5-pro" // default smart model
	}

	return &Config{
		APIKey:     apiKey,
		FastModel:  fastModel,
		SmartModel: smartModel,
	}, nil
}

// ModelFor maps a channel name to the configured model id.
func (c *Config) ModelFor(channel string) string {
	if channel == "smart" {
		return c.SmartModel
	}
	return c.FastModel
}
