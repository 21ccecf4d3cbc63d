package llm

import "context"

// Channel selects the model tier for a request. The fast channel serves
// latency-sensitive work (hints, classification); the smart channel serves
// quality-sensitive work (planning, summaries, profiles).
type Channel string

const (
	ChannelFast  Channel = "fast"
	ChannelSmart Channel = "smart"
)

// ChatMessage is one turn of conversation history sent to a provider.
type ChatMessage struct {
	Role    string `json:"role"` // user | assistant | system
	Content string `json:"content"`
}

// StreamChunk is one incremental piece of a streaming completion.
type StreamChunk struct {
	Text string
	Err  error
}

// defines the interface for LLM providers
type Provider interface {
	// Complete runs a single-prompt completion on the given channel.
	Complete(ctx context.Context, channel Channel, prompt string) (string, error)
	// Chat runs a completion over conversation history with a system prompt.
	Chat(ctx context.Context, channel Channel, system string, history []ChatMessage) (string, error)
	// ChatStream streams a chat completion; the returned channel is closed
	// after the final chunk (or after a chunk carrying Err).
	ChatStream(ctx context.Context, channel Channel, system string, history []ChatMessage) (<-chan StreamChunk, error)
	GetProviderName() string
}

// represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Common error codes
// For current and future use across different providers
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeQuota        = "quota_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
	ErrCodeConnection   = "connection_error"
)
