package models

// ErrorResponse is the JSON error body returned by every endpoint. It doubles
// as the error type produced by request validation.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// SessionResponse wraps a session for transport.
type SessionResponse struct {
	Session *Session `json:"session"`
}

// SessionListResponse is the listing payload.
type SessionListResponse struct {
	Sessions []SessionListItem `json:"sessions"`
	Total    int64             `json:"total"`
}

// SessionDetailResponse is one session with its full transcript.
type SessionDetailResponse struct {
	Session  *Session  `json:"session"`
	Messages []Message `json:"messages"`
}

// PlanResponse returns a session's interview plan.
type PlanResponse struct {
	SessionID string     `json:"session_id"`
	Questions []Question `json:"questions"`
}

// ProfileResponse wraps a candidate profile; Warning carries non-fatal notes
// such as low sample counts.
type ProfileResponse struct {
	Profile *CandidateProfile `json:"profile"`
	Warning string            `json:"warning,omitempty"`
}

// RollbackResponse reports the state left behind by an explicit rollback.
type RollbackResponse struct {
	SessionID     string `json:"session_id"`
	QuestionCount int    `json:"question_count"`
	MessageCount  int    `json:"message_count"`
}
