package models

import "strings"

// StartInterviewRequest begins a new session and emits the opening turn.
type StartInterviewRequest struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	Mode           string `json:"mode"`
	ResumeContext  string `json:"resume_context"`
	JobDescription string `json:"job_description"`
	CompanyInfo    string `json:"company_info"`
	MaxQuestions   int    `json:"max_questions"`
	RoundIndex     int    `json:"round_index"`
	RoundType      string `json:"round_type"`
	ParentSession  string `json:"parent_session_id"`
	Title          string `json:"title"`
}

// implements the Validator interface
func (r *StartInterviewRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return &ErrorResponse{Code: "missing_session_id", Message: "session_id is required"}
	}
	if r.Mode == "" {
		r.Mode = ModeMock
	}
	if !ValidMode(r.Mode) {
		return &ErrorResponse{Code: "invalid_mode", Message: "mode must be one of: mock, coach"}
	}
	if r.MaxQuestions == 0 {
		r.MaxQuestions = DefaultMaxQuestions
	}
	if r.MaxQuestions < 1 || r.MaxQuestions > MaxQuestionsLimit {
		return &ErrorResponse{Code: "invalid_max_questions", Message: "max_questions must be between 1 and 20"}
	}
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
	if r.RoundIndex == 0 {
		r.RoundIndex = 1
	}
	return nil
}

// TurnRequest submits one candidate answer for an active session.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (r *TurnRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return &ErrorResponse{Code: "missing_session_id", Message: "session_id is required"}
	}
	if strings.TrimSpace(r.Message) == "" {
		return &ErrorResponse{Code: "missing_message", Message: "message is required"}
	}
	return nil
}

// RollbackRequest rewinds a session's transcript to the given message ordinal.
type RollbackRequest struct {
	Index int `json:"index"`
}

func (r *RollbackRequest) Validate() error {
	if r.Index < 0 {
		return &ErrorResponse{Code: "invalid_index", Message: "index must be >= 0"}
	}
	return nil
}
