package models

import "gorm.io/gorm"

// Turn controller statuses.
const (
	TurnStartNew = "start_new"
	TurnFollowUp = "follow_up"
	TurnClarify  = "clarify"
	TurnPass     = "pass"
)

// Evaluator decisions.
const (
	DecisionAnswerPass       = "ANSWER_PASS"
	DecisionAnswerWeak       = "ANSWER_WEAK"
	DecisionAskClarification = "ASK_CLARIFICATION"
	DecisionUnknown          = "UNKNOWN"
)

// TurnState is the turn controller's position within an interview plan.
type TurnState struct {
	CurrentIndex  int    `json:"current_index"`
	FollowUpCount int    `json:"follow_up_count"`
	ClarifyCount  int    `json:"clarify_count"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// NewTurnState returns the state for a freshly planned interview.
func NewTurnState() TurnState {
	return TurnState{Status: TurnStartNew}
}

// SessionTurnState persists a session's turn state as a JSON blob.
type SessionTurnState struct {
	gorm.Model
	SessionID string `gorm:"uniqueIndex;not null"`
	State     string `gorm:"type:text;not null"`
}
