package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one interview session. The primary key is the caller-supplied
// opaque session id; the service never generates it.
type Session struct {
	SessionID      string `gorm:"primaryKey" json:"session_id"`
	UserID         string `gorm:"index;not null;default:default_user" json:"user_id"`
	Title          string `json:"title"`
	Mode           string `gorm:"not null" json:"mode"`
	ResumeContext  string `gorm:"type:text" json:"resume_context,omitempty"`
	JobDescription string `gorm:"type:text" json:"job_description,omitempty"`
	CompanyInfo    string `gorm:"type:text" json:"company_info,omitempty"`
	MaxQuestions   int    `gorm:"not null" json:"max_questions"`

	// Multi-round interviews chain sessions via ParentSessionID.
	RoundIndex      int    `gorm:"not null;default:1" json:"round_index"`
	RoundType       string `json:"round_type,omitempty"`
	ParentSessionID string `json:"parent_session_id,omitempty"`

	// QuestionCount is the authoritative progress counter: the number of plan
	// questions completed so far (follow-ups and clarifications excluded).
	QuestionCount int    `gorm:"not null;default:0" json:"question_count"`
	Status        string `gorm:"not null;default:active;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:SessionID;references:SessionID" json:"messages,omitempty"`
}

// Message is one entry in a session's append-only transcript. QuestionIndex
// tags the plan slot the message belongs to so turn state can be re-derived.
type Message struct {
	gorm.Model    `json:"-"`
	SessionID     string    `gorm:"index;not null" json:"-"`
	Role          string    `gorm:"not null" json:"role"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	QuestionIndex int       `gorm:"not null;default:0" json:"question_index"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
}

// InterviewPlan persists a session's question list as a single JSON blob.
// The plan is written once per session and its length never changes.
type InterviewPlan struct {
	gorm.Model
	SessionID string `gorm:"uniqueIndex;not null"`
	Questions string `gorm:"type:text;not null"`
}

// SessionListItem is the trimmed listing view of a session.
type SessionListItem struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	QuestionCount int       `json:"question_count"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
