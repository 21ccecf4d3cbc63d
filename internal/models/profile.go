package models

import (
	"time"

	"gorm.io/gorm"
)

// DimensionScore is one scored dimension of a candidate profile.
type DimensionScore struct {
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence"`
	Trend    string  `json:"trend,omitempty"` // improving | stable | declining
}

// CandidateProfile is the structured assessment extracted from a completed
// interview transcript. Regenerated wholesale on each analysis trigger.
type CandidateProfile struct {
	ProfessionalCompetence DimensionScore `json:"professional_competence"`
	ExecutionResults       DimensionScore `json:"execution_results"`
	LogicProblemSolving    DimensionScore `json:"logic_problem_solving"`
	Communication          DimensionScore `json:"communication"`
	GrowthPotential        DimensionScore `json:"growth_potential"`
	Collaboration          DimensionScore `json:"collaboration"`

	SkillTags         []string `json:"skill_tags"`
	OverallAssessment string   `json:"overall_assessment,omitempty"`
	KeyStrengths      []string `json:"key_strengths,omitempty"`
	KeyWeaknesses     []string `json:"key_weaknesses,omitempty"`
	Recommendation    string   `json:"recommendation,omitempty"` // hire | maybe | no_hire
	Confidence        float64  `json:"confidence,omitempty"`

	TotalQuestionsAnalyzed int    `json:"total_questions_analyzed,omitempty"`
	LastUpdated            string `json:"last_updated"`
}

// EmptyProfile returns the zero-data placeholder profile.
func EmptyProfile() CandidateProfile {
	none := DimensionScore{Score: 0, Evidence: "暂无数据"}
	return CandidateProfile{
		ProfessionalCompetence: none,
		ExecutionResults:       none,
		LogicProblemSolving:    none,
		Communication:          none,
		GrowthPotential:        none,
		Collaboration:          none,
		SkillTags:              []string{},
		OverallAssessment:      "暂无面试记录，请先完成一次模拟面试。",
		LastUpdated:            time.Now().Format(time.RFC3339),
	}
}

// SessionProfile stores a per-session candidate profile as a JSON blob.
type SessionProfile struct {
	gorm.Model
	SessionID string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null;default:default_user"`
	Profile   string `gorm:"type:text;not null"`
}

// UserProfile stores the aggregated per-user overall profile.
type UserProfile struct {
	gorm.Model
	UserID  string `gorm:"uniqueIndex;not null"`
	Profile string `gorm:"type:text;not null"`
}

// QAPair is one reconstructed question/answer exchange.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
