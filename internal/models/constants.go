package models

// Interview modes
const (
	ModeMock  = "mock"
	ModeCoach = "coach"
)

// Session lifecycle states
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Question types
const (
	QuestionIntro        = "intro"
	QuestionTech         = "tech"
	QuestionBehavior     = "behavior"
	QuestionSystemDesign = "system_design"
)

// Round strategies for the plan builder
const (
	RoundTechInitial     = "tech_initial"
	RoundTechDeep        = "tech_deep"
	RoundHRComprehensive = "hr_comprehensive"
	RoundVoiceDefault    = "voice_default"
)

// Hiring recommendations
const (
	RecommendHire   = "hire"
	RecommendMaybe  = "maybe"
	RecommendNoHire = "no_hire"
)

const (
	DefaultMaxQuestions = 5
	MaxQuestionsLimit   = 20
	DefaultUserID       = "default_user"
)

// ValidMode reports whether mode is a supported interview mode.
func ValidMode(mode string) bool {
	return mode == ModeMock || mode == ModeCoach
}

// ValidQuestionType reports whether t is one of the fixed question type enum values.
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionIntro, QuestionTech, QuestionBehavior, QuestionSystemDesign:
		return true
	}
	return false
}
