package interview

import "prepmate/interview/internal/models"

// Caps bounds how long the controller lingers on one question.
type Caps struct {
	MaxFollowUps int
	MaxClarifies int
}

// Evaluation is the classified intent of one candidate reply.
type Evaluation struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Transition describes what Apply decided beyond the new state itself, so
// the caller can pick the right interviewer behavior.
type Transition struct {
	// Advanced is true when the plan index moved to a new question.
	Advanced bool
	// Skipped is true when the question was abandoned rather than answered
	// (candidate didn't know, or ran out of clarification attempts).
	Skipped bool
	// Explain is true when the interviewer should teach the answer of the
	// abandoned question before moving on (coach mode only).
	Explain bool
	// Completed is true when QuestionCount moved, i.e. one more plan
	// question is done.
	Completed bool
}

// Apply is the turn transition function. It is pure: given the current
// state, an evaluation and the session mode it returns the next state and
// what happened, touching nothing else.
//
// Decision table:
//
//	ANSWER_PASS        -> advance
//	ANSWER_WEAK        -> follow up while under cap, then advance
//	ASK_CLARIFICATION  -> clarify while under cap, then advance (skip)
//	UNKNOWN            -> advance (skip; coach mode also explains)
func Apply(state models.TurnState, eval Evaluation, mode string, caps Caps) (models.TurnState, Transition) {
	next := state
	var tr Transition

	advance := func() {
		next.CurrentIndex++
		next.FollowUpCount = 0
		next.ClarifyCount = 0
		next.Status = models.TurnStartNew
		tr.Advanced = true
		tr.Completed = true
	}

	switch eval.Decision {
	case models.DecisionAnswerPass:
		next.Reason = eval.Reason
		advance()

	case models.DecisionAnswerWeak:
		if state.FollowUpCount < caps.MaxFollowUps {
			next.FollowUpCount++
			next.ClarifyCount = 0
			next.Status = models.TurnFollowUp
			next.Reason = eval.Reason
		} else {
			next.Reason = "追问次数已达上限，进入下一题"
			advance()
		}

	case models.DecisionAskClarification:
		if state.ClarifyCount < caps.MaxClarifies {
			next.ClarifyCount++
			next.Status = models.TurnClarify
			next.Reason = eval.Reason
		} else {
			next.Reason = "用户反复提问超过限制，跳过此题"
			advance()
			tr.Skipped = true
		}

	default: // UNKNOWN
		if mode == models.ModeCoach {
			next.Reason = "用户表示不会，将给出答案和讲解"
			tr.Explain = true
		} else {
			next.Reason = "用户表示不会，跳过此题"
		}
		advance()
		tr.Skipped = true
	}

	return next, tr
}
