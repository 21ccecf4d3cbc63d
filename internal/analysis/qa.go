package analysis

import (
	"fmt"
	"strings"

	"prepmate/interview/internal/models"
)

// BuildQAHistory reconstructs question/answer pairs from a transcript by
// pairing each interviewer message with the candidate reply that follows
// it. Interviewer messages with no reply (the closing summary, an
// unanswered question) are dropped.
func BuildQAHistory(messages []models.Message) []models.QAPair {
	var pairs []models.QAPair
	var pending string

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			pending = msg.Content
		case models.RoleUser:
			if pending == "" {
				continue
			}
			pairs = append(pairs, models.QAPair{Question: pending, Answer: msg.Content})
			pending = ""
		}
	}
	return pairs
}

// FormatQAHistory renders pairs for a prompt.
func FormatQAHistory(pairs []models.QAPair) string {
	var sb strings.Builder
	for i, pair := range pairs {
		fmt.Fprintf(&sb, "问题 %d：%s\n回答 %d：%s\n\n", i+1, pair.Question, i+1, pair.Answer)
	}
	return strings.TrimSpace(sb.String())
}
