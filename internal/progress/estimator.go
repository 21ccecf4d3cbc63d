package progress

import (
	"fmt"
	"regexp"
	"strings"

	"prepmate/interview/internal/models"
)

// Snapshot is the estimator's view of how far an interview has advanced.
type Snapshot struct {
	CurrentIndex     int
	FollowUpCount    int
	LastQuestionText string
	Complete         bool
}

// Estimator infers interview progress from a transcript and a plan.
type Estimator interface {
	Estimate(history []models.Message, plan []models.Question, initialIndex int) Snapshot
}

// Config carries the matching thresholds. All lengths are in runes.
type Config struct {
	// RunLength is the sliding-window size for content matching.
	RunLength int
	// ContentPrefix is how much of a question's content is considered.
	ContentPrefix int
	// MinTopicLen is the shortest topic eligible for containment matching.
	MinTopicLen int
	// LightMatchLen is the minimum length for whole-content containment
	// when the content is too short for window matching.
	LightMatchLen int
	// FollowUpFloor is the minimum message length that counts as a follow-up.
	FollowUpFloor int
	// ForcedStops is the follow-up count that forces completion on the
	// final question.
	ForcedStops int
}

// DefaultConfig returns production thresholds.
func DefaultConfig() Config {
	return Config{
		RunLength:     10,
		ContentPrefix: 40,
		MinTopicLen:   2,
		LightMatchLen: 4,
		FollowUpFloor: 10,
		ForcedStops:   3,
	}
}

var (
	nonWordRE     = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	chineseNums   = []string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}
	commonFilters = []string{"项目", "经验", "技术", "基础", "了解", "面试", "问题"}

	closingKeywords = []string{
		"面试结束", "再见", "谢谢你的参加", "祝你生活愉快",
		"今天的面试就到这里", "辛苦了", "拜拜", "期待你的加入",
	}
)

// Heuristic is a pure text-matching estimator. It scans assistant messages
// for ordinal cues, topic mentions and question-content fragments to work
// out which plan slot the interviewer has reached.
type Heuristic struct {
	cfg Config
}

func NewHeuristic(cfg Config) *Heuristic {
	return &Heuristic{cfg: cfg}
}

func (h *Heuristic) Estimate(history []models.Message, plan []models.Question, initialIndex int) Snapshot {
	if len(plan) == 0 {
		return Snapshot{}
	}
	if initialIndex >= len(plan) {
		// index len(plan) means every question has already been asked
		return Snapshot{CurrentIndex: len(plan), Complete: true}
	}
	if initialIndex < 0 {
		initialIndex = 0
	}
	snap := Snapshot{CurrentIndex: initialIndex}

	anchored := false

	for _, msg := range history {
		if msg.Role != models.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}

		// A later question always wins over the current one.
		foundNext := false
		for i := snap.CurrentIndex + 1; i < len(plan); i++ {
			if h.matches(content, plan[i], i, len(plan)) {
				snap.CurrentIndex = i
				snap.FollowUpCount = 0
				snap.LastQuestionText = plan[i].Content
				anchored = true
				foundNext = true
				break
			}
		}
		if foundNext {
			continue
		}

		current := plan[snap.CurrentIndex]
		if h.matches(content, current, snap.CurrentIndex, len(plan)) {
			if !anchored {
				anchored = true
				snap.LastQuestionText = current.Content
			} else {
				// still on the same question, so this is a follow-up
				snap.FollowUpCount++
				snap.LastQuestionText = content
			}
		} else if anchored {
			// Unmatched assistant chatter after anchoring is usually a
			// natural-language follow-up; ignore short acknowledgements.
			if len([]rune(content)) > h.cfg.FollowUpFloor {
				snap.FollowUpCount++
				snap.LastQuestionText = content
			}
		}
	}

	snap.Complete = h.isComplete(history, plan, snap)
	return snap
}

func (h *Heuristic) isComplete(history []models.Message, plan []models.Question, snap Snapshot) bool {
	if snap.CurrentIndex < len(plan)-1 {
		return false
	}

	var lastAssistant string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			lastAssistant = strings.ToLower(history[i].Content)
			break
		}
	}

	for _, kw := range closingKeywords {
		if strings.Contains(lastAssistant, kw) {
			return true
		}
	}
	return snap.FollowUpCount >= h.cfg.ForcedStops
}

// matches reports whether an assistant message refers to the given plan
// question, via ordinal, topic or content-fragment cues.
func (h *Heuristic) matches(aiContent string, q models.Question, idx, planLen int) bool {
	cleanAI := nonWordRE.ReplaceAllString(aiContent, "")

	if matchOrdinal(aiContent, idx, planLen) {
		return true
	}
	if h.matchTopic(aiContent, cleanAI, q.Topic) {
		return true
	}
	return h.matchContent(cleanAI, q.Content)
}

func matchOrdinal(aiContent string, idx, planLen int) bool {
	n := idx + 1
	patterns := []string{
		fmt.Sprintf("第%d[个题问话]", n),
		fmt.Sprintf("第%d阶段", n),
		fmt.Sprintf("%d[.、]", n),
	}
	if idx < len(chineseNums) {
		patterns = append(patterns,
			fmt.Sprintf("第%s[个题问话]", chineseNums[idx]),
			fmt.Sprintf("第%s阶段", chineseNums[idx]))
	}
	if idx == planLen-1 {
		patterns = append(patterns, "最后一题", "最后一个问题", "结束面试")
	}

	for _, p := range patterns {
		if matched, _ := regexp.MatchString(p, aiContent); matched {
			return true
		}
	}
	return false
}

func (h *Heuristic) matchTopic(aiContent, cleanAI, topic string) bool {
	if topic == "" {
		return false
	}
	cleanTopic := nonWordRE.ReplaceAllString(topic, "")
	topicLen := len([]rune(cleanTopic))
	if topicLen < h.cfg.MinTopicLen || !strings.Contains(cleanAI, cleanTopic) {
		return false
	}

	// Very short common words need an explicit cue nearby, containment
	// alone is too noisy ("项目", "经验"...).
	if topicLen <= h.cfg.MinTopicLen && isCommonWord(cleanTopic) {
		cuePattern := "第[一二三四五六七八九十0-9][个环节题问话].*" + regexp.QuoteMeta(cleanTopic)
		if matched, _ := regexp.MatchString(cuePattern, aiContent); matched {
			return true
		}
		return strings.Contains(aiContent, "关于"+cleanTopic)
	}
	return true
}

func (h *Heuristic) matchContent(cleanAI, content string) bool {
	prefix := []rune(content)
	if len(prefix) > h.cfg.ContentPrefix {
		prefix = prefix[:h.cfg.ContentPrefix]
	}
	core := []rune(nonWordRE.ReplaceAllString(string(prefix), ""))

	if len(core) >= h.cfg.RunLength+2 {
		// sliding window over the cleaned prefix
		for j := 0; j+h.cfg.RunLength <= len(core); j++ {
			if strings.Contains(cleanAI, string(core[j:j+h.cfg.RunLength])) {
				return true
			}
		}
		return false
	}
	if len(core) > h.cfg.LightMatchLen {
		return strings.Contains(cleanAI, string(core))
	}
	return false
}

func isCommonWord(s string) bool {
	for _, w := range commonFilters {
		if s == w {
			return true
		}
	}
	return false
}
