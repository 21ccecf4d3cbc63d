package models

// Question is one slot in an interview plan.
type Question struct {
	ID      int    `json:"id"`
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Hint    string `json:"hint,omitempty"`
}

// defaultQuestions is the fallback plan used whenever the planner cannot
// produce a usable question list.
var defaultQuestions = []Question{
	{ID: 1, Topic: "自我介绍", Content: "请做一个简短的自我介绍，包括你的教育背景和工作经历。", Type: QuestionIntro},
	{ID: 2, Topic: "项目经验", Content: "请介绍一个你最有成就感的项目。", Type: QuestionTech},
	{ID: 3, Topic: "技术能力", Content: "你最擅长的技术栈是什么？", Type: QuestionTech},
	{ID: 4, Topic: "问题解决", Content: "请描述一个你解决过的技术难题。", Type: QuestionBehavior},
	{ID: 5, Topic: "职业规划", Content: "你对未来的职业发展有什么规划？", Type: QuestionBehavior},
}

// genericQuestion pads plans once the default list runs out.
var genericQuestion = Question{Topic: "相关经验", Content: "请结合你的实际经历，谈谈与这个岗位相关的一段经验。", Type: QuestionTech}

// DefaultQuestions returns exactly n fallback questions with 1-based ids.
func DefaultQuestions(n int) []Question {
	if n <= 0 {
		return []Question{}
	}
	out := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		var q Question
		if i < len(defaultQuestions) {
			q = defaultQuestions[i]
		} else {
			q = genericQuestion
		}
		q.ID = i + 1
		out = append(out, q)
	}
	return out
}
