package models

// Question is a story lesson with a multiple-choice question
type Question struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Emoji     string   `json:"emoji"`
	Question  string   `json:"question"`
	Options   []Option `json:"options"`
	XPReward  int      `json:"xpReward"`
	Completed bool     `json:"completed"`
	Topic     string   `json:"topic"`
}

// Option is one answer choice of a question
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

// DailyMission is a bounded counter goal that resets every day
type DailyMission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      int    `json:"target"`
	Current     int    `json:"current"`
	Completed   bool   `json:"completed"`
	XPReward    int    `json:"xpReward"`
	Emoji       string `json:"emoji"`
	Claimed     bool   `json:"claimed,omitempty"`
}

// Remaining returns how much progress is left before the mission completes
func (m DailyMission) Remaining() int {
	if m.Current >= m.Target {
		return 0
	}
	return m.Target - m.Current
}
