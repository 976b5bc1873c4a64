package progress

import "coinzy/internal/models"

// AnswerResult is the feedback for a chosen option
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Option     int    `json:"option"`
	Correct    bool   `json:"correct"`
	Feedback   string `json:"feedback"`
}

// Outcome lists what an operation changed. Every entry appears exactly once, on the call
// that caused the transition.
type Outcome struct {
	XPGained             int                         `json:"xpGained,omitempty"`
	Level                int                         `json:"level"`
	LevelUp              bool                        `json:"levelUp,omitempty"`
	Streak               int                         `json:"streak"`
	QuestionCompleted    string                      `json:"questionCompleted,omitempty"`
	Answer               *AnswerResult               `json:"answer,omitempty"`
	CompletedMissions    []models.DailyMission       `json:"completedMissions,omitempty"`
	Transaction          *models.BankTransaction     `json:"transaction,omitempty"`
	Notifications        []models.FamilyNotification `json:"notifications,omitempty"`
	UnlockedAchievements []models.Achievement        `json:"unlockedAchievements,omitempty"`
}

// Changed reports whether the operation produced any event worth announcing
func (o *Outcome) Changed() bool {
	return o.XPGained > 0 ||
		o.QuestionCompleted != "" ||
		len(o.CompletedMissions) > 0 ||
		o.Transaction != nil ||
		len(o.Notifications) > 0 ||
		len(o.UnlockedAchievements) > 0
}

func (s *Store) newOutcome() *Outcome {
	return &Outcome{Level: s.state.Level, Streak: s.state.Streak}
}

// finish stamps the derived values after a mutation
func (s *Store) finish(out *Outcome) *Outcome {
	out.Level = s.state.Level
	out.Streak = s.state.Streak
	return out
}
