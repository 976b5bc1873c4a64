package progress

import (
	"fmt"

	"coinzy/internal/catalog"

	"github.com/shopspring/decimal"
)

// UnlockAchievement unlocks an achievement by hand. Unlocking twice is a no-op.
func (s *Store) UnlockAchievement(achievementID string) (*Outcome, error) {
	if s.achievementIndex(achievementID) < 0 {
		return nil, fmt.Errorf("%w: achievement %q", ErrNotFound, achievementID)
	}
	out := s.newOutcome()
	s.unlock(achievementID, out)
	return s.finish(out), nil
}

// evaluateAchievements unlocks every rule-based achievement whose threshold is met
func (s *Store) evaluateAchievements(out *Outcome) {
	for _, rule := range s.catalog.Achievements {
		value, ok := s.metricValue(rule.Metric)
		if !ok {
			continue
		}
		if value.GreaterThanOrEqual(decimal.NewFromFloat(rule.Threshold)) {
			s.unlock(rule.ID, out)
		}
	}
}

func (s *Store) metricValue(metric catalog.AchievementMetric) (decimal.Decimal, bool) {
	switch metric {
	case catalog.AchievementLessons:
		return decimal.NewFromInt(int64(s.state.CompletedQuestions())), true
	case catalog.AchievementBalance:
		return s.state.BankBalance, true
	case catalog.AchievementXP:
		return decimal.NewFromInt(int64(s.state.XP)), true
	case catalog.AchievementStreak:
		return decimal.NewFromInt(int64(s.state.Streak)), true
	case catalog.AchievementManual:
		return decimal.Zero, false
	}
	return decimal.Zero, false
}

// unlock flips an achievement once and stamps the unlock time
func (s *Store) unlock(id string, out *Outcome) {
	idx := s.achievementIndex(id)
	if idx < 0 {
		return
	}
	a := &s.state.Achievements[idx]
	if a.Unlocked {
		return
	}
	now := s.now()
	a.Unlocked = true
	a.DateUnlocked = &now
	out.UnlockedAchievements = append(out.UnlockedAchievements, *a)
}

func (s *Store) achievementIndex(id string) int {
	for i, a := range s.state.Achievements {
		if a.ID == id {
			return i
		}
	}
	return -1
}
