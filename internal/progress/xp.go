package progress

import (
	"fmt"

	"coinzy/internal/catalog"
	"coinzy/internal/models"
)

// AddXP grants experience points and advances the XP mission
func (s *Store) AddXP(amount int) (*Outcome, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive, got %d", ErrInvalidArgument, amount)
	}

	out := s.newOutcome()
	s.grantXP(amount, out)
	s.evaluateAchievements(out)
	return s.finish(out), nil
}

func (s *Store) grantXP(amount int, out *Outcome) {
	before := s.state.Level
	s.state.XP += amount
	s.state.Level = models.LevelForXP(s.state.XP)
	out.XPGained += amount
	if s.state.Level > before {
		out.LevelUp = true
	}
	s.advanceMetric(catalog.MissionXP, amount, out)
}

// UpdateStreak records activity for today. The first call of a calendar day extends the
// streak when the previous activity was yesterday and restarts it otherwise; later calls on
// the same day change nothing.
func (s *Store) UpdateStreak() (*Outcome, error) {
	out := s.newOutcome()

	now := s.today()
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	last := s.state.LastActiveDate
	switch {
	case last != nil && *last == today:
		return out, nil
	case last != nil && *last == yesterday:
		s.state.Streak++
	default:
		s.state.Streak = 1
	}
	s.state.LastActiveDate = &today

	s.evaluateAchievements(out)
	return s.finish(out), nil
}
