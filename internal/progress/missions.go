package progress

import (
	"fmt"

	"coinzy/internal/catalog"
)

// AdvanceMission adds progress to a mission directly
func (s *Store) AdvanceMission(missionID string, progress int) (*Outcome, error) {
	if progress <= 0 {
		return nil, fmt.Errorf("%w: mission progress must be positive, got %d", ErrInvalidArgument, progress)
	}
	idx := s.missionIndex(missionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: mission %q", ErrNotFound, missionID)
	}

	out := s.newOutcome()
	s.advanceMission(idx, progress, out)
	return s.finish(out), nil
}

// ClaimMissionReward collects the XP reward of a completed mission, once
func (s *Store) ClaimMissionReward(missionID string) (*Outcome, error) {
	idx := s.missionIndex(missionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: mission %q", ErrNotFound, missionID)
	}
	m := &s.state.DailyMissions[idx]
	if !m.Completed {
		return nil, fmt.Errorf("%w: %q", ErrMissionNotCompleted, missionID)
	}
	if m.Claimed {
		return nil, fmt.Errorf("%w: %q", ErrRewardClaimed, missionID)
	}

	m.Claimed = true
	out := s.newOutcome()
	if m.XPReward > 0 {
		s.grantXP(m.XPReward, out)
	}
	s.evaluateAchievements(out)
	return s.finish(out), nil
}

// ResetDailyMissions starts a new day of missions from the catalog
func (s *Store) ResetDailyMissions() (*Outcome, error) {
	s.state.DailyMissions = s.catalog.InitialMissions()
	return s.newOutcome(), nil
}

// advanceMetric adds progress to every mission counting metric
func (s *Store) advanceMetric(metric catalog.MissionMetric, progress int, out *Outcome) {
	if progress <= 0 {
		return
	}
	for i, m := range s.state.DailyMissions {
		if s.catalog.MissionMetric(m.ID) == metric {
			s.advanceMission(i, progress, out)
		}
	}
}

func (s *Store) advanceMission(idx, progress int, out *Outcome) {
	m := s.state.DailyMissions[idx]
	s.raiseMission(idx, m.Current+min(progress, m.Remaining()), out)
}

// raiseMission moves a mission's counter up to value, clamped to its target. Completed
// missions and lower values are ignored so the counter never decreases.
func (s *Store) raiseMission(idx, value int, out *Outcome) {
	m := &s.state.DailyMissions[idx]
	if m.Completed {
		return
	}
	value = min(value, m.Target)
	if value <= m.Current {
		return
	}
	m.Current = value
	if m.Current >= m.Target {
		m.Completed = true
		out.CompletedMissions = append(out.CompletedMissions, *m)
	}
}

func (s *Store) missionIndex(id string) int {
	for i, m := range s.state.DailyMissions {
		if m.ID == id {
			return i
		}
	}
	return -1
}
