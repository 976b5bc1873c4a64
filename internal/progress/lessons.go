package progress

import (
	"fmt"

	"coinzy/internal/catalog"
)

// CompleteQuestion marks a lesson finished. Completing an already finished lesson is a no-op.
func (s *Store) CompleteQuestion(questionID string) (*Outcome, error) {
	idx := s.questionIndex(questionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: question %q", ErrNotFound, questionID)
	}

	out := s.newOutcome()
	s.completeQuestionAt(idx, out)
	return s.finish(out), nil
}

// AnswerQuestion checks the chosen option. A correct answer on an unfinished lesson grants
// its XP reward and completes it.
func (s *Store) AnswerQuestion(questionID string, option int) (*Outcome, error) {
	idx := s.questionIndex(questionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: question %q", ErrNotFound, questionID)
	}
	q := s.state.Questions[idx]
	if option < 0 || option >= len(q.Options) {
		return nil, fmt.Errorf("%w: option %d out of range for question %q", ErrInvalidArgument, option, questionID)
	}

	chosen := q.Options[option]
	out := s.newOutcome()
	out.Answer = &AnswerResult{
		QuestionID: q.ID,
		Option:     option,
		Correct:    chosen.IsCorrect,
		Feedback:   chosen.Feedback,
	}

	if chosen.IsCorrect && !q.Completed {
		s.grantXP(q.XPReward, out)
		s.completeQuestionAt(idx, out)
	}
	return s.finish(out), nil
}

// SetCurrentQuestion moves the lesson cursor
func (s *Store) SetCurrentQuestion(index int) (*Outcome, error) {
	if index < 0 || index >= len(s.state.Questions) {
		return nil, fmt.Errorf("%w: question index %d out of range", ErrInvalidArgument, index)
	}
	s.state.CurrentQuestionIndex = index
	return s.newOutcome(), nil
}

func (s *Store) completeQuestionAt(idx int, out *Outcome) {
	q := &s.state.Questions[idx]
	if q.Completed {
		return
	}
	q.Completed = true
	out.QuestionCompleted = q.ID

	completed := s.state.CompletedQuestions()
	for i, m := range s.state.DailyMissions {
		if s.catalog.MissionMetric(m.ID) == catalog.MissionLessons {
			s.raiseMission(i, completed, out)
		}
	}
	s.evaluateAchievements(out)
}

func (s *Store) questionIndex(id string) int {
	for i, q := range s.state.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
