package progress

import (
	"fmt"

	"coinzy/internal/models"

	"github.com/shopspring/decimal"
)

// Milestones are the fixed balances that notify parents when first reached
var Milestones = []decimal.Decimal{
	decimal.NewFromInt(50),
	decimal.NewFromInt(100),
}

var milestoneMessages = map[string]string{
	"50":  "%s - reached 50 coins! Time for a reward 🎁",
	"100": "%s - reached 100 coins! Amazing achievement 🏆",
}

// MarkNotificationAsRead flags a parent notification as seen
func (s *Store) MarkNotificationAsRead(notificationID string) (*Outcome, error) {
	for i := range s.state.FamilyNotifications {
		n := &s.state.FamilyNotifications[i]
		if n.ID == notificationID {
			n.Read = true
			return s.newOutcome(), nil
		}
	}
	return nil, fmt.Errorf("%w: notification %q", ErrNotFound, notificationID)
}

// notifyThresholds creates one notification per threshold with before < threshold <= after
func (s *Store) notifyThresholds(before, after decimal.Decimal, description string, out *Outcome) {
	crossed := func(threshold decimal.Decimal) bool {
		return before.LessThan(threshold) && after.GreaterThanOrEqual(threshold)
	}

	var created []models.FamilyNotification
	for _, m := range Milestones {
		if !crossed(m) {
			continue
		}
		format, ok := milestoneMessages[m.String()]
		if !ok {
			format = "%s - reached " + m.String() + " coins!"
		}
		created = append(created, models.FamilyNotification{
			ID:      fmt.Sprintf("milestone_%s_%s", m, s.newID()),
			Message: fmt.Sprintf(format, description),
			Amount:  m,
			Date:    s.now(),
			Type:    models.NotificationMilestone,
		})
	}

	goal := s.state.SavingsGoal
	if crossed(goal) {
		created = append(created, models.FamilyNotification{
			ID:      "goal_" + s.newID(),
			Message: fmt.Sprintf("%s - reached the savings goal of %s coins! 🎯", description, goal),
			Amount:  goal,
			Date:    s.now(),
			Type:    models.NotificationGoalReached,
		})
	}

	if len(created) == 0 {
		return
	}
	s.state.FamilyNotifications = append(created, s.state.FamilyNotifications...)
	out.Notifications = append(out.Notifications, created...)
}
