package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Persisted snapshots keep money as JSON numbers for existing clients
	decimal.MarshalJSONWithoutQuotes = true
}

// LevelWidth is the number of XP points per level
const LevelWidth = 100

// LevelForXP derives the level from accumulated XP. Level 1 covers [0, 100).
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/LevelWidth + 1
}

// Progress is the per-family aggregate persisted as a single document
type Progress struct {
	XP                   int                  `json:"xp"`
	Level                int                  `json:"level"`
	Streak               int                  `json:"streak"`
	LastActiveDate       *string              `json:"lastActiveDate"`
	Questions            []Question           `json:"questions"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	DailyMissions        []DailyMission       `json:"dailyMissions"`
	BankBalance          decimal.Decimal      `json:"bankBalance"`
	SavingsGoal          decimal.Decimal      `json:"savingsGoal"`
	Transactions         []BankTransaction    `json:"transactions"`
	InterestRate         decimal.Decimal      `json:"interestRate"`
	FamilyNotifications  []FamilyNotification `json:"familyNotifications"`
	Achievements         []Achievement        `json:"achievements"`
}

// LedgerTotal sums every transaction amount
func (p *Progress) LedgerTotal() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range p.Transactions {
		total = total.Add(tx.Amount)
	}
	return total
}

// CompletedQuestions counts questions marked completed
func (p *Progress) CompletedQuestions() int {
	count := 0
	for _, q := range p.Questions {
		if q.Completed {
			count++
		}
	}
	return count
}

// UnreadNotifications returns notifications the parent has not seen yet
func (p *Progress) UnreadNotifications() []FamilyNotification {
	var unread []FamilyNotification
	for _, n := range p.FamilyNotifications {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread
}

// Clone returns a deep copy so callers can mutate without touching the original
func (p *Progress) Clone() *Progress {
	c := *p
	if p.LastActiveDate != nil {
		d := *p.LastActiveDate
		c.LastActiveDate = &d
	}
	c.Questions = make([]Question, len(p.Questions))
	for i, q := range p.Questions {
		q.Options = append([]Option(nil), q.Options...)
		c.Questions[i] = q
	}
	c.DailyMissions = append([]DailyMission(nil), p.DailyMissions...)
	c.Transactions = append([]BankTransaction(nil), p.Transactions...)
	c.FamilyNotifications = append([]FamilyNotification(nil), p.FamilyNotifications...)
	c.Achievements = make([]Achievement, len(p.Achievements))
	for i, a := range p.Achievements {
		if a.DateUnlocked != nil {
			t := *a.DateUnlocked
			a.DateUnlocked = &t
		}
		c.Achievements[i] = a
	}
	return &c
}
