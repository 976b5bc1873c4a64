package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionDeposit          TransactionType = "deposit"
	TransactionInterest         TransactionType = "interest"
	TransactionBonus            TransactionType = "bonus"
	TransactionRealMoneyDeposit TransactionType = "real_money_deposit"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionInterest, TransactionBonus, TransactionRealMoneyDeposit:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown transaction types
func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := TransactionType(s)
	if !v.Valid() {
		return fmt.Errorf("unknown transaction type %q", s)
	}
	*t = v
	return nil
}

// BankTransaction is an immutable ledger entry. Negative amounts are withdrawals.
type BankTransaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

// IsWithdrawal reports whether the entry debits the balance
func (tx BankTransaction) IsWithdrawal() bool {
	return tx.Amount.IsNegative()
}

// NotificationType classifies family notifications
type NotificationType string

const (
	NotificationMilestone   NotificationType = "milestone"
	NotificationAchievement NotificationType = "achievement"
	NotificationGoalReached NotificationType = "goal_reached"
)

// Valid reports whether t is one of the known notification types
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMilestone, NotificationAchievement, NotificationGoalReached:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown notification types
func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := NotificationType(s)
	if !v.Valid() {
		return fmt.Errorf("unknown notification type %q", s)
	}
	*t = v
	return nil
}

// FamilyNotification is shown on the parent dashboard
type FamilyNotification struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Amount  decimal.Decimal  `json:"amount"`
	Date    time.Time        `json:"date"`
	Type    NotificationType `json:"type"`
	Read    bool             `json:"read"`
}

// Achievement is a one-way unlockable badge
type Achievement struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Emoji        string     `json:"emoji"`
	Unlocked     bool       `json:"unlocked"`
	DateUnlocked *time.Time `json:"dateUnlocked,omitempty"`
}
