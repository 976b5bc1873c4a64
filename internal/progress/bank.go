package progress

import (
	"fmt"
	"strings"

	"coinzy/internal/catalog"
	"coinzy/internal/models"

	"github.com/shopspring/decimal"
)

const coinDepositDescription = "Deposit to the piggy bank"

// DepositRealMoney credits money the child brought to the family bank
func (s *Store) DepositRealMoney(amount decimal.Decimal, description string) (*Outcome, error) {
	description, err := validateMovement(amount, description)
	if err != nil {
		return nil, err
	}

	out := s.newOutcome()
	s.credit(amount, models.TransactionRealMoneyDeposit, description, true, out)
	return s.finish(out), nil
}

// DepositCoins credits virtual coins earned in the game
func (s *Store) DepositCoins(amount decimal.Decimal) (*Outcome, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, amount)
	}

	out := s.newOutcome()
	s.credit(amount, models.TransactionDeposit, coinDepositDescription, true, out)
	return s.finish(out), nil
}

// GrantBonus credits a reward given by a parent
func (s *Store) GrantBonus(amount decimal.Decimal, description string) (*Outcome, error) {
	description, err := validateMovement(amount, description)
	if err != nil {
		return nil, err
	}

	out := s.newOutcome()
	s.credit(amount, models.TransactionBonus, description, false, out)
	return s.finish(out), nil
}

// ApplyInterest credits interest on the current balance at the family's rate, rounded to
// cents. Nothing is recorded when the interest rounds to zero.
func (s *Store) ApplyInterest() (*Outcome, error) {
	out := s.newOutcome()
	interest := s.state.BankBalance.Mul(s.state.InterestRate).Round(2)
	if !interest.IsPositive() {
		return out, nil
	}

	rate := s.state.InterestRate.Mul(decimal.NewFromInt(100)).String()
	s.credit(interest, models.TransactionInterest, fmt.Sprintf("Interest at %s%%", rate), false, out)
	return s.finish(out), nil
}

// WithdrawRealMoney debits money the child spent. The balance is checked before anything
// changes, so a rejected withdrawal leaves the ledger untouched.
func (s *Store) WithdrawRealMoney(amount decimal.Decimal, description string) (*Outcome, error) {
	description, err := validateMovement(amount, description)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(s.state.BankBalance) {
		return nil, fmt.Errorf("%w: requested %s, balance %s", ErrInsufficientBalance, amount, s.state.BankBalance)
	}

	out := s.newOutcome()
	tx := models.BankTransaction{
		ID:          s.newID(),
		Amount:      amount.Neg(),
		Type:        models.TransactionRealMoneyDeposit,
		Date:        s.now(),
		Description: "Spending: " + description,
	}
	s.state.BankBalance = s.state.BankBalance.Sub(amount)
	s.appendTransaction(tx)
	out.Transaction = &tx
	return s.finish(out), nil
}

// SetSavingsGoal replaces the savings target. The goal must be above the current balance;
// past deposits are not re-evaluated against it.
func (s *Store) SetSavingsGoal(goal decimal.Decimal) (*Outcome, error) {
	if !goal.IsPositive() {
		return nil, fmt.Errorf("%w: savings goal must be positive, got %s", ErrInvalidArgument, goal)
	}
	if !goal.GreaterThan(s.state.BankBalance) {
		return nil, fmt.Errorf("%w: savings goal %s must exceed balance %s", ErrInvalidArgument, goal, s.state.BankBalance)
	}
	s.state.SavingsGoal = goal
	return s.newOutcome(), nil
}

// credit adds money, records the transaction and reacts to thresholds crossed
func (s *Store) credit(amount decimal.Decimal, typ models.TransactionType, description string, countsAsSaving bool, out *Outcome) {
	before := s.state.BankBalance
	after := before.Add(amount)

	tx := models.BankTransaction{
		ID:          s.newID(),
		Amount:      amount,
		Type:        typ,
		Date:        s.now(),
		Description: description,
	}
	s.state.BankBalance = after
	s.appendTransaction(tx)
	out.Transaction = &tx

	if countsAsSaving {
		s.advanceMetric(catalog.MissionSavings, int(amount.Floor().IntPart()), out)
	}
	s.notifyThresholds(before, after, description, out)
	s.evaluateAchievements(out)
}

// appendTransaction keeps the ledger newest first
func (s *Store) appendTransaction(tx models.BankTransaction) {
	s.state.Transactions = append([]models.BankTransaction{tx}, s.state.Transactions...)
}

func validateMovement(amount decimal.Decimal, description string) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, amount)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}
	return description, nil
}
