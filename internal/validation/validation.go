// Package validation checks request input before it reaches the progress engine.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	// MaxDescriptionLength bounds transaction descriptions, in characters
	MaxDescriptionLength = 120
	// MaxAmountDecimals is the finest money unit accepted (cents)
	MaxAmountDecimals = 2
)

// MaxAmount caps a single bank movement
var MaxAmount = decimal.NewFromInt(1_000_000)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateDescription checks a transaction description and returns it trimmed
func ValidateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ValidationError{Field: "description", Message: "description is required"}
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength),
		}
	}
	return description, nil
}

// ValidateAmount checks a money amount is positive, in whole cents and below MaxAmount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	if !amount.Equal(amount.Truncate(MaxAmountDecimals)) {
		return ValidationError{Field: "amount", Message: "amount must have at most two decimal places"}
	}
	if amount.GreaterThan(MaxAmount) {
		return ValidationError{Field: "amount", Message: "amount is too large"}
	}
	return nil
}

// ParseAmount parses a decimal string such as "12.50" and validates it
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ValidationError{Field: "amount", Message: "amount must be a number"}
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
