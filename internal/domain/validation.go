package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidAccountCode = errors.New("invalid account code")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrInvalidPrefix      = errors.New("invalid document prefix")
	ErrMissingField       = errors.New("required field missing")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MaxAccountCodeLength = 20
	MaxDocumentAmount    = "1000000000000"
)

var (
	accountCodeRegex = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.\-]*$`)
	prefixRegex      = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
)

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateAccountCode validates a chart-of-accounts code such as "1000" or "6000.10".
func ValidateAccountCode(code string) error {
	code = strings.TrimSpace(code)

	if code == "" {
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidAccountCode)
	}

	if len(code) > MaxAccountCodeLength {
		return fmt.Errorf("%w: code exceeds %d characters", ErrInvalidAccountCode, MaxAccountCodeLength)
	}

	if !accountCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidAccountCode, code)
	}

	return nil
}

// ValidateDocumentAmount bounds a document or payment amount.
func ValidateDocumentAmount(amount decimal.Decimal) error {
	maxAmount := decimal.RequireFromString(MaxDocumentAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxDocumentAmount)
	}

	return nil
}

// ValidatePrefix checks an organization invoice prefix.
func ValidatePrefix(prefix string) error {
	if !prefixRegex.MatchString(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	return nil
}

// RequireField returns ErrMissingField naming field when value is blank.
func RequireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
