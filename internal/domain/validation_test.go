package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Office Supplies"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    string
		wantErr bool
	}{
		{"1000", false},
		{"6000.10", false},
		{"EXP-TRAVEL", false},
		{"", true},
		{" 10 00", true},
		{"-100", true},
		{strings.Repeat("1", MaxAccountCodeLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateAccountCode(tt.code)
			if tt.wantErr && !errors.Is(err, ErrInvalidAccountCode) {
				t.Fatalf("expected ErrInvalidAccountCode, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDocumentAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateDocumentAmount(decimal.NewFromInt(500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tooLarge := decimal.RequireFromString(MaxDocumentAmount).Add(decimal.NewFromInt(1))
	if err := ValidateDocumentAmount(tooLarge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidatePrefix(t *testing.T) {
	t.Parallel()

	if err := ValidatePrefix("ACME"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePrefix("acme"); !errors.Is(err, ErrInvalidPrefix) {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, err := ValidatePagination(0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", limit)
	}
}
