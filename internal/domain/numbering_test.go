package domain

import (
	"errors"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   SequenceKind
		prefix string
		value  int64
		want   string
	}{
		{SequenceJournal, "", 1, "JE-2025-000001"},
		{SequenceBill, "", 42, "BILL-2025-0042"},
		{SequenceInvoice, "ACME", 7, "ACME-2025-0007"},
		{SequenceInvoice, "", 7, "INV-2025-0007"},
		{SequencePurchaseOrder, "", 12, "PO-2025-0012"},
		{SequenceVendor, "", 3, "VEN-2025-0003"},
		{SequenceBill, "", 12345, "BILL-2025-12345"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := FormatNumber(tt.kind, tt.prefix, 2025, tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatNumberUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := FormatNumber(SequenceKind("receipt"), "", 2025, 1)
	if !errors.Is(err, ErrUnknownSequenceKind) {
		t.Fatalf("expected ErrUnknownSequenceKind, got %v", err)
	}
}
