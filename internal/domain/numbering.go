package domain

import "fmt"

// SequenceKind identifies an independent per-organization, per-year counter.
type SequenceKind string

const (
	SequenceJournal       SequenceKind = "journal"
	SequenceBill          SequenceKind = "bill"
	SequenceInvoice       SequenceKind = "invoice"
	SequencePurchaseOrder SequenceKind = "purchase_order"
	SequenceVendor        SequenceKind = "vendor"
)

type sequenceFormat struct {
	prefix string
	width  int
}

var sequenceFormats = map[SequenceKind]sequenceFormat{
	SequenceJournal:       {prefix: "JE", width: 6},
	SequenceBill:          {prefix: "BILL", width: 4},
	SequenceInvoice:       {prefix: "INV", width: 4},
	SequencePurchaseOrder: {prefix: "PO", width: 4},
	SequenceVendor:        {prefix: "VEN", width: 4},
}

// IsValid reports whether k has a known format.
func (k SequenceKind) IsValid() bool {
	_, ok := sequenceFormats[k]
	return ok
}

// FormatNumber renders a counter value as PREFIX-YYYY-NNNN. A non-empty
// prefix overrides the kind's default (organization invoice prefixes).
func FormatNumber(kind SequenceKind, prefix string, year int, value int64) (string, error) {
	f, ok := sequenceFormats[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSequenceKind, kind)
	}
	if prefix == "" {
		prefix = f.prefix
	}
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, f.width, value), nil
}
