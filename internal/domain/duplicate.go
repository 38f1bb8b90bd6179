package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Fuzzy duplicate thresholds.
var (
	DuplicateAmountTolerance = decimal.New(1, -2)
	DuplicateDateWindow      = 30 * 24 * time.Hour
)

// DuplicateConfidence grades a duplicate check result.
type DuplicateConfidence string

const (
	DuplicateConfidenceNone   DuplicateConfidence = "none"
	DuplicateConfidenceMedium DuplicateConfidence = "medium"
	DuplicateConfidenceHigh   DuplicateConfidence = "high"
)

// DuplicateReason names the rule that produced a match.
type DuplicateReason string

const (
	DuplicateReasonInvoiceNumber DuplicateReason = "vendor_invoice_number"
	DuplicateReasonAmountDate    DuplicateReason = "amount_and_date"
)

// DuplicateQuery describes the bill being checked.
type DuplicateQuery struct {
	VendorID            string
	VendorInvoiceNumber string
	Amount              decimal.Decimal
	BillDate            time.Time
	ExcludeID           string
}

// DuplicateCandidate is the part of a bill a scorer compares.
type DuplicateCandidate struct {
	Amount decimal.Decimal
	Date   time.Time
}

// DuplicateMatch is an existing bill that looks like the query.
type DuplicateMatch struct {
	BillID              string
	Number              string
	VendorInvoiceNumber string
	Total               decimal.Decimal
	IssueDate           time.Time
	Status              DocumentStatus
	Reason              DuplicateReason
	Score               float64
}

// DuplicateCheckResult is advisory; callers decide whether to block.
type DuplicateCheckResult struct {
	IsDuplicate bool
	Confidence  DuplicateConfidence
	Matches     []DuplicateMatch
}

// SimilarityScorer rates how alike two bills are, from 0 to 1.
type SimilarityScorer interface {
	Score(a, b DuplicateCandidate) float64
}

// WeightedScorer averages amount closeness and date closeness. Inside the
// fuzzy window each factor stays within [0.5, 1].
type WeightedScorer struct {
	AmountWeight float64
	DateWeight   float64
}

// NewWeightedScorer returns the default even weighting.
func NewWeightedScorer() WeightedScorer {
	return WeightedScorer{AmountWeight: 0.5, DateWeight: 0.5}
}

// Score implements SimilarityScorer.
func (s WeightedScorer) Score(a, b DuplicateCandidate) float64 {
	total := s.AmountWeight + s.DateWeight
	if total <= 0 {
		return 0
	}

	score := (s.AmountWeight*amountCloseness(a.Amount, b.Amount) + s.DateWeight*dateCloseness(a.Date, b.Date)) / total

	return clamp01(score)
}

func amountCloseness(a, b decimal.Decimal) float64 {
	base := a.Abs()
	if base.IsZero() {
		if b.IsZero() {
			return 1
		}
		return 0
	}
	ratio, _ := a.Sub(b).Abs().Div(base.Mul(DuplicateAmountTolerance)).Float64()
	return clamp01(1 - ratio/2)
}

func dateCloseness(a, b time.Time) float64 {
	diff := math.Abs(truncateDay(a).Sub(truncateDay(b)).Hours())
	window := DuplicateDateWindow.Hours()
	return clamp01(1 - diff/window/2)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// WithinFuzzyWindow reports whether candidate is within the amount tolerance
// and date window of the query.
func WithinFuzzyWindow(query DuplicateQuery, candidate DuplicateCandidate) bool {
	maxDiff := query.Amount.Abs().Mul(DuplicateAmountTolerance)
	if query.Amount.Sub(candidate.Amount).Abs().GreaterThan(maxDiff) {
		return false
	}
	diff := truncateDay(query.BillDate).Sub(truncateDay(candidate.Date))
	if diff < 0 {
		diff = -diff
	}
	return diff <= DuplicateDateWindow
}
