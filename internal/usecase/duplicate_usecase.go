package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/iho/gobooks/internal/domain"
)

// DuplicateUseCase detects bills that repeat an existing vendor invoice.
type DuplicateUseCase struct {
	billRepo BillRepository
	scorer   domain.SimilarityScorer
}

// NewDuplicateUseCase creates a new DuplicateUseCase. A nil scorer selects
// the default weighted scorer.
func NewDuplicateUseCase(billRepo BillRepository, scorer domain.SimilarityScorer) *DuplicateUseCase {
	if scorer == nil {
		scorer = domain.NewWeightedScorer()
	}
	return &DuplicateUseCase{billRepo: billRepo, scorer: scorer}
}

// CheckForDuplicateBill runs the exact then the fuzzy match. The result is
// advisory and not transactional with any later insert.
func (uc *DuplicateUseCase) CheckForDuplicateBill(ctx context.Context, scope domain.Scope, query domain.DuplicateQuery) (*domain.DuplicateCheckResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.RequireField("vendor_id", query.VendorID); err != nil {
		return nil, err
	}

	result := &domain.DuplicateCheckResult{Confidence: domain.DuplicateConfidenceNone}
	seen := make(map[string]bool)

	// High confidence: same vendor invoice number.
	if number := domain.NormalizeVendorInvoiceNumber(query.VendorInvoiceNumber); number != "" {
		exact, err := uc.billRepo.FindByVendorInvoiceNumber(ctx, scope.OrganizationID, query.VendorID, number, query.ExcludeID)
		if err != nil {
			return nil, fmt.Errorf("exact duplicate lookup: %w", err)
		}
		for _, b := range exact {
			seen[b.ID] = true
			result.Matches = append(result.Matches, newDuplicateMatch(b, domain.DuplicateReasonInvoiceNumber, 1))
		}
		if len(exact) > 0 {
			result.IsDuplicate = true
			result.Confidence = domain.DuplicateConfidenceHigh
		}
	}

	// Medium confidence: amount and date close to an existing bill.
	if query.Amount.IsPositive() && !query.BillDate.IsZero() {
		slack := query.Amount.Mul(domain.DuplicateAmountTolerance)
		similar, err := uc.billRepo.FindSimilar(ctx, scope.OrganizationID, query.VendorID,
			query.Amount.Sub(slack), query.Amount.Add(slack),
			query.BillDate.Add(-domain.DuplicateDateWindow), query.BillDate.Add(domain.DuplicateDateWindow),
			query.ExcludeID)
		if err != nil {
			return nil, fmt.Errorf("fuzzy duplicate lookup: %w", err)
		}

		reference := domain.DuplicateCandidate{Amount: query.Amount, Date: query.BillDate}
		var fuzzy []domain.DuplicateMatch
		for _, b := range similar {
			if seen[b.ID] || b.Status == domain.DocumentStatusCancelled {
				continue
			}
			candidate := domain.DuplicateCandidate{Amount: b.Total, Date: b.IssueDate}
			if !domain.WithinFuzzyWindow(query, candidate) {
				continue
			}
			fuzzy = append(fuzzy, newDuplicateMatch(b, domain.DuplicateReasonAmountDate, uc.scorer.Score(reference, candidate)))
		}

		sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].Score > fuzzy[j].Score })
		result.Matches = append(result.Matches, fuzzy...)

		if len(fuzzy) > 0 && result.Confidence == domain.DuplicateConfidenceNone {
			result.IsDuplicate = true
			result.Confidence = domain.DuplicateConfidenceMedium
		}
	}

	return result, nil
}

func newDuplicateMatch(b *domain.Bill, reason domain.DuplicateReason, score float64) domain.DuplicateMatch {
	return domain.DuplicateMatch{
		BillID:              b.ID,
		Number:              b.Number,
		VendorInvoiceNumber: b.VendorInvoiceNumber,
		Total:               b.Total,
		IssueDate:           b.IssueDate,
		Status:              b.Status,
		Reason:              reason,
		Score:               score,
	}
}

// DuplicateBillError blocks a bill creation on a high-confidence match.
type DuplicateBillError struct {
	Result *domain.DuplicateCheckResult
}

func (e *DuplicateBillError) Error() string {
	if e.Result != nil && len(e.Result.Matches) > 0 {
		m := e.Result.Matches[0]
		return fmt.Sprintf("bill duplicates %s (vendor invoice %s, total %s)", m.Number, m.VendorInvoiceNumber, m.Total.StringFixed(2))
	}
	return domain.ErrDuplicateBill.Error()
}

func (e *DuplicateBillError) Unwrap() error {
	return domain.ErrDuplicateBill
}
