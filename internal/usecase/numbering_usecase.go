package usecase

import (
	"context"
	"fmt"

	"github.com/iho/gobooks/internal/domain"
)

// NumberingUseCase hands out document numbers to services that own records
// outside the ledger, such as purchase orders and vendors.
type NumberingUseCase struct {
	txManager TransactionManager
	sequences SequenceRepository
	rt        Runtime
}

// NewNumberingUseCase creates a new NumberingUseCase.
func NewNumberingUseCase(txManager TransactionManager, sequences SequenceRepository, rt Runtime) *NumberingUseCase {
	return &NumberingUseCase{txManager: txManager, sequences: sequences, rt: rt.withDefaults()}
}

// Next allocates the next number of kind for the current year.
func (uc *NumberingUseCase) Next(ctx context.Context, scope domain.Scope, kind domain.SequenceKind) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	switch kind {
	case domain.SequencePurchaseOrder, domain.SequenceVendor:
	default:
		// Journal, bill and invoice numbers are allocated with their documents.
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownSequenceKind, kind)
	}

	var number string
	err := inTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		number, err = nextNumber(ctx, tx, uc.sequences, scope.OrganizationID, kind, "", uc.rt.Now())
		return err
	})
	if err != nil {
		return "", err
	}

	return number, nil
}
