package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// LineItemInput is one requested document line.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	AccountID   *string
}

// TaxInput is one requested tax row.
type TaxInput struct {
	Name       string
	Percentage decimal.Decimal
}

// setDocumentLines validates and replaces the line items and taxes of d,
// recomputing its totals.
func setDocumentLines(idGen IDGenerator, d *domain.Document, items []LineItemInput, taxes []TaxInput) error {
	lineItems := make([]domain.LineItem, len(items))
	for i, in := range items {
		lineItems[i] = domain.LineItem{
			ID:          idGen.Generate(),
			DocumentID:  d.ID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			AccountID:   in.AccountID,
		}
	}

	taxLines := make([]domain.TaxLine, len(taxes))
	for i, in := range taxes {
		taxLines[i] = domain.TaxLine{
			ID:         idGen.Generate(),
			DocumentID: d.ID,
			Name:       strings.TrimSpace(in.Name),
			Percentage: in.Percentage,
		}
	}

	if err := domain.ValidateLines(lineItems, taxLines); err != nil {
		return err
	}

	d.SetLines(lineItems, taxLines)

	return domain.ValidateDocumentAmount(d.Total)
}

// editDocumentLines applies an edit's lines and taxes. Line items replace
// both sets; taxes alone are replaced over the current line items. Nil for
// both leaves the document untouched.
func editDocumentLines(idGen IDGenerator, d *domain.Document, items []LineItemInput, taxes []TaxInput) error {
	switch {
	case items != nil:
		return setDocumentLines(idGen, d, items, taxes)
	case taxes != nil:
		current := make([]LineItemInput, len(d.LineItems))
		for i, li := range d.LineItems {
			current[i] = LineItemInput{
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   li.UnitPrice,
				AccountID:   li.AccountID,
			}
		}
		return setDocumentLines(idGen, d, current, taxes)
	}
	return nil
}

// checkReference maps a failed or negative master-data lookup to notFound.
func checkReference(ok bool, err error, notFound error, id string) error {
	if err != nil {
		return fmt.Errorf("master data lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func documentDetails(d *domain.Document) domain.JSON {
	return domain.JSON{
		"number":      d.Number,
		"status":      string(d.Status),
		"subtotal":    d.Subtotal.StringFixed(2),
		"tax_amount":  d.TaxAmount.StringFixed(2),
		"total":       d.Total.StringFixed(2),
		"amount_paid": d.AmountPaid.StringFixed(2),
		"amount_due":  d.AmountDue.StringFixed(2),
	}
}

func statusDetails(from, to domain.DocumentStatus) domain.JSON {
	return domain.JSON{"from": string(from), "to": string(to)}
}

func normalizeDocumentFilter(scope domain.Scope, filter DocumentFilter) DocumentFilter {
	filter.OrganizationID = scope.OrganizationID
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return filter
}

func logInvalidation(ctx context.Context, rt Runtime, orgID string) {
	if err := rt.Invalidator.Invalidate(ctx, orgID); err != nil {
		rt.Logger.Warn().Err(err).Str("org_id", orgID).Msg("report cache invalidation failed")
	}
}
