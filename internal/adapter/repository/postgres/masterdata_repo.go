package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// MasterDataDirectory implements usecase.MasterDataDirectory over the
// organization, vendor, client, currency and purchase order tables owned by
// other services.
type MasterDataDirectory struct {
	db DBTX
}

// NewMasterDataDirectory creates a new MasterDataDirectory.
func NewMasterDataDirectory(db DBTX) *MasterDataDirectory {
	return &MasterDataDirectory{db: db}
}

// VendorExists reports whether the vendor belongs to the organization.
func (d *MasterDataDirectory) VendorExists(ctx context.Context, orgID, vendorID string) (bool, error) {
	return d.exists(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE organization_id = $1 AND id = $2)`, orgID, vendorID)
}

// ClientExists reports whether the client belongs to the organization.
func (d *MasterDataDirectory) ClientExists(ctx context.Context, orgID, clientID string) (bool, error) {
	return d.exists(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE organization_id = $1 AND id = $2)`, orgID, clientID)
}

// CurrencyExists reports whether the currency is enabled for the organization.
func (d *MasterDataDirectory) CurrencyExists(ctx context.Context, orgID, currencyID string) (bool, error) {
	return d.exists(ctx, `SELECT EXISTS (SELECT 1 FROM currencies WHERE organization_id = $1 AND id = $2)`, orgID, currencyID)
}

// PurchaseOrderExists reports whether the purchase order belongs to the organization.
func (d *MasterDataDirectory) PurchaseOrderExists(ctx context.Context, orgID, purchaseOrderID string) (bool, error) {
	return d.exists(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE organization_id = $1 AND id = $2)`, orgID, purchaseOrderID)
}

// InvoicePrefix returns the organization's invoice prefix, or "" when unset.
func (d *MasterDataDirectory) InvoicePrefix(ctx context.Context, orgID string) (string, error) {
	var prefix *string
	err := d.db.QueryRow(ctx, `SELECT invoice_prefix FROM organizations WHERE id = $1`, orgID).Scan(&prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil || prefix == nil {
		return "", err
	}

	return *prefix, nil
}

// OrganizationIDs lists active organizations.
func (d *MasterDataDirectory) OrganizationIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.Query(ctx, `SELECT id FROM organizations WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (d *MasterDataDirectory) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := d.db.QueryRow(ctx, query, args...).Scan(&ok)

	return ok, err
}
