package domain

import "errors"

// Role is the access tier carried in a caller's token.
type Role string

const (
	// RoleAdmin manages the chart of accounts and periods
	RoleAdmin Role = "admin"

	// RoleApprover may approve bills, send invoices and post journals
	RoleApprover Role = "approver"

	// RoleClerk creates and edits drafts and records payments
	RoleClerk Role = "clerk"

	// RoleViewer can only read
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleClerk:    2,
	RoleApprover: 3,
	RoleAdmin:    4,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Allows reports whether r meets the minimum tier.
func (r Role) Allows(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
