package domain

import "strings"

// Scope identifies the organization and actor an operation runs for.
// It is resolved by the caller and passed explicitly to every use case.
type Scope struct {
	OrganizationID string
	ActorID        string
}

// Validate rejects a scope without an organization.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.OrganizationID) == "" {
		return ErrMissingOrganization
	}
	return nil
}
