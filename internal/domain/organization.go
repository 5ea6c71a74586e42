package domain

import "time"

// DefaultOrganizationName is assigned when a previously unseen tenant is
// provisioned on first authenticated access.
const DefaultOrganizationName = "Default Organization"

// Organization is a tenant. Its id is assigned by the identity provider and
// rows are created lazily on first access, never deleted by this service.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
