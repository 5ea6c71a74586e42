package auth

import "context"

// Identity is a verified session: the member, their organization (tenant),
// and the provider session id. Every scoped operation downstream receives
// the organization id from here, never from request payloads.
type Identity struct {
	MemberID       string
	OrganizationID string
	SessionID      string
}

// Verifier checks a bearer credential against the identity provider.
// Implementations fail closed: any ambiguity, network failure, or
// malformed credential yields an error, never a partial identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

type contextKey int

const identityContextKey contextKey = iota

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the verified identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
