package auth

// ProtectedResourceMetadata is the payload served at
// /.well-known/oauth-protected-resource so agent clients can discover the
// authorization server for this resource.
type ProtectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
	ScopesSupported      []string `json:"scopes_supported"`
}

// NewProtectedResourceMetadata builds the discovery document for a resource
// base URL and the identity provider domain authorized to issue tokens.
func NewProtectedResourceMetadata(resourceBaseURL, providerDomain string) ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:             resourceBaseURL,
		AuthorizationServers: []string{providerDomain},
		ScopesSupported:      []string{"openid", "email", "profile"},
	}
}
