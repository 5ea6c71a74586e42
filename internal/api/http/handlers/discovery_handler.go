package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-board/internal/auth"
)

// DiscoveryHandler serves OAuth protected-resource metadata so agent
// clients can locate the authorization server. Served unauthenticated.
type DiscoveryHandler struct {
	baseURL        string
	providerDomain string
}

// NewDiscoveryHandler returns a new handler instance.
func NewDiscoveryHandler(baseURL, providerDomain string) *DiscoveryHandler {
	return &DiscoveryHandler{baseURL: baseURL, providerDomain: providerDomain}
}

// ProtectedResource GET /.well-known/oauth-protected-resource.
func (h *DiscoveryHandler) ProtectedResource(c *fiber.Ctx) error {
	return c.JSON(auth.NewProtectedResourceMetadata(h.baseURL, h.providerDomain))
}
