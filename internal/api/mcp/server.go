// Package mcp exposes the ticket board to agent runtimes as callable tools
// and readable resources.
//
// The server runs in one of two mutually exclusive modes fixed at
// construction: public mode, where every tool takes an explicit
// organization_id argument, and authenticated mode, where the organization
// is derived from the verified bearer identity carried in the request
// context. One server instance never mixes the two.
package mcp

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-board/internal/auth"
	"github.com/spec-kit/ticket-board/internal/config"
	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/service"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

// Server wraps the MCP server with the ticket service and mode.
type Server struct {
	mcp      *server.MCPServer
	service  *service.TicketService
	verifier auth.Verifier
	mode     config.MCPMode
	logger   *zap.Logger
}

// Dependencies bundles what the server needs. Verifier is required only in
// authenticated mode.
type Dependencies struct {
	Service  *service.TicketService
	Verifier auth.Verifier
	Logger   *zap.Logger
}

// NewServer builds the MCP server and registers every tool and resource
// for the configured mode.
func NewServer(name, version string, mode config.MCPMode, deps Dependencies) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, true),
			server.WithRecovery(),
		),
		service:  deps.Service,
		verifier: deps.Verifier,
		mode:     mode,
		logger:   deps.Logger,
	}

	s.registerTools()
	s.registerResources()
	return s
}

// Handler returns the streamable HTTP handler for mounting. In
// authenticated mode the bearer credential is verified per request and the
// resulting identity stored in the request context before tool dispatch.
func (s *Server) Handler() http.Handler {
	opts := []server.StreamableHTTPOption{}
	if s.mode == config.MCPModeAuthenticated {
		opts = append(opts, server.WithHTTPContextFunc(s.authContext))
	}
	return server.NewStreamableHTTPServer(s.mcp, opts...)
}

// authContext verifies the Authorization header and attaches the identity.
// Verification failure leaves the context untouched; tools then reject the
// call, which keeps the failure mode closed without special transport
// handling.
func (s *Server) authContext(ctx context.Context, r *http.Request) context.Context {
	authHeader := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ctx
	}
	identity, err := s.verifier.Verify(ctx, strings.TrimSpace(authHeader[len(prefix):]))
	if err != nil {
		s.logger.Warn("bearer verification failed", zap.Error(err))
		return ctx
	}
	return auth.WithIdentity(ctx, identity)
}

// organizationID resolves the tenant for a tool call according to the mode.
func (s *Server) organizationID(ctx context.Context, explicit string) (string, error) {
	if s.mode == config.MCPModePublic {
		if explicit == "" {
			return "", apperrors.NewValidationError("organization_id required", nil)
		}
		return explicit, nil
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return "", apperrors.NewUnauthorized("authentication required")
	}
	return identity.OrganizationID, nil
}

// visibleOrganizations returns the tenants the caller may enumerate. Public
// mode exposes every organization; authenticated mode exposes only the
// caller's own, and rejects calls carrying no verified identity.
func (s *Server) visibleOrganizations(ctx context.Context) ([]domain.Organization, error) {
	if s.mode == config.MCPModePublic {
		return s.service.ListOrganizations(ctx)
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	org, err := s.service.GetOrganization(ctx, identity.OrganizationID)
	if apperrors.IsNotFound(err) {
		return []domain.Organization{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []domain.Organization{*org}, nil
}
