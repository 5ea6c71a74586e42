package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spec-kit/ticket-board/internal/api/dto"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

const jsonMIMEType = "application/json"

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		"organizations://all",
		"All organizations",
		mcp.WithResourceDescription("Every organization known to the board"),
		mcp.WithMIMEType(jsonMIMEType),
	), s.readOrganizations)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"tickets://{organization_id}",
		"Organization tickets",
		mcp.WithTemplateDescription("All tickets on one organization's board, in insertion order"),
		mcp.WithTemplateMIMEType(jsonMIMEType),
	), s.readOrganizationTickets)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"tickets://{organization_id}/{ticket_id}",
		"Single ticket",
		mcp.WithTemplateDescription("One ticket on an organization's board"),
		mcp.WithTemplateMIMEType(jsonMIMEType),
	), s.readSingleTicket)
}

func (s *Server) readOrganizations(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	orgs, err := s.visibleOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	return resourceJSON(request.Params.URI, dto.FromOrganizations(orgs))
}

func (s *Server) readOrganizationTickets(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	orgID, _, err := s.ticketURIParts(ctx, request.Params.URI)
	if err != nil {
		return nil, err
	}
	tickets, err := s.service.ListTickets(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return resourceJSON(request.Params.URI, dto.FromTickets(tickets).Tickets)
}

func (s *Server) readSingleTicket(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	orgID, ticketID, err := s.ticketURIParts(ctx, request.Params.URI)
	if err != nil {
		return nil, err
	}
	if ticketID == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}
	ticket, err := s.service.GetTicket(ctx, ticketID, orgID)
	if err != nil {
		return nil, err
	}
	return resourceJSON(request.Params.URI, dto.FromTicket(ticket))
}

// ticketURIParts parses tickets://{organization_id}[/{ticket_id}]. In
// authenticated mode the URI must name the caller's own organization;
// anything else reads as unauthorized, never as another tenant's data.
func (s *Server) ticketURIParts(ctx context.Context, uri string) (orgID, ticketID string, err error) {
	rest, ok := strings.CutPrefix(uri, "tickets://")
	if !ok || rest == "" {
		return "", "", apperrors.NewValidationError("malformed ticket resource uri", nil)
	}
	orgID, ticketID, _ = strings.Cut(rest, "/")

	resolved, err := s.organizationID(ctx, orgID)
	if err != nil {
		return "", "", err
	}
	if resolved != orgID {
		return "", "", apperrors.NewUnauthorized("resource outside caller organization")
	}
	return orgID, ticketID, nil
}

func resourceJSON(uri string, v any) ([]mcp.ResourceContents, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(payload),
		},
	}, nil
}
