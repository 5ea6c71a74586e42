package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spec-kit/ticket-board/internal/api/dto"
	"github.com/spec-kit/ticket-board/internal/config"
	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/service"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(s.toolDef("list_tickets", "List all tickets for an organization"),
		s.handleListTickets)
	s.mcp.AddTool(s.toolDef("get_ticket", "Get a specific ticket by id",
		mcp.WithString("ticket_id", mcp.Required(), mcp.Description("Ticket id"))),
		s.handleGetTicket)
	s.mcp.AddTool(s.toolDef("create_ticket", "Create a new ticket on the board",
		mcp.WithString("title", mcp.Required(), mcp.Description("Ticket title")),
		mcp.WithString("assignee", mcp.Required(), mcp.Description("Person the ticket is assigned to")),
		mcp.WithString("description", mcp.Description("Optional longer description"))),
		s.handleCreateTicket)
	s.mcp.AddTool(s.toolDef("update_ticket_status", "Move a ticket to another board column",
		mcp.WithString("ticket_id", mcp.Required(), mcp.Description("Ticket id")),
		mcp.WithString("status", mcp.Required(),
			mcp.Description("One of: backlog, in-progress, review, done"))),
		s.handleUpdateTicketStatus)
	s.mcp.AddTool(s.toolDef("delete_ticket", "Delete a ticket from the board",
		mcp.WithString("ticket_id", mcp.Required(), mcp.Description("Ticket id"))),
		s.handleDeleteTicket)
	s.mcp.AddTool(s.toolDef("search_tickets", "Search tickets with conjunctive filters",
		mcp.WithString("status", mcp.Description("Exact status filter")),
		mcp.WithString("assignee", mcp.Description("Case-insensitive exact assignee filter")),
		mcp.WithString("title_contains", mcp.Description("Case-insensitive title substring filter"))),
		s.handleSearchTickets)
	s.mcp.AddTool(s.toolDef("get_ticket_statistics", "Aggregate ticket counts by status and assignee"),
		s.handleTicketStatistics)

	s.mcp.AddTool(mcp.NewTool("list_organizations",
		mcp.WithDescription("List the organizations visible to the caller")),
		s.handleListOrganizations)
	s.mcp.AddTool(s.toolDef("get_organization", "Get a specific organization by id"),
		s.handleGetOrganization)
}

// toolDef builds a tool definition, adding the organization_id argument
// only in public mode. Authenticated-mode tools take no tenant argument at
// all; the tenant comes from the verified bearer identity.
func (s *Server) toolDef(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := []mcp.ToolOption{mcp.WithDescription(description)}
	if s.publicMode() {
		all = append(all, mcp.WithString("organization_id", mcp.Required(),
			mcp.Description("Organization the call is scoped to")))
	}
	all = append(all, opts...)
	return mcp.NewTool(name, all...)
}

func (s *Server) handleListTickets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	tickets, err := s.service.ListTickets(ctx, orgID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromTickets(tickets).Tickets)
}

func (s *Server) handleGetTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	ticketID, err := request.RequireString("ticket_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ticket, err := s.service.GetTicket(ctx, ticketID, orgID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromTicket(ticket))
}

func (s *Server) handleCreateTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	assignee, err := request.RequireString("assignee")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	input := service.TicketCreateInput{Title: title, Assignee: assignee}
	if description := request.GetString("description", ""); description != "" {
		input.Description = &description
	}
	ticket, err := s.service.CreateTicket(ctx, orgID, input)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromTicket(ticket))
}

func (s *Server) handleUpdateTicketStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	ticketID, err := request.RequireString("ticket_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ticket, err := s.service.UpdateTicketStatus(ctx, ticketID, orgID, domain.TicketStatus(status))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromTicket(ticket))
}

func (s *Server) handleDeleteTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	ticketID, err := request.RequireString("ticket_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.service.DeleteTicket(ctx, ticketID, orgID); err != nil {
		if apperrors.IsNotFound(err) {
			return jsonResult(map[string]bool{"deleted": false})
		}
		return toolError(err), nil
	}
	return jsonResult(map[string]bool{"deleted": true})
}

func (s *Server) handleSearchTickets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	input := service.TicketSearchInput{}
	if status := request.GetString("status", ""); status != "" {
		input.Status = &status
	}
	if assignee := request.GetString("assignee", ""); assignee != "" {
		input.Assignee = &assignee
	}
	if title := request.GetString("title_contains", ""); title != "" {
		input.TitleContains = &title
	}
	tickets, err := s.service.SearchTickets(ctx, orgID, input)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromTickets(tickets).Tickets)
}

func (s *Server) handleTicketStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	stats, err := s.service.TicketStatistics(ctx, orgID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromStatistics(stats, orgID))
}

func (s *Server) handleListOrganizations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgs, err := s.visibleOrganizations(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromOrganizations(orgs))
}

func (s *Server) handleGetOrganization(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, errResult := s.resolveOrg(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	org, err := s.service.GetOrganization(ctx, orgID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(dto.FromOrganization(org))
}

func (s *Server) publicMode() bool {
	return s.mode == config.MCPModePublic
}

// resolveOrg extracts the tenant per the server mode, returning a tool
// error result when it cannot be determined.
func (s *Server) resolveOrg(ctx context.Context, request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	explicit := ""
	if s.publicMode() {
		explicit = request.GetString("organization_id", "")
	}
	orgID, err := s.organizationID(ctx, explicit)
	if err != nil {
		return "", toolError(err)
	}
	return orgID, nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperrors.ToDomainError(err).Message)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
