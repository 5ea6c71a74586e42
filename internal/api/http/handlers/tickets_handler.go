package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-board/internal/api/dto"
	"github.com/spec-kit/ticket-board/internal/auth"
	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/service"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

// TicketsHandler manages the tenant-scoped ticket endpoints. The board
// convention is "mutate, then return the full refreshed list".
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.UserContext(), identity.OrganizationID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTickets(tickets))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Assignee:    req.Assignee,
		Description: req.Description,
	}
	if _, err := h.service.CreateTicket(c.UserContext(), identity.OrganizationID, input); err != nil {
		return err
	}
	return h.refreshedList(c, identity.OrganizationID)
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"), identity.OrganizationID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	update := domain.TicketUpdate{
		Title:       req.Title,
		Assignee:    req.Assignee,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		update.Status = &status
	}
	if _, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), identity.OrganizationID, update); err != nil {
		return err
	}
	return h.refreshedList(c, identity.OrganizationID)
}

// UpdateStatus POST /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if _, err := h.service.UpdateTicketStatus(c.UserContext(), c.Params("id"), identity.OrganizationID, domain.TicketStatus(req.Status)); err != nil {
		return err
	}
	return h.refreshedList(c, identity.OrganizationID)
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), c.Params("id"), identity.OrganizationID); err != nil {
		return err
	}
	return h.refreshedList(c, identity.OrganizationID)
}

// SearchTickets GET /api/tickets/search.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input := service.TicketSearchInput{
		Status:        optionalQuery(c, "status"),
		Assignee:      optionalQuery(c, "assignee"),
		TitleContains: optionalQuery(c, "title_contains"),
	}
	tickets, err := h.service.SearchTickets(c.UserContext(), identity.OrganizationID, input)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTickets(tickets))
}

// Statistics GET /api/tickets/statistics.
func (h *TicketsHandler) Statistics(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.TicketStatistics(c.UserContext(), identity.OrganizationID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromStatistics(stats, identity.OrganizationID))
}

func (h *TicketsHandler) refreshedList(c *fiber.Ctx, orgID string) error {
	tickets, err := h.service.ListTickets(c.UserContext(), orgID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTickets(tickets))
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := c.Query(key)
	if val == "" {
		return nil
	}
	return &val
}
