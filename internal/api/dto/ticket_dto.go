package dto

import (
	"time"

	"github.com/spec-kit/ticket-board/internal/domain"
)

// CreateTicketRequest is the POST /api/tickets body.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Assignee    string  `json:"assignee"`
	Description *string `json:"description,omitempty"`
}

// UpdateTicketRequest is the PATCH /api/tickets/:id body. Absent fields are
// left untouched.
type UpdateTicketRequest struct {
	Title       *string `json:"title,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// UpdateStatusRequest is the POST /api/tickets/:id/status body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Assignee    string    `json:"assignee"`
	Status      string    `json:"status"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketListResponse wraps the tenant's full board. Mutating endpoints
// return this refreshed list rather than the single mutated entity.
type TicketListResponse struct {
	Tickets []TicketResponse `json:"tickets"`
}

// StatisticsResponse is the aggregate board summary.
type StatisticsResponse struct {
	TotalTickets         int            `json:"total_tickets"`
	StatusDistribution   map[string]int `json:"status_distribution"`
	AssigneeDistribution map[string]int `json:"assignee_distribution"`
	OrganizationID       string         `json:"organization_id"`
}

// OrganizationResponse is the wire shape of a tenant.
type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromTicket maps a domain ticket to its wire shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Assignee:    ticket.Assignee,
		Status:      string(ticket.Status),
		Description: ticket.Description,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// FromTickets maps a board to its wire shape, never nil.
func FromTickets(tickets []domain.Ticket) TicketListResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, FromTicket(&tickets[i]))
	}
	return TicketListResponse{Tickets: items}
}

// FromStatistics maps board statistics to their wire shape.
func FromStatistics(stats *domain.TicketStatistics, orgID string) StatisticsResponse {
	statuses := make(map[string]int, len(stats.StatusDistribution))
	for status, count := range stats.StatusDistribution {
		statuses[string(status)] = count
	}
	return StatisticsResponse{
		TotalTickets:         stats.TotalTickets,
		StatusDistribution:   statuses,
		AssigneeDistribution: stats.AssigneeDistribution,
		OrganizationID:       orgID,
	}
}

// FromOrganization maps a tenant to its wire shape.
func FromOrganization(org *domain.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

// FromOrganizations maps tenants to their wire shape, never nil.
func FromOrganizations(orgs []domain.Organization) []OrganizationResponse {
	items := make([]OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, FromOrganization(&orgs[i]))
	}
	return items
}
