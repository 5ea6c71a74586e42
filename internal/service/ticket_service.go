package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/repository"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

// TicketService is the per-request facade over the repositories. It holds
// no state beyond its dependencies; every call takes the already-verified
// organization id explicitly.
type TicketService struct {
	tickets       repository.TicketRepository
	organizations repository.OrganizationRepository
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	OrganizationRepo repository.OrganizationRepository
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Assignee    string
	Description *string
}

// TicketSearchInput describes conjunctive search filters.
type TicketSearchInput struct {
	Status        *string
	Assignee      *string
	TitleContains *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		organizations: deps.OrganizationRepo,
	}
}

// ListTickets returns the organization's board in insertion order,
// provisioning the organization if this is its first visit.
func (s *TicketService) ListTickets(ctx context.Context, orgID string) ([]domain.Ticket, error) {
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.tickets.ListByOrganization(ctx, orgID)
}

// GetTicket fetches one ticket scoped to the organization. A ticket owned
// by another tenant is indistinguishable from one that does not exist.
func (s *TicketService) GetTicket(ctx context.Context, id, orgID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return ticket, nil
}

// CreateTicket validates and stores a new ticket in backlog.
func (s *TicketService) CreateTicket(ctx context.Context, orgID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	assignee := strings.TrimSpace(input.Assignee)
	if title == "" || assignee == "" {
		return nil, apperrors.NewValidationError("title and assignee required", nil)
	}
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Title:          title,
		Assignee:       assignee,
		Description:    input.Description,
		Status:         domain.TicketStatusBacklog,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket applies a partial update; only supplied fields change.
func (s *TicketService) UpdateTicket(ctx context.Context, id, orgID string, update domain.TicketUpdate) (*domain.Ticket, error) {
	if update.Status != nil && !domain.ValidStatus(*update.Status) {
		return nil, invalidStatusError(*update.Status)
	}
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Update(ctx, id, orgID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return ticket, nil
}

// UpdateTicketStatus moves a ticket to another board column. The status is
// validated against the enum before touching storage; there is no enforced
// transition graph between the four statuses.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, id, orgID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(status) {
		return nil, invalidStatusError(status)
	}
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.UpdateStatus(ctx, id, orgID, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket removes a ticket permanently.
func (s *TicketService) DeleteTicket(ctx context.Context, id, orgID string) error {
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return err
	}
	deleted, err := s.tickets.Delete(ctx, id, orgID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("ticket", nil)
	}
	return nil
}

// SearchTickets filters the organization's board. Filters are conjunctive;
// a status filter outside the enum is rejected up front.
func (s *TicketService) SearchTickets(ctx context.Context, orgID string, input TicketSearchInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Assignee:      input.Assignee,
		TitleContains: input.TitleContains,
	}
	if input.Status != nil {
		status := domain.TicketStatus(*input.Status)
		if !domain.ValidStatus(status) {
			return nil, invalidStatusError(status)
		}
		filter.Status = &status
	}
	if err := s.ensureOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.tickets.Search(ctx, orgID, filter)
}

// TicketStatistics aggregates the organization's board. Distribution maps
// carry only the values actually observed.
func (s *TicketService) TicketStatistics(ctx context.Context, orgID string) (*domain.TicketStatistics, error) {
	tickets, err := s.ListTickets(ctx, orgID)
	if err != nil {
		return nil, err
	}

	stats := &domain.TicketStatistics{
		TotalTickets:         len(tickets),
		StatusDistribution:   make(map[domain.TicketStatus]int),
		AssigneeDistribution: make(map[string]int),
	}
	for _, ticket := range tickets {
		stats.StatusDistribution[ticket.Status]++
		stats.AssigneeDistribution[ticket.Assignee]++
	}
	return stats, nil
}

// ListOrganizations returns every known tenant.
func (s *TicketService) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.organizations.List(ctx)
}

// GetOrganization fetches one tenant by id.
func (s *TicketService) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", nil)
		}
		return nil, err
	}
	return org, nil
}

// ensureOrganization transparently provisions a first-time tenant. Safe to
// call on every request; an existing tenant performs no write.
func (s *TicketService) ensureOrganization(ctx context.Context, orgID string) error {
	if strings.TrimSpace(orgID) == "" {
		return apperrors.NewValidationError("organization id required", nil)
	}
	_, err := s.organizations.GetOrCreate(ctx, orgID, domain.DefaultOrganizationName)
	return err
}

func invalidStatusError(status domain.TicketStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"status":  string(status),
		"allowed": domain.Statuses(),
	})
}
