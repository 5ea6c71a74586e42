// Package repositorytest provides in-memory repository implementations for
// tests. They mirror the SQL semantics: tenant scoping in every lookup,
// insertion-order listing, pgx.ErrNoRows for missing rows.
package repositorytest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/repository"
)

// OrganizationRepository is an in-memory repository.OrganizationRepository.
type OrganizationRepository struct {
	mu   sync.Mutex
	orgs []domain.Organization

	// CreateCalls counts actual writes, letting tests assert that
	// GetOrCreate performs none for an existing tenant.
	CreateCalls int
}

// NewOrganizationRepository returns an empty in-memory store.
func NewOrganizationRepository() *OrganizationRepository {
	return &OrganizationRepository{}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orgs {
		if r.orgs[i].ID == id {
			org := r.orgs[i]
			return &org, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *OrganizationRepository) Create(ctx context.Context, id, name string) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	org := domain.Organization{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	r.orgs = append(r.orgs, org)
	r.CreateCalls++
	return &org, nil
}

func (r *OrganizationRepository) GetOrCreate(ctx context.Context, id, defaultName string) (*domain.Organization, error) {
	if org, err := r.GetByID(ctx, id); err == nil {
		return org, nil
	}
	return r.Create(ctx, id, defaultName)
}

func (r *OrganizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Organization(nil), r.orgs...), nil
}

// TicketRepository is an in-memory repository.TicketRepository.
type TicketRepository struct {
	mu      sync.Mutex
	tickets []domain.Ticket
}

// NewTicketRepository returns an empty in-memory store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *TicketRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.OrganizationID == orgID {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id, orgID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.index(id, orgID)
	if idx < 0 {
		return nil, pgx.ErrNoRows
	}
	ticket := r.tickets[idx]
	return &ticket, nil
}

func (r *TicketRepository) Update(ctx context.Context, id, orgID string, update domain.TicketUpdate) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.index(id, orgID)
	if idx < 0 {
		return nil, pgx.ErrNoRows
	}
	ticket := &r.tickets[idx]
	if update.Title != nil {
		ticket.Title = *update.Title
	}
	if update.Assignee != nil {
		ticket.Assignee = *update.Assignee
	}
	if update.Description != nil {
		ticket.Description = update.Description
	}
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	ticket.UpdatedAt = time.Now()
	result := *ticket
	return &result, nil
}

func (r *TicketRepository) UpdateStatus(ctx context.Context, id, orgID string, status domain.TicketStatus) (*domain.Ticket, error) {
	return r.Update(ctx, id, orgID, domain.TicketUpdate{Status: &status})
}

func (r *TicketRepository) Delete(ctx context.Context, id, orgID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.index(id, orgID)
	if idx < 0 {
		return false, nil
	}
	r.tickets = append(r.tickets[:idx], r.tickets[idx+1:]...)
	return true, nil
}

func (r *TicketRepository) Search(ctx context.Context, orgID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := r.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var result []domain.Ticket
	for _, ticket := range tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Assignee != nil && !strings.EqualFold(ticket.Assignee, *filter.Assignee) {
			continue
		}
		if filter.TitleContains != nil &&
			!strings.Contains(strings.ToLower(ticket.Title), strings.ToLower(*filter.TitleContains)) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (r *TicketRepository) index(id, orgID string) int {
	for i := range r.tickets {
		if r.tickets[i].ID == id && r.tickets[i].OrganizationID == orgID {
			return i
		}
	}
	return -1
}

var (
	_ repository.OrganizationRepository = (*OrganizationRepository)(nil)
	_ repository.TicketRepository      = (*TicketRepository)(nil)
)
