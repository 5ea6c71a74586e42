package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-board/internal/domain"
	"github.com/spec-kit/ticket-board/internal/repository/repositorytest"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

func newTestService(t *testing.T) (*TicketService, *repositorytest.OrganizationRepository) {
	t.Helper()
	orgRepo := repositorytest.NewOrganizationRepository()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:       repositorytest.NewTicketRepository(),
		OrganizationRepo: orgRepo,
	})
	return svc, orgRepo
}

func createTicket(t *testing.T, svc *TicketService, orgID, title, assignee string) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), orgID, TicketCreateInput{
		Title:    title,
		Assignee: assignee,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDefaultsToBacklog(t *testing.T) {
	svc, _ := newTestService(t)

	ticket := createTicket(t, svc, "org-1", "Set up dev env", "Dev")
	require.NotEmpty(t, ticket.ID)
	require.Equal(t, domain.TicketStatusBacklog, ticket.Status)
	require.Equal(t, "org-1", ticket.OrganizationID)
}

func TestCreateTicketRequiresTitleAndAssignee(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTicket(context.Background(), "org-1", TicketCreateInput{Title: "  "})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket := createTicket(t, svc, "org-1", "Private work", "Alice")

	// The other tenant cannot see the ticket through any read path, even
	// with the correct id.
	_, err := svc.GetTicket(ctx, ticket.ID, "org-2")
	require.True(t, apperrors.IsNotFound(err))

	tickets, err := svc.ListTickets(ctx, "org-2")
	require.NoError(t, err)
	require.Empty(t, tickets)

	found, err := svc.SearchTickets(ctx, "org-2", TicketSearchInput{})
	require.NoError(t, err)
	require.Empty(t, found)

	stats, err := svc.TicketStatistics(ctx, "org-2")
	require.NoError(t, err)
	require.Zero(t, stats.TotalTickets)

	err = svc.DeleteTicket(ctx, ticket.ID, "org-2")
	require.True(t, apperrors.IsNotFound(err))

	// The owner still has it.
	tickets, err = svc.ListTickets(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
}

func TestGetOrCreateOrganizationWritesOnce(t *testing.T) {
	svc, orgRepo := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListTickets(ctx, "org-new")
	require.NoError(t, err)
	_, err = svc.ListTickets(ctx, "org-new")
	require.NoError(t, err)

	require.Equal(t, 1, orgRepo.CreateCalls)

	orgs, err := svc.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, domain.DefaultOrganizationName, orgs[0].Name)
}

func TestUpdateTicketStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket := createTicket(t, svc, "org-1", "Ship it", "Dev")

	// Any status may follow any other; done back to backlog is allowed.
	updated, err := svc.UpdateTicketStatus(ctx, ticket.ID, "org-1", domain.TicketStatusDone)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusDone, updated.Status)

	updated, err = svc.UpdateTicketStatus(ctx, ticket.ID, "org-1", domain.TicketStatusBacklog)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusBacklog, updated.Status)
}

func TestUpdateTicketStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket := createTicket(t, svc, "org-1", "Ship it", "Dev")

	_, err := svc.UpdateTicketStatus(ctx, ticket.ID, "org-1", "archived")
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	// The stored ticket is unchanged.
	stored, err := svc.GetTicket(ctx, ticket.ID, "org-1")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusBacklog, stored.Status)
}

func TestUpdateTicketAppliesOnlyPresentFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket := createTicket(t, svc, "org-1", "Original title", "Alice")

	newTitle := "Renamed"
	updated, err := svc.UpdateTicket(ctx, ticket.ID, "org-1", domain.TicketUpdate{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, "Alice", updated.Assignee)
	require.Equal(t, domain.TicketStatusBacklog, updated.Status)
}

func TestDeleteTicket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket := createTicket(t, svc, "org-1", "Temp", "Dev")

	require.NoError(t, svc.DeleteTicket(ctx, ticket.ID, "org-1"))

	err := svc.DeleteTicket(ctx, ticket.ID, "org-1")
	require.True(t, apperrors.IsNotFound(err))

	err = svc.DeleteTicket(ctx, "no-such-id", "org-1")
	require.True(t, apperrors.IsNotFound(err))

	tickets, err := svc.ListTickets(ctx, "org-1")
	require.NoError(t, err)
	require.Empty(t, tickets)
}

func TestSearchTicketsConjunctiveFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := createTicket(t, svc, "org-1", "Fix login bug", "Alice")
	createTicket(t, svc, "org-1", "Write docs", "Alice")
	createTicket(t, svc, "org-1", "Fix signup bug", "Bob")

	_, err := svc.UpdateTicketStatus(ctx, first.ID, "org-1", domain.TicketStatusDone)
	require.NoError(t, err)

	status := "done"
	assignee := "alice"
	found, err := svc.SearchTickets(ctx, "org-1", TicketSearchInput{
		Status:   &status,
		Assignee: &assignee,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, first.ID, found[0].ID)

	// Substring title match is case-insensitive too.
	title := "FIX"
	found, err = svc.SearchTickets(ctx, "org-1", TicketSearchInput{TitleContains: &title})
	require.NoError(t, err)
	require.Len(t, found, 2)

	bad := "not-a-status"
	_, err = svc.SearchTickets(ctx, "org-1", TicketSearchInput{Status: &bad})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestTicketStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createTicket(t, svc, "org-1", "One", "Dev")
	createTicket(t, svc, "org-1", "Two", "Dev")
	third := createTicket(t, svc, "org-1", "Three", "QA")
	_, err := svc.UpdateTicketStatus(ctx, third.ID, "org-1", domain.TicketStatusDone)
	require.NoError(t, err)

	stats, err := svc.TicketStatistics(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalTickets)
	require.Equal(t, map[domain.TicketStatus]int{
		domain.TicketStatusBacklog: 2,
		domain.TicketStatusDone:    1,
	}, stats.StatusDistribution)
	require.Equal(t, map[string]int{"Dev": 2, "QA": 1}, stats.AssigneeDistribution)
}

func TestListTicketsInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := createTicket(t, svc, "org-1", "First", "Dev")
	b := createTicket(t, svc, "org-1", "Second", "Dev")
	c := createTicket(t, svc, "org-1", "Third", "Dev")

	tickets, err := svc.ListTickets(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, []string{a.ID, b.ID, c.ID}, []string{tickets[0].ID, tickets[1].ID, tickets[2].ID})
}
