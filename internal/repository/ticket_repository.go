package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-board/internal/domain"
)

// TicketFilter captures search parameters. All filters are conjunctive;
// nil filters are no-ops. Assignee matches case-insensitively and exactly,
// TitleContains is a case-insensitive substring match.
type TicketFilter struct {
	Status        *domain.TicketStatus
	Assignee      *string
	TitleContains *string
}

// TicketRepository encapsulates ticket persistence. Every operation takes
// the owning organization id and filters by it in SQL, so another tenant's
// rows are unreachable regardless of the caller.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// ListByOrganization returns the tenant's board in insertion order.
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id, orgID string) (*domain.Ticket, error)
	// Update applies exactly the non-nil fields of the partial update.
	Update(ctx context.Context, id, orgID string, update domain.TicketUpdate) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id, orgID string, status domain.TicketStatus) (*domain.Ticket, error)
	// Delete reports whether a row existed and was removed.
	Delete(ctx context.Context, id, orgID string) (bool, error)
	Search(ctx context.Context, orgID string, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, organization_id, title, assignee, description, status, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, organization_id, title, assignee, description, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.OrganizationID,
		ticket.Title,
		ticket.Assignee,
		ticket.Description,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE organization_id=$1
        ORDER BY created_at ASC, id ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) GetByID(ctx context.Context, id, orgID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE id=$1 AND organization_id=$2`, ticketColumns)
	return r.fetchSingle(ctx, query, id, orgID)
}

func (r *ticketRepository) Update(ctx context.Context, id, orgID string, update domain.TicketUpdate) (*domain.Ticket, error) {
	if update.Empty() {
		return r.GetByID(ctx, id, orgID)
	}

	sets := []string{"updated_at=NOW()"}
	args := []any{}

	if update.Title != nil {
		args = append(args, *update.Title)
		sets = append(sets, fmt.Sprintf("title=$%d", len(args)))
	}
	if update.Assignee != nil {
		args = append(args, *update.Assignee)
		sets = append(sets, fmt.Sprintf("assignee=$%d", len(args)))
	}
	if update.Description != nil {
		args = append(args, *update.Description)
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}

	args = append(args, id)
	idPlaceholder := len(args)
	args = append(args, orgID)

	query := fmt.Sprintf(`
        UPDATE tickets SET %s
        WHERE id=$%d AND organization_id=$%d
        RETURNING %s`, strings.Join(sets, ", "), idPlaceholder, idPlaceholder+1, ticketColumns)

	return r.fetchSingle(ctx, query, args...)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id, orgID string, status domain.TicketStatus) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND organization_id=$3
        RETURNING %s`, ticketColumns)
	return r.fetchSingle(ctx, query, status, id, orgID)
}

func (r *ticketRepository) Delete(ctx context.Context, id, orgID string) (bool, error) {
	const query = `DELETE FROM tickets WHERE id=$1 AND organization_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, orgID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) Search(ctx context.Context, orgID string, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"organization_id=$1"}
	args := []any{orgID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Assignee != nil {
		args = append(args, strings.ToLower(*filter.Assignee))
		clauses = append(clauses, fmt.Sprintf("LOWER(assignee)=$%d", len(args)))
	}
	if filter.TitleContains != nil {
		args = append(args, "%"+strings.ToLower(*filter.TitleContains)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE %s
        ORDER BY created_at ASC, id ASC`, ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.Title,
		&ticket.Assignee,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OrganizationID,
			&ticket.Title,
			&ticket.Assignee,
			&ticket.Description,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
