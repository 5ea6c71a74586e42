package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-board/internal/domain"
)

// OrganizationRepository encapsulates tenant persistence. Organization ids
// are assigned by the identity provider, never generated here.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	Create(ctx context.Context, id, name string) (*domain.Organization, error)
	// GetOrCreate returns the existing tenant or provisions it with the
	// default name. When the row already exists no write is performed.
	GetOrCreate(ctx context.Context, id, defaultName string) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository instantiates repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `
        SELECT id, name, created_at, updated_at
        FROM organizations WHERE id=$1`
	var org domain.Organization
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) Create(ctx context.Context, id, name string) (*domain.Organization, error) {
	const query = `
        INSERT INTO organizations (id, name)
        VALUES ($1,$2)
        RETURNING id, name, created_at, updated_at`
	var org domain.Organization
	if err := r.pool.QueryRow(ctx, query, id, name).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) GetOrCreate(ctx context.Context, id, defaultName string) (*domain.Organization, error) {
	org, err := r.GetByID(ctx, id)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// ON CONFLICT keeps concurrent first requests from the same tenant
	// from failing on the unique id.
	const query = `
        INSERT INTO organizations (id, name)
        VALUES ($1,$2)
        ON CONFLICT (id) DO UPDATE SET id=EXCLUDED.id
        RETURNING id, name, created_at, updated_at`
	var created domain.Organization
	if err := r.pool.QueryRow(ctx, query, id, defaultName).Scan(
		&created.ID,
		&created.Name,
		&created.CreatedAt,
		&created.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	const query = `
        SELECT id, name, created_at, updated_at
        FROM organizations ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}
