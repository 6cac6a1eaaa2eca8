package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type challengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository returns the read-only challenge slice used for
// authorization and queue visibility.
func NewChallengeRepository(pool *pgxpool.Pool) repository.ChallengeRepository {
	return &challengeRepository{pool: pool}
}

func (r *challengeRepository) GetByID(ctx context.Context, id int64) (*domain.Challenge, error) {
	const query = `
	SELECT c.id, c.project_id, c.name, c.owner_id, c.enabled, p.enabled, p.owner_id
	FROM challenges c
	JOIN projects p ON p.id = c.project_id
	WHERE c.id = $1
	`
	var challenge domain.Challenge
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&challenge.ID,
		&challenge.ProjectID,
		&challenge.Name,
		&challenge.OwnerID,
		&challenge.Enabled,
		&challenge.ProjectEnabled,
		&challenge.ProjectOwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}
