package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/usecase"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository stores review comments. It fills the Commenter port
// directly; the wider comment service owns threading and rendering.
func NewCommentRepository(pool *pgxpool.Pool) usecase.Commenter {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, user domain.User, taskID int64, text string, actionID string) error {
	if text == "" {
		return domain.ErrInvalidPayload
	}
	if actionID == "" {
		actionID = uuid.NewString()
	}
	const query = `
	INSERT INTO task_comments (task_id, user_id, comment, action_id)
	VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, taskID, user.ID, text, actionID)
	return err
}
