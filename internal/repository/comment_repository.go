package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository manages ticket thread comments. Comments are append-only.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

// Create inserts the comment and fills in the author's name and role from the
// same statement.
func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        WITH inserted AS (
            INSERT INTO comments (ticket_id, author_id, content, created_at)
            VALUES ($1,$2,$3,$4)
            RETURNING id, author_id
        )
        SELECT inserted.id, u.name, u.role
        FROM inserted JOIN users u ON u.id = inserted.author_id`
	err := r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.CreatedAt,
	).Scan(&comment.ID, &comment.AuthorName, &comment.AuthorRole)
	if err != nil {
		return fmt.Errorf("insert comment: %w", mapPgError(err))
	}
	return nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.author_id, c.content, c.created_at, u.name, u.role
        FROM comments c JOIN users u ON u.id = c.author_id
        WHERE c.ticket_id=$1 ORDER BY c.created_at ASC, c.id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", mapPgError(err))
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
			&comment.AuthorName,
			&comment.AuthorRole,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
