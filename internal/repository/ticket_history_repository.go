package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketHistoryRepository stores status audit entries. Entries go away with
// their ticket.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, actor_id, from_status, to_status, created_at)
        VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), $4, $5)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert ticket history: %w", mapPgError(err))
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT h.id, h.ticket_id, COALESCE(h.actor_id::text, ''), COALESCE(u.name, ''), COALESCE(u.role, ''),
               COALESCE(h.from_status, ''), h.to_status, h.created_at
        FROM ticket_history h LEFT JOIN users u ON u.id = h.actor_id
        WHERE h.ticket_id=$1 ORDER BY h.created_at ASC, h.id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket history: %w", mapPgError(err))
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.ActorName,
			&entry.ActorRole,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
