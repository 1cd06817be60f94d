package domain

import "time"

// Comment is an append-only message in a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time

	// Joined from users on reads.
	AuthorName string
	AuthorRole Role
}
