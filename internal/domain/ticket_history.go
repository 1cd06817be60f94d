package domain

import "time"

// TicketHistory is an immutable audit entry for a status change. FromStatus is
// empty for the entry written when the ticket is filed.
type TicketHistory struct {
	ID         string
	TicketID   string
	ActorID    string
	ActorName  string
	ActorRole  Role
	FromStatus TicketStatus
	ToStatus   TicketStatus
	CreatedAt  time.Time
}
