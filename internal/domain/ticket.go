package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// MaxTitleLength bounds ticket titles, counted in runes.
const MaxTitleLength = 200

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Populated on reads only.
	OwnerName  string
	OwnerEmail string
}

// nextStatus holds the only forward edge out of each state. closed is terminal.
var nextStatus = map[TicketStatus]TicketStatus{
	TicketStatusOpen:       TicketStatusInProgress,
	TicketStatusInProgress: TicketStatusResolved,
	TicketStatusResolved:   TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Next returns the single legal successor of s.
func (s TicketStatus) Next() (TicketStatus, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

// Terminal reports whether no transition leaves s.
func (s TicketStatus) Terminal() bool {
	_, ok := nextStatus[s]
	return s.Valid() && !ok
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to TicketStatus) bool {
	next, ok := nextStatus[from]
	return ok && next == to
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// ParsePriority normalizes raw input. An empty value defaults to medium.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return TicketPriorityMedium, true
	}
	return p, p.Valid()
}

// VisibleTo reports whether the user may read the ticket and its thread.
func (t *Ticket) VisibleTo(user *User) bool {
	if t == nil || user == nil {
		return false
	}
	return user.Role == RoleAgent || t.OwnerID == user.ID
}
