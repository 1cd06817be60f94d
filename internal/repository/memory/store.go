// Package memory provides process-local implementations of the repository
// interfaces. They back tests and runs without a configured Postgres DSN, and
// enforce the same uniqueness and reference rules as the SQL schema.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds users, tickets and comments behind a single lock.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string
	tickets  map[string]domain.Ticket
	comments map[string]storedComment
	history  []domain.TicketHistory
	seq      int64
}

type storedComment struct {
	comment domain.Comment
	seq     int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		tickets:  make(map[string]domain.Ticket),
		comments: make(map[string]storedComment),
	}
}

// Users returns the credential store view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns the ticket store view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Comments returns the comment store view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// History returns the ticket audit view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	if _, exists := r.s.emails[email]; exists {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	r.s.users[user.ID] = *user
	r.s.emails[email] = user.ID
	return nil
}

func (r userRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = hash
	r.s.users[id] = user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[ticket.OwnerID]; !ok {
		return repository.ErrReference
	}
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	stored := *ticket
	stored.OwnerName, stored.OwnerEmail = "", ""
	r.s.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket, from domain.TicketStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok || stored.Status != from {
		return repository.ErrStale
	}
	stored.Status = ticket.Status
	stored.UpdatedAt = ticket.UpdatedAt
	r.s.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.s.joinOwner(&ticket)
	return &ticket, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, ticket := range r.s.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		r.s.joinOwner(&ticket)
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

func (r ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tickets, id)
	for commentID, stored := range r.s.comments {
		if stored.comment.TicketID == id {
			delete(r.s.comments, commentID)
		}
	}
	kept := r.s.history[:0]
	for _, entry := range r.s.history {
		if entry.TicketID != id {
			kept = append(kept, entry)
		}
	}
	r.s.history = kept
	return nil
}

func (s *Store) joinOwner(ticket *domain.Ticket) {
	if owner, ok := s.users[ticket.OwnerID]; ok {
		ticket.OwnerName = owner.Name
		ticket.OwnerEmail = owner.Email
	}
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return repository.ErrReference
	}
	author, ok := r.s.users[comment.AuthorID]
	if !ok {
		return repository.ErrReference
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.AuthorName = author.Name
	comment.AuthorRole = author.Role
	r.s.seq++
	r.s.comments[comment.ID] = storedComment{comment: *comment, seq: r.s.seq}
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := []storedComment{}
	for _, stored := range r.s.comments {
		if stored.comment.TicketID == ticketID {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].comment.CreatedAt, matched[j].comment.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return matched[i].seq < matched[j].seq
	})
	result := make([]domain.Comment, 0, len(matched))
	for _, stored := range matched {
		comment := stored.comment
		if author, ok := r.s.users[comment.AuthorID]; ok {
			comment.AuthorName = author.Name
			comment.AuthorRole = author.Role
		}
		result = append(result, comment)
	}
	return result, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return repository.ErrReference
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := *entry
	stored.ActorName, stored.ActorRole = "", ""
	r.s.history = append(r.s.history, stored)
	return nil
}

// ListByTicket returns entries in insertion order, which is chronological.
func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.TicketHistory{}
	for _, entry := range r.s.history {
		if entry.TicketID != ticketID {
			continue
		}
		if actor, ok := r.s.users[entry.ActorID]; ok {
			entry.ActorName = actor.Name
			entry.ActorRole = actor.Role
		}
		result = append(result, entry)
	}
	return result, nil
}
