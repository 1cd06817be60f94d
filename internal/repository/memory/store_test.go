package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func seedUser(t *testing.T, s *Store, email string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{Name: email, Email: email, PasswordHash: "$2a$hash", Role: role}
	if err := s.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestUserEmailIsUnique(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "a@example.com", domain.RoleClient)

	err := s.Users().Create(context.Background(), &domain.User{Email: "A@Example.com ", Role: domain.RoleClient})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := s.Users().GetByEmail(context.Background(), "A@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("lookup by email: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Errorf("expected normalized email, got %s", got.Email)
	}
}

func TestTicketRequiresExistingOwner(t *testing.T) {
	s := NewStore()
	err := s.Tickets().Create(context.Background(), &domain.Ticket{Title: "x", OwnerID: "ghost"})
	if !errors.Is(err, repository.ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
}

func TestDeleteCascadesComments(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	owner := seedUser(t, s, "owner@example.com", domain.RoleClient)
	ticket := &domain.Ticket{Title: "Printer jam", OwnerID: owner.ID, Status: domain.TicketStatusOpen}
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if err := s.Comments().Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: owner.ID, Content: "hello"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := s.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	comments, err := s.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("expected comments to be removed, got %d", len(comments))
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestCommentsOrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	owner := seedUser(t, s, "owner@example.com", domain.RoleClient)
	ticket := &domain.Ticket{Title: "t", OwnerID: owner.ID}
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"second", "first", "third"} {
		offset := []time.Duration{time.Minute, 0, 2 * time.Minute}[i]
		c := &domain.Comment{TicketID: ticket.ID, AuthorID: owner.ID, Content: content, CreatedAt: base.Add(offset)}
		if err := s.Comments().Create(ctx, c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}

	comments, err := s.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, c := range comments {
		if c.Content != want[i] {
			t.Errorf("position %d: got %q, want %q", i, c.Content, want[i])
		}
		if c.AuthorName != owner.Name {
			t.Errorf("author name not joined: %q", c.AuthorName)
		}
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := seedUser(t, s, "a@example.com", domain.RoleClient)
	b := seedUser(t, s, "b@example.com", domain.RoleClient)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		owner := a
		if i%2 == 1 {
			owner = b
		}
		ticket := &domain.Ticket{Title: "t", OwnerID: owner.ID, Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Tickets().Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	owned, err := s.Tickets().List(ctx, repository.TicketFilter{OwnerID: &a.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(owned) != 3 {
		t.Fatalf("expected 3 tickets for a, got %d", len(owned))
	}
	for _, ticket := range owned {
		if ticket.OwnerID != a.ID {
			t.Errorf("foreign ticket leaked: %s", ticket.OwnerID)
		}
	}
	if !owned[0].CreatedAt.After(owned[1].CreatedAt) {
		t.Error("expected newest first")
	}

	page, err := s.Tickets().List(ctx, repository.TicketFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 ticket on last page, got %d", len(page))
	}
}

func TestHistoryFollowsTicketLifetime(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	owner := seedUser(t, s, "owner@example.com", domain.RoleClient)
	ticket := &domain.Ticket{Title: "t", OwnerID: owner.ID, Status: domain.TicketStatusOpen}
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	for _, to := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress} {
		if err := s.History().Create(ctx, &domain.TicketHistory{TicketID: ticket.ID, ActorID: owner.ID, ToStatus: to}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, _ := s.History().ListByTicket(ctx, ticket.ID)
	if len(entries) != 2 || entries[1].ToStatus != domain.TicketStatusInProgress || entries[0].ActorName != owner.Name {
		t.Fatalf("unexpected history: %+v", entries)
	}

	if err := s.History().Create(ctx, &domain.TicketHistory{TicketID: "ghost", ToStatus: domain.TicketStatusOpen}); !errors.Is(err, repository.ErrReference) {
		t.Errorf("expected ErrReference for unknown ticket, got %v", err)
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if entries, _ := s.History().ListByTicket(ctx, ticket.ID); len(entries) != 0 {
		t.Errorf("history survived ticket deletion: %d entries", len(entries))
	}
}

func TestUpdateStatusIsConditional(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := seedUser(t, s, "owner@example.com", domain.RoleClient)
	ticket := &domain.Ticket{Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, OwnerID: owner.ID}
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	next := *ticket
	next.Status = domain.TicketStatusInProgress
	if err := s.Tickets().UpdateStatus(ctx, &next, domain.TicketStatusOpen); err != nil {
		t.Fatalf("update from open: %v", err)
	}
	stale := *ticket
	stale.Status = domain.TicketStatusInProgress
	if err := s.Tickets().UpdateStatus(ctx, &stale, domain.TicketStatusOpen); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("expected ErrStale for outdated status, got %v", err)
	}
	missing := domain.Ticket{ID: "missing", Status: domain.TicketStatusResolved}
	if err := s.Tickets().UpdateStatus(ctx, &missing, domain.TicketStatusInProgress); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("expected ErrStale for missing ticket, got %v", err)
	}
}
