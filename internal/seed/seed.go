// Package seed loads the demo accounts, tickets and comments used for local
// development and manual testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// DefaultPassword is shared by every demo account unless overridden.
const DefaultPassword = "123456"

// UserSpec describes a demo account.
type UserSpec struct {
	Name  string
	Email string
	Role  domain.Role
}

// TicketSpec describes a demo ticket owned by the demo client.
type TicketSpec struct {
	Title       string
	Description string
	Status      domain.TicketStatus
	Priority    domain.TicketPriority
	Comments    []CommentSpec
}

// CommentSpec is a comment written by one of the demo accounts.
type CommentSpec struct {
	AuthorEmail string
	Content     string
}

// Dataset is everything a seed run writes.
type Dataset struct {
	Users   []UserSpec
	Tickets []TicketSpec
}

// Result counts what a run created. Existing accounts are reused, not counted.
type Result struct {
	Users    int
	Tickets  int
	Comments int
}

// Demo returns the standard demo dataset.
func Demo() Dataset {
	return Dataset{
		Users: []UserSpec{
			{Name: "Test Client", Email: "client@example.com", Role: domain.RoleClient},
			{Name: "Support Agent", Email: "agent@example.com", Role: domain.RoleAgent},
		},
		Tickets: []TicketSpec{
			{
				Title:       "Login error",
				Description: "I can't sign in to my account",
				Status:      domain.TicketStatusOpen,
				Priority:    domain.TicketPriorityHigh,
				Comments: []CommentSpec{
					{AuthorEmail: "agent@example.com", Content: "We're looking into it. Please try clearing your browser cache."},
					{AuthorEmail: "client@example.com", Content: "Thanks, I'll try that."},
				},
			},
			{
				Title:       "Feature request",
				Description: "Please add an export to PDF",
				Status:      domain.TicketStatusOpen,
				Priority:    domain.TicketPriorityMedium,
			},
			{
				Title:       "Reports broken",
				Description: "Charts are not rendering correctly",
				Status:      domain.TicketStatusInProgress,
				Priority:    domain.TicketPriorityHigh,
			},
		},
	}
}

// Repositories groups the stores a seed run writes to.
type Repositories struct {
	Users    repository.UserRepository
	Tickets  repository.TicketRepository
	Comments repository.CommentRepository
}

// Seeder writes a Dataset.
type Seeder struct {
	repos      Repositories
	password   string
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// NewSeeder builds a seeder. An empty password selects DefaultPassword.
func NewSeeder(repos Repositories, password string, bcryptCost int, logger *zap.Logger) *Seeder {
	if password == "" {
		password = DefaultPassword
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{repos: repos, password: password, bcryptCost: bcryptCost, logger: logger, now: time.Now}
}

// Apply writes the dataset. Tickets belong to the first client account.
func (s *Seeder) Apply(ctx context.Context, data Dataset) (Result, error) {
	var result Result
	hash, err := auth.HashPassword(s.password, s.bcryptCost)
	if err != nil {
		return result, fmt.Errorf("hash password: %w", err)
	}

	byEmail := make(map[string]*domain.User, len(data.Users))
	var owner *domain.User
	for _, spec := range data.Users {
		user, created, err := s.ensureUser(ctx, spec, hash)
		if err != nil {
			return result, err
		}
		if created {
			result.Users++
		}
		byEmail[user.Email] = user
		if owner == nil && user.Role == domain.RoleClient {
			owner = user
		}
	}
	if owner == nil && len(data.Tickets) > 0 {
		return result, errors.New("dataset has tickets but no client account")
	}

	base := s.now().UTC()
	for i, spec := range data.Tickets {
		// spread creation times so newest-first listings are stable
		createdAt := base.Add(time.Duration(i) * time.Second)
		ticket := &domain.Ticket{
			Title:       spec.Title,
			Description: spec.Description,
			Status:      spec.Status,
			Priority:    spec.Priority,
			OwnerID:     owner.ID,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if err := s.repos.Tickets.Create(ctx, ticket); err != nil {
			return result, fmt.Errorf("create ticket %q: %w", spec.Title, err)
		}
		result.Tickets++

		for j, cs := range spec.Comments {
			author, ok := byEmail[domain.NormalizeEmail(cs.AuthorEmail)]
			if !ok {
				return result, fmt.Errorf("comment author %s is not in the dataset", cs.AuthorEmail)
			}
			comment := &domain.Comment{
				TicketID:  ticket.ID,
				AuthorID:  author.ID,
				Content:   cs.Content,
				CreatedAt: createdAt.Add(time.Duration(j+1) * time.Minute),
			}
			if err := s.repos.Comments.Create(ctx, comment); err != nil {
				return result, fmt.Errorf("create comment on %q: %w", spec.Title, err)
			}
			result.Comments++
		}
	}

	s.logger.Info("seed applied",
		zap.Int("users", result.Users),
		zap.Int("tickets", result.Tickets),
		zap.Int("comments", result.Comments))
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, spec UserSpec, hash string) (*domain.User, bool, error) {
	existing, err := s.repos.Users.GetByEmail(ctx, spec.Email)
	if err == nil {
		s.logger.Info("seed user exists", zap.String("email", existing.Email))
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup %s: %w", spec.Email, err)
	}
	user := &domain.User{
		Name:         spec.Name,
		Email:        domain.NormalizeEmail(spec.Email),
		PasswordHash: hash,
		Role:         spec.Role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", spec.Email, err)
	}
	return user, true, nil
}
