package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	tokenMgr    *auth.TokenManager
	revocations auth.RevocationStore
	bcryptCost  int
	allowLegacy bool
	logger      *zap.Logger

	dummyOnce sync.Once
	dummy     []byte
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
	Logger      *zap.Logger
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL()),
		revocations: deps.Revocations,
		bcryptCost:  cfg.BcryptCost,
		allowLegacy: cfg.AllowLegacyPlaintext,
		logger:      logger,
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, domain.Session, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, domain.Session{}, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, domain.Session{}, passwordTooLong()
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, domain.Session{}, apperrors.NewValidationError("role must be client or agent",
			map[string]any{"role": input.Role})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Session{}, emailTaken(email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Session{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, domain.Session{}, passwordTooLong()
	}
	if err != nil {
		return nil, domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Session{}, emailTaken(email)
		}
		return nil, domain.Session{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login authenticates by email and password. Unknown emails and wrong passwords
// produce the same InvalidCredential error; the not-found cause stays in the
// error chain for logging.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Session{}, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnCompare(s.dummyHash(), password)
			return nil, domain.Session{}, apperrors.NewInvalidCredential(apperrors.NewNotFound("user", nil))
		}
		return nil, domain.Session{}, fmt.Errorf("lookup user: %w", err)
	}

	needsRehash, err := auth.VerifyStoredPassword(user.PasswordHash, password, s.allowLegacy)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInvalidCredential(err)
	}
	if needsRehash {
		s.upgradeLegacyPassword(ctx, user, password)
	}

	return s.issue(user)
}

// Logout revokes the session's token id until it expires.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity) error {
	if s.revocations == nil || identity.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Verify checks a session token. It never fails with an error.
func (s *AuthService) Verify(token string) (domain.Identity, bool) {
	return s.tokenMgr.Verify(token)
}

// CurrentUser re-reads the account behind a session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*domain.User, domain.Session, error) {
	session, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Session{}, fmt.Errorf("sign token: %w", err)
	}
	sanitized := user.Sanitized()
	return &sanitized, session, nil
}

// upgradeLegacyPassword replaces a plaintext credential with its hash. Failure
// only costs another legacy login later, so it is logged and not returned.
func (s *AuthService) upgradeLegacyPassword(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("legacy password upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	s.logger.Info("legacy password upgraded", zap.String("user_id", user.ID))
}

func emailTaken(email string) error {
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}

// dummyHash is built on first use at the configured cost, so unknown emails
// take as long as wrong passwords.
func (s *AuthService) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy = auth.NewDummyHash(s.bcryptCost)
	})
	return s.dummy
}

func passwordTooLong() error {
	return apperrors.NewValidationError(
		fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes),
		map[string]any{"password": "max_bytes"})
}
