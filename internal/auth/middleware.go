package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. User is always re-read from the
// store, so its role is current even if the token is older.
type Principal struct {
	User     *domain.User
	Identity domain.Identity
}

// SessionGuard classifies every request and enforces the session policy.
type SessionGuard struct {
	tokens      *TokenManager
	users       repository.UserRepository
	revocations RevocationStore
	cookieName  string
	logger      *zap.Logger
}

// NewSessionGuard constructs the guard. revocations may be nil.
func NewSessionGuard(tokens *TokenManager, users repository.UserRepository, revocations RevocationStore, cookieName string, logger *zap.Logger) *SessionGuard {
	if cookieName == "" {
		cookieName = "token"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionGuard{tokens: tokens, users: users, revocations: revocations, cookieName: cookieName, logger: logger}
}

// Handle is the fiber middleware.
func (g *SessionGuard) Handle(c *fiber.Ctx) error {
	route := Classify(c.Path())
	if route.Class == RoutePublic {
		return c.Next()
	}

	user, identity, err := g.authenticate(c)
	if err != nil {
		return err
	}

	decision := Decide(route, user)
	switch decision.Outcome {
	case RejectUnauthenticated:
		return apperrors.NewUnauthenticated("authentication required")
	case RedirectLogin, RedirectDashboard:
		return c.Redirect(decision.Location, fiber.StatusSeeOther)
	}

	if user != nil {
		c.Locals(principalKey, &Principal{User: user, Identity: identity})
	}
	return c.Next()
}

// authenticate returns a nil user when the request has no usable credential.
// Only store failures are reported as errors.
func (g *SessionGuard) authenticate(c *fiber.Ctx) (*domain.User, domain.Identity, error) {
	raw := g.extractToken(c)
	if raw == "" {
		return nil, domain.Identity{}, nil
	}
	identity, ok := g.tokens.Verify(raw)
	if !ok {
		return nil, domain.Identity{}, nil
	}

	ctx := c.UserContext()
	if g.revocations != nil && identity.TokenID != "" {
		revoked, err := g.revocations.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			g.logger.Warn("revocation lookup failed", zap.Error(err))
		} else if revoked {
			return nil, domain.Identity{}, nil
		}
	}

	user, err := g.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Identity{}, nil
		}
		return nil, domain.Identity{}, apperrors.NewInternalError(err)
	}
	return user, identity, nil
}

func (g *SessionGuard) extractToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(g.cookieName); cookie != "" {
		return cookie
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal.User != nil
}
