package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CookieSettings describes the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler serves login, registration and session endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookie  CookieSettings
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie CookieSettings) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{service: authService, cookie: cookie}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, session, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, session)
	return ok(c, fiber.StatusOK, authResponse(user, session))
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, session, err := h.service.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	h.setSessionCookie(c, session)
	return ok(c, fiber.StatusCreated, authResponse(user, session))
}

// Logout POST /auth/logout. The cookie is cleared even if revocation fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	h.clearSessionCookie(c)
	if err := h.service.Logout(c.UserContext(), principal.Identity); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"logged_out": true})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewUserResponse(user))
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, session domain.Session) {
	maxAge := int(h.service.TokenManager().TTL().Seconds())
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func authResponse(user *domain.User, session domain.Session) dto.AuthResponse {
	return dto.AuthResponse{
		User:      dto.NewUserResponse(user),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
}
