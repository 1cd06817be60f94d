package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testResponse struct {
	status   int
	location string
	cookies  []*nethttp.Cookie
	body     envelope
}

func newTestApp(t *testing.T, loginPerMinute int) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	revocations := auth.NewMemoryRevocationStore()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	historyService := service.NewHistoryService(store.History(), store.Tickets())
	historyService.RegisterHandlers(dispatcher)

	authService := service.NewAuthService(
		config.AuthConfig{JWTSecret: "router-test", SessionTTLMinutes: 120, BcryptCost: bcrypt.MinCost},
		service.AuthDependencies{UserRepo: store.Users(), Revocations: revocations, Logger: logger},
	)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		UserRepo:   store.Users(),
		Dispatcher: dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo: store.Comments(),
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
	})

	var limiter *RateLimiter
	if loginPerMinute > 0 {
		limiter = NewRateLimiter(nil, loginPerMinute, logger)
	}

	return NewServer(ServerOptions{Name: "helpdesk-test", Logger: logger, Metrics: metrics}, RouteConfig{
		Health:      handlers.NewHealthHandler("helpdesk", "test", &persistence.Postgres{}, &persistence.Redis{}, nil, metrics),
		Auth:        handlers.NewAuthHandler(authService, handlers.CookieSettings{Name: "token"}),
		Tickets:     handlers.NewTicketsHandler(ticketService, historyService),
		Comments:    handlers.NewCommentsHandler(commentService),
		Pages:       handlers.NewPagesHandler(ticketService, commentService, historyService),
		Guard:       auth.NewSessionGuard(authService.TokenManager(), store.Users(), revocations, "token", logger),
		RateLimiter: limiter,
	})
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) testResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := testResponse{status: resp.StatusCode, location: resp.Header.Get("Location"), cookies: resp.Cookies()}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.body)
	}
	return out
}

func registerUser(t *testing.T, app *fiber.App, name, email, role string) string {
	t.Helper()
	resp := do(t, app, "POST", "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret-pw", "role": role,
	})
	if resp.status != fiber.StatusCreated || !resp.body.Success {
		t.Fatalf("register %s: %d %+v", email, resp.status, resp.body)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.body.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("register response missing token: %s", resp.body.Data)
	}
	return data.Token
}

func expect(t *testing.T, resp testResponse, status int, code string) {
	t.Helper()
	if resp.status != status {
		t.Fatalf("status = %d, want %d (%+v)", resp.status, status, resp.body)
	}
	if code != "" && resp.body.Code != code {
		t.Fatalf("code = %q, want %q", resp.body.Code, code)
	}
	if status >= 400 && resp.body.Success {
		t.Fatalf("failure response reported success")
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t, 0)
	clientToken := registerUser(t, app, "Client A", "a@example.com", "client")
	otherToken := registerUser(t, app, "Client B", "b@example.com", "client")
	agentToken := registerUser(t, app, "Agent", "agent@example.com", "agent")

	created := do(t, app, "POST", "/tickets", clientToken, map[string]string{
		"title": "Printer jam", "description": "Paper stuck", "priority": "high",
	})
	expect(t, created, fiber.StatusCreated, "")
	var ticket struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(created.body.Data, &ticket); err != nil || ticket.Status != "open" {
		t.Fatalf("unexpected ticket payload: %s", created.body.Data)
	}
	path := "/tickets/" + ticket.ID

	expect(t, do(t, app, "PUT", path, clientToken, map[string]string{"status": "in_progress"}), fiber.StatusForbidden, "FORBIDDEN")
	expect(t, do(t, app, "GET", path, otherToken, nil), fiber.StatusForbidden, "FORBIDDEN")
	expect(t, do(t, app, "PUT", path, agentToken, map[string]string{"status": "in_progress"}), fiber.StatusOK, "")
	expect(t, do(t, app, "PUT", path, agentToken, map[string]string{"status": "closed"}), fiber.StatusConflict, "INVALID_TRANSITION")
	expect(t, do(t, app, "PUT", path, agentToken, map[string]string{"status": "resolved", "priority": "low"}), fiber.StatusBadRequest, "VALIDATION_FAILED")

	history := do(t, app, "GET", path+"/history", clientToken, nil)
	expect(t, history, fiber.StatusOK, "")
	var entries []struct {
		ToStatus string `json:"to_status"`
	}
	if err := json.Unmarshal(history.body.Data, &entries); err != nil || len(entries) != 2 || entries[1].ToStatus != "in_progress" {
		t.Fatalf("unexpected history: %s", history.body.Data)
	}

	expect(t, do(t, app, "POST", "/comments/"+ticket.ID, agentToken, map[string]string{"message": "On it"}), fiber.StatusCreated, "")
	expect(t, do(t, app, "POST", "/comments/"+ticket.ID, clientToken, map[string]string{"content": ""}), fiber.StatusBadRequest, "VALIDATION_FAILED")
	expect(t, do(t, app, "POST", "/comments/00000000-0000-0000-0000-000000000000", agentToken, map[string]string{"content": "?"}), fiber.StatusNotFound, "NOT_FOUND")

	thread := do(t, app, "GET", "/comments/"+ticket.ID, clientToken, nil)
	expect(t, thread, fiber.StatusOK, "")
	var comments []struct {
		Content    string `json:"content"`
		AuthorRole string `json:"author_role"`
	}
	if err := json.Unmarshal(thread.body.Data, &comments); err != nil || len(comments) != 1 || comments[0].AuthorRole != "agent" {
		t.Fatalf("unexpected thread: %s", thread.body.Data)
	}

	expect(t, do(t, app, "DELETE", path, clientToken, nil), fiber.StatusForbidden, "FORBIDDEN")
	expect(t, do(t, app, "DELETE", path, agentToken, nil), fiber.StatusOK, "")
	expect(t, do(t, app, "GET", path, agentToken, nil), fiber.StatusNotFound, "NOT_FOUND")
}

func TestProtectedAPIRequiresSession(t *testing.T) {
	app := newTestApp(t, 0)
	expect(t, do(t, app, "GET", "/tickets", "", nil), fiber.StatusUnauthorized, "UNAUTHENTICATED")
	expect(t, do(t, app, "GET", "/tickets", "not-a-jwt", nil), fiber.StatusUnauthorized, "UNAUTHENTICATED")
	expect(t, do(t, app, "GET", "/auth/me", "", nil), fiber.StatusUnauthorized, "UNAUTHENTICATED")
	expect(t, do(t, app, "GET", "/health/live", "", nil), fiber.StatusOK, "")
}

func TestReadinessReportsDisabledDependencies(t *testing.T) {
	app := newTestApp(t, 0)
	resp := do(t, app, "GET", "/health/ready", "", nil)
	expect(t, resp, fiber.StatusOK, "")
	var data struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(resp.body.Data, &data); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	want := map[string]string{"store": "memory", "redis": "disabled", "notifications": "disabled"}
	for dep, status := range want {
		if data.Dependencies[dep] != status {
			t.Errorf("%s = %q, want %q", dep, data.Dependencies[dep], status)
		}
	}
}

func TestLoginSetsCookieAndRejectsBadPassword(t *testing.T) {
	app := newTestApp(t, 0)
	registerUser(t, app, "Client", "c@example.com", "")

	resp := do(t, app, "POST", "/auth/login", "", map[string]string{"email": "C@example.com", "password": "secret-pw"})
	expect(t, resp, fiber.StatusOK, "")
	var session *nethttp.Cookie
	for _, c := range resp.cookies {
		if c.Name == "token" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly || session.SameSite != nethttp.SameSiteLaxMode || session.Path != "/" {
		t.Errorf("unexpected cookie attributes: %+v", session)
	}
	if session.MaxAge != 7200 {
		t.Errorf("cookie max-age = %d", session.MaxAge)
	}

	bad := do(t, app, "POST", "/auth/login", "", map[string]string{"email": "c@example.com", "password": "wrong"})
	expect(t, bad, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	unknown := do(t, app, "POST", "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "wrong"})
	expect(t, unknown, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	if bad.body.Error != unknown.body.Error {
		t.Errorf("login errors reveal account existence: %q vs %q", bad.body.Error, unknown.body.Error)
	}
	for _, c := range bad.cookies {
		if c.Name == "token" && c.Value != "" {
			t.Error("failed login issued a cookie")
		}
	}

	expect(t, do(t, app, "POST", "/auth/register", "", map[string]string{
		"name": "Dup", "email": "c@example.com", "password": "x",
	}), fiber.StatusConflict, "CONFLICT")
	expect(t, do(t, app, "POST", "/auth/register", "", map[string]string{
		"name": "Multi", "email": "m@example.com", "password": strings.Repeat("é", 72),
	}), fiber.StatusBadRequest, "VALIDATION_FAILED")
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t, 0)
	token := registerUser(t, app, "Client", "c@example.com", "client")
	expect(t, do(t, app, "GET", "/auth/me", token, nil), fiber.StatusOK, "")
	expect(t, do(t, app, "POST", "/auth/logout", token, nil), fiber.StatusOK, "")
	expect(t, do(t, app, "GET", "/auth/me", token, nil), fiber.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestPageRedirects(t *testing.T) {
	app := newTestApp(t, 0)
	clientToken := registerUser(t, app, "Client", "c@example.com", "client")
	agentToken := registerUser(t, app, "Agent", "a@example.com", "agent")

	cases := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"anonymous dashboard", auth.ClientDashboardPage, "", fiber.StatusSeeOther, auth.LoginPage},
		{"anonymous ticket page", "/app/tickets/abc", "", fiber.StatusSeeOther, auth.LoginPage},
		{"anonymous login page", auth.LoginPage, "", fiber.StatusOK, ""},
		{"client on login page", auth.LoginPage, clientToken, fiber.StatusSeeOther, auth.ClientDashboardPage},
		{"agent on register page", auth.RegisterPage, agentToken, fiber.StatusSeeOther, auth.AgentDashboardPage},
		{"client on agent dashboard", auth.AgentDashboardPage, clientToken, fiber.StatusSeeOther, auth.ClientDashboardPage},
		{"agent on client dashboard", auth.ClientDashboardPage, agentToken, fiber.StatusSeeOther, auth.AgentDashboardPage},
		{"client on own dashboard", auth.ClientDashboardPage, clientToken, fiber.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, app, "GET", tc.path, tc.token, nil)
			if resp.status != tc.status {
				t.Fatalf("status = %d, want %d", resp.status, tc.status)
			}
			if resp.location != tc.location {
				t.Fatalf("location = %q, want %q", resp.location, tc.location)
			}
		})
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	app := newTestApp(t, 2)
	for i := 0; i < 2; i++ {
		resp := do(t, app, "POST", "/auth/login", "", map[string]string{"email": "x@example.com", "password": "nope"})
		expect(t, resp, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	expect(t, do(t, app, "POST", "/auth/login", "", map[string]string{"email": "x@example.com", "password": "nope"}),
		fiber.StatusTooManyRequests, "RATE_LIMITED")
}
