package auth

import (
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteClass partitions request paths for the session guard.
type RouteClass int

const (
	// RoutePublic needs no credential and never redirects.
	RoutePublic RouteClass = iota
	// RoutePublicOnly is a page meant for anonymous visitors (login, register).
	RoutePublicOnly
	// RouteProtectedAPI requires a valid session and answers 401 JSON without one.
	RouteProtectedAPI
	// RouteProtectedPage requires a valid session and redirects to login without one.
	RouteProtectedPage
)

// Page paths served by the pages handler.
const (
	LoginPage           = "/app/login"
	RegisterPage        = "/app/register"
	ClientDashboardPage = "/app/dashboard/client"
	AgentDashboardPage  = "/app/dashboard/agent"
	TicketPagePrefix    = "/app/tickets/"
)

// Route is a classified path with the roles allowed to see it. Empty Roles means any role.
type Route struct {
	Class RouteClass
	Roles []domain.Role
}

// Allows reports whether role may access the route.
func (r Route) Allows(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var protectedAPIPrefixes = []string{"/tickets", "/comments", "/auth/me", "/auth/logout"}

// Classify maps a request path to its route class.
func Classify(path string) Route {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	switch path {
	case LoginPage, RegisterPage:
		return Route{Class: RoutePublicOnly}
	case ClientDashboardPage:
		return Route{Class: RouteProtectedPage, Roles: []domain.Role{domain.RoleClient}}
	case AgentDashboardPage:
		return Route{Class: RouteProtectedPage, Roles: []domain.Role{domain.RoleAgent}}
	}
	if strings.HasPrefix(path, TicketPagePrefix) || strings.HasPrefix(path, "/app/") {
		return Route{Class: RouteProtectedPage}
	}
	for _, prefix := range protectedAPIPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return Route{Class: RouteProtectedAPI}
		}
	}
	return Route{Class: RoutePublic}
}

// Outcome is what the guard does with a request.
type Outcome int

const (
	Pass Outcome = iota
	RejectUnauthenticated
	RedirectLogin
	RedirectDashboard
)

// Decision is the guard's verdict; Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// DashboardFor returns the landing page of a role.
func DashboardFor(role domain.Role) string {
	if role == domain.RoleAgent {
		return AgentDashboardPage
	}
	return ClientDashboardPage
}

// Decide applies the session policy. user is nil when the request carries no
// valid credential. Forbidden content is never served; a role mismatch sends the
// caller to their own dashboard.
func Decide(route Route, user *domain.User) Decision {
	switch route.Class {
	case RouteProtectedAPI:
		if user == nil {
			return Decision{Outcome: RejectUnauthenticated}
		}
	case RouteProtectedPage:
		if user == nil {
			return Decision{Outcome: RedirectLogin, Location: LoginPage}
		}
		if !route.Allows(user.Role) {
			return Decision{Outcome: RedirectDashboard, Location: DashboardFor(user.Role)}
		}
	case RoutePublicOnly:
		if user != nil {
			return Decision{Outcome: RedirectDashboard, Location: DashboardFor(user.Role)}
		}
	}
	return Decision{Outcome: Pass}
}
