package domain

import (
	"strings"
	"time"
)

// Role is one of the two static roles of the helpdesk.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAgent
}

// ParseRole normalizes raw input. An empty value defaults to client.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		return RoleClient, true
	}
	return role, role.Valid()
}

// User is an account that can file or work tickets. Role never changes after creation.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// IsAgent reports whether the user has the agent role.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleAgent
}

// Sanitized returns a copy without the password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// NormalizeEmail lower-cases and trims an email used as a login key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
