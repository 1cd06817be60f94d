package domain

import "time"

// Identity is what a verified session token proves about its bearer.
type Identity struct {
	UserID    string
	Role      Role
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Session is an issued token together with its expiry.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}
