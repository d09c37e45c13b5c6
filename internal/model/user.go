package model

import "time"

// User is a registered account. Identity fields are immutable after registration.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Superuser    bool      `json:"is_superuser"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the identity making a request.
// The zero value is the anonymous principal.
type Principal struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Superuser     bool   `json:"superuser"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{}
}

// PrincipalFor builds an authenticated principal for a user.
func PrincipalFor(u *User) Principal {
	return Principal{
		UserID:        u.ID,
		Username:      u.Username,
		Superuser:     u.Superuser,
		Authenticated: true,
	}
}

// Owns reports whether the principal is the owner of the poll.
func (p Principal) Owns(poll *Poll) bool {
	return p.Authenticated && p.UserID != "" && p.UserID == poll.OwnerID
}
