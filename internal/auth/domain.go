package auth

import (
	"time"

	"github.com/protrack-gov/protrack/internal/authz"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity converts the account into the actor shape the gate and resolver
// work with.
func (u *User) Identity() authz.Identity {
	return authz.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
