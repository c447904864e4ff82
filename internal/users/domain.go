package users

import (
	"time"

	"github.com/protrack-gov/protrack/internal/authz"
)

// User represents a user account for management. The password hash never
// leaves the repository layer.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
