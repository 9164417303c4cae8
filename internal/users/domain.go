package users

import "time"

// User represents a managed user account. The password hash never leaves
// the server, and identity and email are immutable after creation.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminUpdate carries the admin-mutable fields. Nil means leave unchanged.
type AdminUpdate struct {
	Role     *string
	IsActive *bool
}
