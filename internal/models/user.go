package models

import (
	"time"
)

// User is the journaling profile. It is created lazily on first submission and keyed by the
// account id issued by the auth layer.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Memory          []string   `json:"memory"`
	Details         string     `json:"details"`
	MemoryEnabledAt *time.Time `json:"memoryEnabledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Account is the sign-in identity behind a User.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	IsActive  bool      `json:"isActive"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}

// Identity is what the auth layer reports for an authenticated request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
