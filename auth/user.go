// Package auth manages user accounts: password and Google sign-in, roles
// and password reset.
package auth

import (
	"time"

	"github.com/pkg/errors"
)

// Roles, from least to most privileged.
const (
	RoleReader = "reader"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Sign-in providers.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Errors are worded for display to the user.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrUserExists         = errors.New("User already registered")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrInvalidToken       = errors.New("Token has expired or is invalid")
	ErrEmailNotVerified   = errors.New("Email address is not verified")
	ErrNotFound           = errors.New("User not found")
)

const minPasswordLength = 6

// User is a registered account. Its ID doubles as the device id of every
// browser the user signs in from.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Provider     string    `db:"provider" json:"provider"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsEditor is true for editors and admins.
func (u User) IsEditor() bool { return u.Role == RoleEditor || u.Role == RoleAdmin }

func rank(role string) int {
	switch role {
	case RoleAdmin:
		return 2
	case RoleEditor:
		return 1
	}
	return 0
}
