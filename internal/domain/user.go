package domain

import (
	"context"
	"time"
)

// User is a login identity. Employees and restaurants each own one.
type User struct {
	ID           int64
	Username     string // unique
	Email        string
	PasswordHash string // bcrypt, never serialized
	IsAdmin      bool
	DateJoined   time.Time
}

func (u *User) DisplayName() string { return u.Username }

// UserRepository defines data access for users
type UserRepository interface {
	// Create inserts the user and fills ID. A taken username yields ErrDuplicate.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
