package repository

import (
	"context"
	"errors"

	"github.com/tieubaoca/research-assistant/types"
)

var (
	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("user already exists")
	ErrNotFound   = errors.New("not found")
)

// UserRepo persists credentials. Implementations never update or delete rows.
type UserRepo interface {
	// CreateUser inserts user and fills in its ID. A uniqueness violation on
	// username or email yields ErrUserExists and leaves the stored row untouched.
	CreateUser(ctx context.Context, user *types.User) error
	// GetUserByUsername returns ErrNotFound when no row matches.
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
}
