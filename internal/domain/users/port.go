package users

import "context"

// Repository port for user accounts
type Repository interface {
	Create(ctx context.Context, u *User) (string, error)
	// GetByEmail returns (nil, nil) when no user has that email.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
