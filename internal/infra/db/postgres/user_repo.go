package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	analysisdomain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
	domain "github.com/guyp-app/plantcare-api/internal/domain/users"
)

type UserRepository struct{ db *sql.DB }

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

// Create inserts a user, generating the id when absent.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (string, error) {
	const q = `
INSERT INTO users (id, name, email, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5);`

	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, q, id, u.Name, u.Email, u.PasswordHash, created); err != nil {
		return "", storageErr("insert user", err)
	}
	u.ID = id
	return id, nil
}

// GetByEmail returns (nil, nil) when no user has that email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT id, name, email, password_hash, created_at
FROM users WHERE email=$1
LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get user by email", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT id, name, email, password_hash, created_at
FROM users WHERE id=$1
LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysisdomain.ErrNotFound
		}
		return nil, storageErr("get user", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
