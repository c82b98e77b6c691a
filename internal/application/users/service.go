package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/guyp-app/plantcare-api/internal/application"
	domain "github.com/guyp-app/plantcare-api/internal/domain/users"
)

// Service implements signup/signin.
type Service struct {
	Repo      domain.Repository
	JWTSecret []byte
	Clock     application.Clock
}

type RegisterCommand struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginCommand struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned to the client; the password hash never leaves the domain.
type AuthResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Register creates a new account and issues an access token.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if len(name) < 2 {
		return AuthResult{}, fmt.Errorf("%w: name must have at least 2 characters", domain.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return AuthResult{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(cmd.Password) < 8 {
		return AuthResult{}, fmt.Errorf("%w: password must have at least 8 characters", domain.ErrInvalidInput)
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if existing != nil {
		return AuthResult{}, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	u := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.Clock.Now(),
	}
	id, err := s.Repo.Create(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.accessToken(id)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{ID: id, Name: name, Email: email, Token: token}, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if u == nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.Password)) != nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	token, err := s.accessToken(u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{ID: u.ID, Name: u.Name, Email: u.Email, Token: token}, nil
}

func (s *Service) accessToken(userID string) (string, error) {
	claims := jwt.MapClaims{"user_id": userID}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}
