package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// TokenIssuer signs bearer tokens for the local identity provider.
type TokenIssuer interface {
	Issue(id domain.Identity) (string, error)
}

// AuthService implements registration and login for the local identity provider.
type AuthService struct {
	repo     ports.AuthRepository
	profiles ports.ProfileRepository
	issuer   TokenIssuer
}

func NewAuthService(repo ports.AuthRepository, profiles ports.ProfileRepository, issuer TokenIssuer) *AuthService {
	return &AuthService{repo: repo, profiles: profiles, issuer: issuer}
}

// Register stores the credentials and creates the user's profile with the
// email's local part as the initial username.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.profiles.Ensure(ctx, &domain.Profile{
		UID:      created.ID,
		Email:    created.Email,
		Username: domain.DefaultUsernameFor(created.Email),
	}); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(domain.Identity{UID: user.ID, Email: user.Email})
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
