package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/claims"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// AuthService exchanges a username and password for a signed credential.
type AuthService interface {
	// Login returns ErrInvalidCredentials for an unknown user and for a wrong password alike.
	Login(ctx context.Context, dto LoginDto) (*LoginResultDto, error)
}

// dummyHash is compared against when the user does not exist, so an unknown
// username costs the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("retail-inventory-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to generate dummy password hash: %v", err))
	}
	return hash
})

// Auth implements AuthService over the user store and the credential issuer.
type Auth struct {
	users   store.UserStore
	issuer  *claims.Issuer
	logger  *slog.Logger
	compare func(hash, password []byte) error
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users store.UserStore, issuer *claims.Issuer, logger *slog.Logger) *Auth {
	return &Auth{users: users, issuer: issuer, logger: logger, compare: bcrypt.CompareHashAndPassword}
}

func (s *Auth) Login(ctx context.Context, dto LoginDto) (*LoginResultDto, error) {
	user, err := s.users.FindByUsername(ctx, dto.Username)
	if errors.Is(err, inverrors.ErrUserNotFound) {
		_ = s.compare(dummyHash(), []byte(dto.Password))
		s.logger.InfoContext(ctx, "login failed", "username", dto.Username, "reason", "unknown user")
		return nil, inverrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := s.compare([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.InfoContext(ctx, "login failed", "username", dto.Username, "reason", "password mismatch")
		return nil, inverrors.ErrInvalidCredentials
	}

	role, err := authz.ParseRole(user.Role)
	if err != nil {
		return nil, fmt.Errorf("user %s has an unusable role: %w", user.Username, err)
	}
	cred, err := s.issuer.Issue(claims.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     role,
		StoreID:  user.StoreID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}
	return &LoginResultDto{Token: cred.Token, Role: role.String(), ExpiresAt: cred.ExpiresAt}, nil
}
