package auth

import (
	"context"
	"strings"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// Service wraps the login, signup, and token refresh business rules.
type Service struct {
	repo   Repository
	hasher *Hasher
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher, tokens *TokenManager) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// Login verifies identifier/password credentials and issues a token pair
// carrying the user's current role. Every failure path returns the same
// generic error so callers cannot probe which part was wrong.
func (s *Service) Login(ctx context.Context, identifier, password string) (*User, TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, TokenPair{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, TokenPair{}, shared.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, TokenPair{}, shared.ErrInvalidCredentials
	}
	pair, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Register creates a new user account with a hashed password and the
// default role. The plaintext password is never stored or logged.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         shared.RoleUser,
		IsActive:     true,
	})
}

// Refresh exchanges a valid refresh token for a new access token. The new
// token snapshots the user's current role, so a role change takes effect
// here even though outstanding access tokens keep their stale claim.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", shared.ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", shared.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", shared.ErrUnauthenticated
	}
	if !user.IsActive {
		return "", shared.ErrUnauthenticated
	}
	return s.tokens.IssueAccess(user.ID, user.Role)
}
