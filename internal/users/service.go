package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// Service handles profile and admin user-management business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetProfile returns the user's own record.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUser(ctx, userID)
}

// UpdateProfile changes the user's own username. The username is the only
// self-service-mutable field; it is trimmed before the uniqueness check and
// an unchanged value is a no-op.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", shared.ErrValidation)
	}
	return s.repo.UpdateUsername(ctx, userID, username)
}

// GetUser returns any user record, for admin use.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateUser applies an admin update after validating the role value.
func (s *Service) UpdateUser(ctx context.Context, id int64, update AdminUpdate) (*User, error) {
	if update.Role != nil && !shared.ValidRole(*update.Role) {
		return nil, fmt.Errorf("%w: role must be one of %s", shared.ErrValidation,
			strings.Join(shared.Roles(), ", "))
	}
	return s.repo.AdminUpdateUser(ctx, id, update)
}

// DeleteUser removes a user. Deleting the requester's own account is
// rejected unconditionally, regardless of role or other admins existing.
func (s *Service) DeleteUser(ctx context.Context, id, requesterID int64) error {
	if id == requesterID {
		return shared.ErrSelfDelete
	}
	return s.repo.DeleteUser(ctx, id)
}

// ListUsers returns a 1-indexed page of users. An out-of-range page yields
// an empty item list with accurate totals rather than an error.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}
