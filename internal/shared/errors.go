package shared

import "errors"

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, invalid, or expired token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates a valid token with insufficient role.
	ErrForbidden = errors.New("admin access required")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("user not found")
	// ErrConflict indicates a duplicate username or email.
	ErrConflict = errors.New("username or email already taken")
	// ErrSelfDelete occurs when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
)
