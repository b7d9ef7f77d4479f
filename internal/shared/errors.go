package shared

import "errors"

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing or unusable access token.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the principal lacks a required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates a malformed or rejected request payload.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited indicates a per-user action cooldown was hit.
	ErrRateLimited = errors.New("rate limited")
)

// UserSafeMessage returns err's message for errors that are safe to show to
// clients and a generic fallback for everything else.
func UserSafeMessage(err error) string {
	for _, known := range []error{ErrNotFound, ErrDuplicate, ErrInvalidCredentials, ErrUnauthenticated, ErrForbidden, ErrValidation, ErrRateLimited} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "internal error"
}
