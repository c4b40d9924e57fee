package auth

import "errors"

// Sentinel errors shared across the session, rbac and handler layers.
// Handlers map these to HTTP statuses in exactly one place.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrNoToken         = errors.New("no session token")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")

	// ErrStoreUnavailable signals a transient infrastructure failure. It is
	// never downgraded to "authenticated" or "allowed".
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsUnauthenticated reports whether err means the caller holds no usable
// session, as opposed to holding one that lacks privileges.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoToken) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired)
}
