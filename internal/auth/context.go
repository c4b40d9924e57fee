package auth

import (
	"context"

	"shopcore/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the resolved caller attached to a request context by the
// session middleware.
type Identity struct {
	User    *models.User
	Session *models.Session
	Token   string
}

// RoleID returns the caller's role reference, or "" for role-less users.
func (id Identity) RoleID() string {
	if id.User == nil || id.User.RoleID == nil {
		return ""
	}
	return *id.User.RoleID
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Subject returns the authenticated user ID, or "" when unauthenticated.
func Subject(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.User != nil {
		return id.User.ID
	}
	return ""
}
