package auth

import (
	"context"
)

// Role names carried in token claims
const (
	RoleEditor     = "editor"
	RoleReviewer   = "reviewer"
	RoleAdmin      = "admin"
	RoleAPIService = "api_service"
)

// SystemActor is the actor recorded for API-key and background operations
const SystemActor = "System"

// UserContext holds authenticated user information
type UserContext struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// ActorFromContext returns the display name recorded on dossier events.
// Unauthenticated and background contexts resolve to SystemActor.
func ActorFromContext(ctx context.Context) string {
	user, ok := FromContext(ctx)
	if !ok || user == nil {
		return SystemActor
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	if user.Email != "" {
		return user.Email
	}
	return SystemActor
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user administers templates and the placeholder catalog
func (u *UserContext) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RoleAPIService)
}

// CanApprove checks if user may set validation status on sections and placeholders
func (u *UserContext) CanApprove() bool {
	return u.HasAnyRole(RoleReviewer, RoleAdmin, RoleAPIService)
}
