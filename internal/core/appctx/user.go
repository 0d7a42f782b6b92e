// Package appctx carries request-scoped identity and trace data.
package appctx

import "context"

// UserContext describes the authenticated caller.
// Populated by the auth middleware from validated token claims.
type UserContext struct {
	UserID string
	Name   string

	// PrivilegeLevel is the caller's numeric privilege; approval routes
	// require it to meet a configured threshold.
	PrivilegeLevel int
}

type userKey struct{}

// WithUser stores the user context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the user context, or nil when unauthenticated.
func GetUser(ctx context.Context) *UserContext {
	if u, ok := ctx.Value(userKey{}).(*UserContext); ok {
		return u
	}
	return nil
}

// UserID returns the caller's ID or empty string.
func UserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
