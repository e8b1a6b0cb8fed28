package credentials

import (
	"context"
	"strings"
)

// DefaultUser is the identity used when a request names none.
const DefaultUser = "local"

type userKey struct{}

// WithUser attaches the acting user ID to ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the acting user ID, or DefaultUser.
func UserFrom(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return DefaultUser
}
