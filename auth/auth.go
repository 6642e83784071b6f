package auth

import "context"

type contextKey struct {
	name string
}

var roleKey = &contextKey{"role"}
var claimsKey = &contextKey{"claims"}

// AnonymousRole is assumed when the request carries no credentials.
const AnonymousRole = "anonymous"

func WithContextRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, roleKey, role)
}

func ContextRole(ctx context.Context) string {
	if ctx != nil {
		if val, ok := ctx.Value(roleKey).(string); ok {
			return val
		}
	}
	return AnonymousRole
}

func WithContextClaims(ctx context.Context, claims map[string]interface{}) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, claimsKey, claims)
}

func ContextClaims(ctx context.Context) map[string]interface{} {
	if ctx != nil {
		if val, ok := ctx.Value(claimsKey).(map[string]interface{}); ok {
			return val
		}
	}
	return nil
}
