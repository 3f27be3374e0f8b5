package middleware

import "context"

type userKey struct{}

// UserCtx is the caller identity resolved by Identify.
type UserCtx struct {
	UserID    int64
	SessionID string
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) UserCtx {
	if v := ctx.Value(userKey{}); v != nil {
		if u, ok := v.(UserCtx); ok {
			return u
		}
	}
	return UserCtx{}
}

// UserID returns the authenticated user, or 0 for anonymous requests.
func UserID(ctx context.Context) int64 { return FromCtx(ctx).UserID }
