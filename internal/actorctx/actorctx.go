// Package actorctx carries the authenticated user id on a request context so
// code below the HTTP layer (logging, storage) can see who is acting.
package actorctx

import (
	"context"
)

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)

	return v, ok && v != ""
}
