package auth

import (
	"context"

	"github.com/plannerhq/schedassist/internal/store"
)

type contextKey string

const contextKeyToken contextKey = "api_token"

func WithToken(ctx context.Context, token *store.APIToken) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}

func TokenFromContext(ctx context.Context) (*store.APIToken, bool) {
	t, ok := ctx.Value(contextKeyToken).(*store.APIToken)
	return t, ok
}
