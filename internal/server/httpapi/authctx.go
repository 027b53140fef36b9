package httpapi

import (
	"context"

	"github.com/and161185/authcore/internal/model"
)

type ctxKey string

const principalKey ctxKey = "authcore.principal"

// WithPrincipal stores the resolved request principal in context.
func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the request principal from context; ok is false
// for anonymous requests.
func PrincipalFromCtx(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*model.Principal)
	return p, ok && p != nil
}
