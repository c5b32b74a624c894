package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated portal user.
type Principal struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	ObjectID string   `json:"oid"`
	TenantID string   `json:"tid"`
	Scopes   []string `json:"scopes"`
}

// HasScope reports whether the token granted scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// DevPrincipal is injected when authentication is disabled.
var DevPrincipal = Principal{
	Name:     "Dev User",
	Username: "dev@partner-metrics.local",
	Email:    "dev@partner-metrics.local",
	Scopes:   []string{"User.Read"},
}

type contextKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by the middleware or interceptor.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}
