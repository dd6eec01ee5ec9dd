// Package identity resolves which principal is making a ledger call.
package identity

import (
	"context"
	"net/http"
	"strings"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// HeaderName carries the caller identity set by a trusted upstream.
const HeaderName = "X-Caller-Identity"

type Provider interface {
	CallerIdentity(ctx context.Context) (string, error)
}

type contextKey struct{}

// WithCaller returns a copy of ctx carrying id.
func WithCaller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithCaller.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// ContextProvider reads the identity placed on the context by HeaderMiddleware or WithCaller.
type ContextProvider struct{}

func (ContextProvider) CallerIdentity(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", customError.WrapMissingIdentity()
	}
	return id, nil
}

// HeaderMiddleware copies the identity header into the request context.
// Requests without it pass through; operations that need a caller fail later.
func HeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(HeaderName)); id != "" {
			r = r.WithContext(WithCaller(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
