package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(raw string) (*Principal, error)
}

// Middleware authenticates HTTP requests. A nil verifier disables authentication and
// injects DevPrincipal. Paths in public pass through untouched.
func Middleware(verifier TokenVerifier, logger *slog.Logger, public ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}
			if verifier == nil {
				dev := DevPrincipal
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &dev)))
				return
			}

			principal, err := verifier.Verify(extractToken(r))
			if err != nil {
				logger.Warn("request rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			logger.Debug("request authenticated", slog.String("user", principal.Username), slog.String("path", r.URL.Path))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// UnaryServerInterceptor authenticates gRPC calls from the authorization metadata.
// Methods listed in public (full method names) skip authentication.
func UnaryServerInterceptor(verifier TokenVerifier, public ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		for _, m := range public {
			if info.FullMethod == m {
				return handler(ctx, req)
			}
		}
		if verifier == nil {
			dev := DevPrincipal
			return handler(WithPrincipal(ctx, &dev), req)
		}
		var raw string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				raw = bearer(values[0])
			}
		}
		principal, err := verifier.Verify(raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(WithPrincipal(ctx, principal), req)
	}
}

// extractToken reads the bearer token from the Authorization header, falling back to
// the token query parameter that browsers use for WebSocket upgrades.
func extractToken(r *http.Request) string {
	if token := bearer(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func bearer(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
