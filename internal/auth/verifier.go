// Package auth validates Microsoft identity platform bearer tokens for the HTTP gateway
// and the gRPC service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for missing or invalid tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Options configures token validation.
type Options struct {
	Issuer   string
	Audience []string
	// Scope, when set, must appear in the token's scp claim.
	Scope  string
	Leeway time.Duration
}

// Verifier validates RS256 access tokens.
type Verifier struct {
	keyfunc jwt.Keyfunc
	opts    Options
	parser  *jwt.Parser
}

type tokenClaims struct {
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	Scope             string `json:"scp"`
	jwt.RegisteredClaims
}

// NewJWKSKeyfunc fetches and keeps refreshing the signing keys published at jwksURL.
func NewJWKSKeyfunc(ctx context.Context, jwksURL string) (jwt.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}
	return k.Keyfunc, nil
}

// NewVerifier constructs a verifier using kf to look up signing keys.
func NewVerifier(kf jwt.Keyfunc, opts Options) *Verifier {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	return &Verifier{keyfunc: kf, opts: opts, parser: jwt.NewParser(parserOpts...)}
}

// Verify parses and validates raw, returning the principal it describes.
func (v *Verifier) Verify(raw string) (*Principal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	claims := &tokenClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if len(v.opts.Audience) > 0 && !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(v.opts.Audience, aud)
	}) {
		return nil, fmt.Errorf("%w: token audience %v not accepted", ErrUnauthenticated, []string(claims.Audience))
	}

	p := &Principal{
		Name:     claims.Name,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		ObjectID: claims.ObjectID,
		TenantID: claims.TenantID,
		Scopes:   strings.Fields(claims.Scope),
	}
	if p.Email == "" {
		p.Email = p.Username
	}
	if p.Name == "" {
		p.Name = p.Username
	}
	if v.opts.Scope != "" && !p.HasScope(v.opts.Scope) {
		return nil, fmt.Errorf("%w: scope %s not granted", ErrUnauthenticated, v.opts.Scope)
	}
	return p, nil
}
