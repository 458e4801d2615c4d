package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminOption tightens admin token validation.
type AdminOption func(*adminAuth)

type adminAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// WithAdminIssuer requires the token's iss claim to match issuer.
func WithAdminIssuer(issuer string) AdminOption {
	return func(a *adminAuth) { a.issuer = strings.TrimSpace(issuer) }
}

// WithAdminLeeway tolerates clock skew when checking exp and nbf.
func WithAdminLeeway(d time.Duration) AdminOption {
	return func(a *adminAuth) { a.leeway = d }
}

// AdminJWT guards studio-admin routes such as e-transfer verification with an
// HS256 bearer token. An empty secret rejects every request.
func AdminJWT(secret string, opts ...AdminOption) func(http.Handler) http.Handler {
	auth := &adminAuth{secret: []byte(secret)}
	for _, opt := range opts {
		opt(auth)
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if auth.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(auth.issuer))
	}
	if auth.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(auth.leeway))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(auth.secret) == 0 {
				unauthorized(w, "admin auth disabled")
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing authorization header")
				return
			}
			claims := jwt.RegisteredClaims{}
			token, err := parser.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(*jwt.Token) (any, error) {
				return auth.secret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	respond.JSON(w, http.StatusUnauthorized, respond.ErrorBody{Error: msg})
}
