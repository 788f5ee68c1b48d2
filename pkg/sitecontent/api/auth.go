package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
)

// AdminRole is the role claim required on admin tokens.
const AdminRole = "admin"

// NewTokenAuth creates the HS256 verifier for admin routes.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// MintToken issues an admin token for subject valid for ttl.
func MintToken(tokenAuth *jwtauth.JWTAuth, subject string, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"sub":  subject,
		"role": AdminRole,
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}
	_, token, err := tokenAuth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// requireAdmin rejects verified tokens that lack the admin role.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || claims["role"] != AdminRole {
			writeError(w, r, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
