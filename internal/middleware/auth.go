package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pasticeri/api/internal/auth"
	"github.com/pasticeri/api/internal/enum"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate validates the bearer access token and stores its claims on the
// request context. Tokens without an email or with an unknown role are rejected.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			if strings.TrimSpace(claims.Email) == "" || !knownRole(claims.Role) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token does not identify a bakery account"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization format"
	}
	return strings.TrimSpace(token), ""
}

func knownRole(role string) bool {
	return role == enum.UserRoleUser || role == enum.UserRoleAdmin
}

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

// RequireAdmin guards shop management endpoints.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(enum.UserRoleAdmin)
}

// RequireCustomer admits any signed-in account able to place orders, admins included.
func RequireCustomer() func(http.Handler) http.Handler {
	return RequireRole(enum.UserRoleUser, enum.UserRoleAdmin)
}

// CanViewOrder reports whether claims may read an order placed by ownerEmail.
func CanViewOrder(claims *auth.Claims, ownerEmail string) bool {
	if claims == nil {
		return false
	}
	if claims.Role == enum.UserRoleAdmin {
		return true
	}
	owner, caller := strings.TrimSpace(ownerEmail), strings.TrimSpace(claims.Email)
	return owner != "" && strings.EqualFold(owner, caller)
}

// WithClaims stores validated claims on the context.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
