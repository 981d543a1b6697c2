package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/auth"
)

// Auth validates the bearer access token. The token's tenant must match the
// tenant resolved from the Host header, so a token issued on one tenant host
// is useless on another. Must run after ResolveTenant.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				// Browsers cannot set headers on websocket upgrades.
				tok = r.URL.Query().Get("access_token")
			}
			if tok == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tok)
			if err != nil || !claims.IsAccess() {
				unauthorized(w)
				return
			}

			tokenTenant, userID, err := claims.IDs()
			if err != nil {
				unauthorized(w)
				return
			}

			hostTenant, _ := TenantIDFromContext(r.Context())
			if tokenTenant != hostTenant {
				log.Debug().
					Str("token_tenant", tokenTenant.String()).
					Str("host_tenant", hostTenant.String()).
					Msg("auth: token used on another tenant")
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, claims.Role)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
