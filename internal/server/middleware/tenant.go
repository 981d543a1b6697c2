package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// HostResolver maps a Host header to a tenant schema.
// *tenancy.Resolver satisfies this interface.
type HostResolver interface {
	Resolve(ctx context.Context, host string) (*tenancy.Resolution, error)
}

// AllowedHosts rejects requests whose Host is not listed. "*" allows every
// host; a leading dot matches the domain and all of its subdomains.
func AllowedHosts(hosts []string) func(http.Handler) http.Handler {
	allowAll := false
	patterns := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "*" {
			allowAll = true
		}
		if h != "" {
			patterns = append(patterns, h)
		}
	}

	return func(next http.Handler) http.Handler {
		if allowAll {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hostAllowed(domain.NormalizeHostname(r.Host), patterns) {
				http.Error(w, `{"title":"Bad Request","status":400,"detail":"invalid host header"}`, http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostAllowed(host string, patterns []string) bool {
	for _, p := range patterns {
		if suffix, ok := strings.CutPrefix(p, "."); ok {
			if host == suffix || strings.HasSuffix(host, p) {
				return true
			}
			continue
		}
		if host == p {
			return true
		}
	}
	return false
}

// ResolveTenant resolves the Host header and stores the tenant ID, schema
// and public flag in the request context.
func ResolveTenant(resolver HostResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := resolver.Resolve(r.Context(), r.Host)
			switch {
			case errors.Is(err, tenancy.ErrUnknownHost):
				http.Error(w, `{"title":"Not Found","status":404,"detail":"no tenant for this host"}`, http.StatusNotFound)
				return
			case err != nil:
				log.Error().Err(err).Str("host", r.Host).Msg("tenant: resolve failed")
				http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"tenant lookup failed"}`, http.StatusInternalServerError)
				return
			}

			tenantID := uuid.Nil
			if res.Tenant != nil {
				tenantID = res.Tenant.ID
			}
			ctx := WithTenant(r.Context(), tenantID, res.Schema, res.IsPublic())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests made on the public host.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid, ok := TenantIDFromContext(r.Context())
			if !ok || tid == uuid.Nil {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid tenant required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePublic rejects requests made on a tenant host.
func RequirePublic() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsPublicFromContext(r.Context()) {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"only served on the public host"}`, http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
