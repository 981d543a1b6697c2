package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/media"
	"github.com/equisy/equisy-api/internal/server/middleware"
)

// toHTTPError maps service sentinels onto huma status errors. msg is used
// for the 500 fallback only.
func toHTTPError(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, admin.ErrUnknownModel),
		errors.Is(err, admin.ErrUnknownAction), errors.Is(err, auth.ErrUserNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, auth.ErrUserAlreadyExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, auth.ErrNotMember):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return huma.Error401Unauthorized(err.Error())
	case errors.Is(err, admin.ErrInvalidInput), errors.Is(err, domain.ErrInvalidSchemaName),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, media.ErrInvalidKey):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError(msg, err)
}

// requireTenant returns the tenant resolved from the Host header. The
// public host has none.
func requireTenant(ctx context.Context) (uuid.UUID, error) {
	tid, ok := middleware.TenantIDFromContext(ctx)
	if !ok || tid == uuid.Nil {
		return uuid.Nil, huma.Error404NotFound("only available on a tenant host")
	}
	return tid, nil
}

func requireUser(ctx context.Context) (uuid.UUID, string, error) {
	uid, ok := middleware.UserIDFromContext(ctx)
	if !ok || uid == uuid.Nil {
		return uuid.Nil, "", huma.Error401Unauthorized("authentication required")
	}
	role, _ := middleware.RoleFromContext(ctx)
	return uid, role, nil
}

func requireSuperuser(ctx context.Context) error {
	if !middleware.IsPublicFromContext(ctx) {
		return huma.Error404NotFound("only available on the public host")
	}
	role, ok := middleware.RoleFromContext(ctx)
	if !ok || role != domain.RoleSuperuser {
		return huma.Error403Forbidden("superuser role required")
	}
	return nil
}
