package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/server/middleware"
)

type AdminModelSummary struct {
	ContentType       string `json:"content_type"`
	Name              string `json:"name"`
	VerboseNamePlural string `json:"verbose_name_plural"`
}

type AdminIndexOutput struct {
	Body struct {
		Header string              `json:"header"`
		Models []AdminModelSummary `json:"models"`
	}
}

type AdminModelInput struct {
	ContentType string `path:"content_type" doc:"Model content type, e.g. imagemaster"`
}

type AdminMetaOutput struct {
	Body *admin.ModelAdmin
}

type AdminListInput struct {
	ContentType string `path:"content_type"`
	Page        int    `query:"page" minimum:"1" default:"1"`
	PerPage     int    `query:"per_page" minimum:"0" maximum:"1000" default:"0" doc:"Defaults to the model's list_per_page"`
	Q           string `query:"q" maxLength:"200" doc:"Search over search_fields"`
	Ordering    string `query:"ordering" maxLength:"64" doc:"Column, prefixed with - for descending"`
}

type AdminListOutput struct {
	Body *admin.Page
}

type AdminObjectInput struct {
	ContentType string `path:"content_type"`
	ID          int64  `path:"id"`
}

type AdminObjectOutput struct {
	Body any
}

type AdminCreateInput struct {
	ContentType string `path:"content_type"`
	Body        map[string]any
}

type AdminUpdateInput struct {
	ContentType string `path:"content_type"`
	ID          int64  `path:"id"`
	Body        map[string]any
}

type AdminActionInput struct {
	ContentType string `path:"content_type"`
	Action      string `path:"action"`
	Body        struct {
		IDs []int64 `json:"ids" minItems:"1" maxItems:"1000" doc:"Selected record IDs"`
	}
}

type AdminActionOutput struct {
	Body struct {
		Action   string `json:"action"`
		Affected int    `json:"affected"`
	}
}

type AdminLogInput struct {
	ContentType string `query:"content_type" doc:"Only entries for this model"`
	ObjectID    string `query:"object_id" doc:"Only entries for this record; needs content_type"`
	Limit       int    `query:"limit" minimum:"1" maximum:"200" default:"50"`
	Offset      int    `query:"offset" minimum:"0" default:"0"`
}

type AdminLogOutput struct {
	Body []*domain.AdminLogEntry
}

// RegisterAdminRoutes mounts the generic admin. Every operation runs inside
// the tenant schema resolved from the Host header and needs the owner or
// staff role.
func RegisterAdminRoutes(api huma.API, site *admin.Site, store AdminStore, adminLog domain.AdminLogRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-index",
		Method:      http.MethodGet,
		Path:        "/admin",
		Summary:     "List registered admin models",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, _ *struct{}) (*AdminIndexOutput, error) {
		if _, err := adminScope(ctx); err != nil {
			return nil, err
		}

		out := &AdminIndexOutput{}
		out.Body.Header = site.Header
		out.Body.Models = make([]AdminModelSummary, 0)
		for _, ma := range site.Admins() {
			out.Body.Models = append(out.Body.Models, AdminModelSummary{
				ContentType:       ma.ContentType,
				Name:              ma.Name,
				VerboseNamePlural: ma.VerboseNamePlural,
			})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-log",
		Method:      http.MethodGet,
		Path:        "/admin/log",
		Summary:     "Recent admin changes on this tenant",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminLogInput) (*AdminLogOutput, error) {
		scope, err := adminScope(ctx)
		if err != nil {
			return nil, err
		}

		var entries []*domain.AdminLogEntry
		if input.ContentType != "" && input.ObjectID != "" {
			entries, err = adminLog.ListByObject(ctx, scope.TenantID, input.ContentType, input.ObjectID)
		} else {
			entries, err = adminLog.ListByTenant(ctx, scope.TenantID, input.Limit, input.Offset)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load admin log", err)
		}
		if entries == nil {
			entries = []*domain.AdminLogEntry{}
		}
		return &AdminLogOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-meta",
		Method:      http.MethodGet,
		Path:        "/admin/{content_type}/_meta",
		Summary:     "Describe a model: columns, fieldsets, actions",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminModelInput) (*AdminMetaOutput, error) {
		if _, err := adminScope(ctx); err != nil {
			return nil, err
		}

		ma, err := site.Lookup(input.ContentType)
		if err != nil {
			return nil, toHTTPError(err, "")
		}
		return &AdminMetaOutput{Body: ma}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-list",
		Method:      http.MethodGet,
		Path:        "/admin/{content_type}",
		Summary:     "List records",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminListInput) (*AdminListOutput, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		page, err := store.List(ctx, scope, ma, admin.ListParams{
			Page:     input.Page,
			PerPage:  input.PerPage,
			Query:    input.Q,
			Ordering: input.Ordering,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to list records")
		}
		return &AdminListOutput{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "admin-create",
		Method:        http.MethodPost,
		Path:          "/admin/{content_type}",
		Summary:       "Create a record",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AdminCreateInput) (*AdminObjectOutput, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		obj, err := store.Create(ctx, scope, ma, input.Body)
		if err != nil {
			return nil, toHTTPError(err, "failed to create record")
		}
		return &AdminObjectOutput{Body: obj}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-get",
		Method:      http.MethodGet,
		Path:        "/admin/{content_type}/{id}",
		Summary:     "Get a record",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminObjectInput) (*AdminObjectOutput, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		obj, err := store.Get(ctx, scope, ma, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get record")
		}
		return &AdminObjectOutput{Body: obj}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-update",
		Method:      http.MethodPatch,
		Path:        "/admin/{content_type}/{id}",
		Summary:     "Update a record; read-only fields are ignored",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminUpdateInput) (*AdminObjectOutput, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		obj, err := store.Update(ctx, scope, ma, input.ID, input.Body)
		if err != nil {
			return nil, toHTTPError(err, "failed to update record")
		}
		return &AdminObjectOutput{Body: obj}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "admin-delete",
		Method:        http.MethodDelete,
		Path:          "/admin/{content_type}/{id}",
		Summary:       "Delete a record",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *AdminObjectInput) (*struct{}, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		if err := store.Delete(ctx, scope, ma, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete record")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-action",
		Method:      http.MethodPost,
		Path:        "/admin/{content_type}/actions/{action}",
		Summary:     "Run a bulk action on the selected records",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminActionInput) (*AdminActionOutput, error) {
		scope, ma, err := adminModel(ctx, site, input.ContentType)
		if err != nil {
			return nil, err
		}

		n, err := store.RunAction(ctx, scope, ma, input.Action, input.Body.IDs)
		if err != nil {
			return nil, toHTTPError(err, "action failed")
		}

		out := &AdminActionOutput{}
		out.Body.Action = input.Action
		out.Body.Affected = n
		return out, nil
	})
}

func adminScope(ctx context.Context) (admin.Scope, error) {
	tenantID, err := requireRole(ctx, domain.RoleOwner, domain.RoleStaff)
	if err != nil {
		return admin.Scope{}, err
	}
	schema, ok := middleware.SchemaFromContext(ctx)
	if !ok || schema == "" || schema == domain.PublicSchema {
		return admin.Scope{}, huma.Error404NotFound("only available on a tenant host")
	}
	userID, role, _ := requireUser(ctx)

	return admin.Scope{TenantID: tenantID, Schema: schema, UserID: userID, Role: role}, nil
}

func adminModel(ctx context.Context, site *admin.Site, contentType string) (admin.Scope, *admin.ModelAdmin, error) {
	scope, err := adminScope(ctx)
	if err != nil {
		return admin.Scope{}, nil, err
	}
	ma, err := site.Lookup(contentType)
	if err != nil {
		return admin.Scope{}, nil, toHTTPError(err, "")
	}
	return scope, ma, nil
}
