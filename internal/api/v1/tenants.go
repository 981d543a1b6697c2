package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/tenancy"
)

type CreateTenantInput struct {
	Body struct {
		Name         string     `json:"name" minLength:"1" maxLength:"100" doc:"Tenant name"`
		SchemaName   string     `json:"schema_name,omitempty" maxLength:"63" pattern:"^[a-z_][a-z0-9_]*$" doc:"Schema name; derived from the name when empty"`
		Hostname     string     `json:"hostname" minLength:"1" maxLength:"253" doc:"Primary domain"`
		PaidUntil    time.Time  `json:"paid_until" doc:"End of the paid period"`
		OnTrial      bool       `json:"on_trial,omitempty" doc:"Tenant is on a trial"`
		OwnerID      *uuid.UUID `json:"owner_id,omitempty" doc:"Existing user to make owner"`
		CreateSchema *bool      `json:"create_schema,omitempty" doc:"Override the auto create schema setting"`
	}
}

type CreateTenantOutput struct {
	Body struct {
		Tenant *domain.Tenant `json:"tenant"`
		Domain *domain.Domain `json:"domain"`
	}
}

type ListTenantsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Max results"`
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListTenantsOutput struct {
	Body []*domain.Tenant
}

type TenantIDInput struct {
	ID uuid.UUID `path:"id" doc:"Tenant ID"`
}

type TenantOutput struct {
	Body *domain.Tenant
}

type UpdateTenantInput struct {
	ID   uuid.UUID `path:"id" doc:"Tenant ID"`
	Body struct {
		Name      *string    `json:"name,omitempty" minLength:"1" maxLength:"100"`
		PaidUntil *time.Time `json:"paid_until,omitempty"`
		OnTrial   *bool      `json:"on_trial,omitempty"`
	}
}

type ListDomainsOutput struct {
	Body []*domain.Domain
}

type AddDomainInput struct {
	ID   uuid.UUID `path:"id" doc:"Tenant ID"`
	Body struct {
		Hostname string `json:"hostname" minLength:"1" maxLength:"253"`
	}
}

type DomainOutput struct {
	Body *domain.Domain
}

type RemoveDomainInput struct {
	ID       uuid.UUID `path:"id" doc:"Tenant ID"`
	DomainID uuid.UUID `path:"domainID" doc:"Domain ID"`
}

// RegisterTenantRoutes mounts tenant management. Every operation is
// restricted to superusers on the public host.
func RegisterTenantRoutes(api huma.API, svc TenantService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          "/tenants",
		Summary:       "Create a tenant with its schema and primary domain",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		t, d, err := svc.Create(ctx, tenancy.CreateInput{
			Name:         input.Body.Name,
			SchemaName:   input.Body.SchemaName,
			Hostname:     input.Body.Hostname,
			PaidUntil:    input.Body.PaidUntil,
			OnTrial:      input.Body.OnTrial,
			OwnerID:      input.Body.OwnerID,
			CreateSchema: input.Body.CreateSchema,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create tenant")
		}

		out := &CreateTenantOutput{}
		out.Body.Tenant = t
		out.Body.Domain = d
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List all tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		tenants, err := svc.List(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tenants", err)
		}

		return &ListTenantsOutput{Body: tenants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{id}",
		Summary:     "Get a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantIDInput) (*TenantOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		t, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get tenant")
		}
		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant",
		Method:      http.MethodPatch,
		Path:        "/tenants/{id}",
		Summary:     "Update tenant billing fields",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *UpdateTenantInput) (*TenantOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		t, err := svc.Update(ctx, input.ID, tenancy.UpdateInput{
			Name:      input.Body.Name,
			PaidUntil: input.Body.PaidUntil,
			OnTrial:   input.Body.OnTrial,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to update tenant")
		}
		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant",
		Method:        http.MethodDelete,
		Path:          "/tenants/{id}",
		Summary:       "Delete a tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *TenantIDInput) (*struct{}, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete tenant")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-domains",
		Method:      http.MethodGet,
		Path:        "/tenants/{id}/domains",
		Summary:     "List the domains of a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantIDInput) (*ListDomainsOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		domains, err := svc.ListDomains(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list domains")
		}
		return &ListDomainsOutput{Body: domains}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-domain",
		Method:        http.MethodPost,
		Path:          "/tenants/{id}/domains",
		Summary:       "Attach another hostname to a tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddDomainInput) (*DomainOutput, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		d, err := svc.AddDomain(ctx, input.ID, input.Body.Hostname)
		if err != nil {
			return nil, toHTTPError(err, "failed to add domain")
		}
		return &DomainOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-domain",
		Method:        http.MethodDelete,
		Path:          "/tenants/{id}/domains/{domainID}",
		Summary:       "Detach a hostname from a tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RemoveDomainInput) (*struct{}, error) {
		if err := requireSuperuser(ctx); err != nil {
			return nil, err
		}

		if err := svc.RemoveDomain(ctx, input.ID, input.DomainID); err != nil {
			return nil, toHTTPError(err, "failed to remove domain")
		}
		return nil, nil
	})
}
