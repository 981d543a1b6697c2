package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/domain"
)

type MeOutput struct {
	Body struct {
		User *domain.User `json:"user"`
		Role string       `json:"role"`
	}
}

type MemberBody struct {
	User *domain.User `json:"user"`
	Role string       `json:"role"`
}

type ListMembersOutput struct {
	Body []MemberBody
}

type AddMemberInput struct {
	Body struct {
		Email string `json:"email" minLength:"3" maxLength:"254" doc:"Email of an existing user"`
		Role  string `json:"role" enum:"owner,staff,member" doc:"Role inside this tenant"`
	}
}

type MemberOutput struct {
	Body MemberBody
}

type RemoveMemberInput struct {
	UserID uuid.UUID `path:"userID" doc:"User ID"`
}

// RegisterUserRoutes mounts the authenticated user endpoints.
func RegisterUserRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		userID, role, err := requireUser(ctx)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.GetUser(ctx, userID)
		if err != nil {
			return nil, toHTTPError(err, "failed to load user")
		}

		out := &MeOutput{}
		out.Body.User = user
		out.Body.Role = role
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/members",
		Summary:     "List the users of this tenant",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListMembersOutput, error) {
		tenantID, err := requireRole(ctx, domain.RoleOwner, domain.RoleStaff)
		if err != nil {
			return nil, err
		}

		members, err := authSvc.ListMembers(ctx, tenantID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list members", err)
		}

		out := &ListMembersOutput{Body: make([]MemberBody, 0, len(members))}
		for _, m := range members {
			out.Body = append(out.Body, MemberBody{User: m.User, Role: m.Role})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-member",
		Method:        http.MethodPost,
		Path:          "/members",
		Summary:       "Give an existing user a role in this tenant",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddMemberInput) (*MemberOutput, error) {
		tenantID, err := requireRole(ctx, domain.RoleOwner)
		if err != nil {
			return nil, err
		}

		m, err := authSvc.AddMember(ctx, tenantID, input.Body.Email, input.Body.Role)
		if err != nil {
			return nil, toHTTPError(err, "failed to add member")
		}
		return &MemberOutput{Body: MemberBody{User: m.User, Role: m.Role}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-member",
		Method:        http.MethodDelete,
		Path:          "/members/{userID}",
		Summary:       "Revoke a user's membership",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		tenantID, err := requireRole(ctx, domain.RoleOwner)
		if err != nil {
			return nil, err
		}

		if err := authSvc.RemoveMember(ctx, tenantID, input.UserID); err != nil {
			return nil, toHTTPError(err, "failed to remove member")
		}
		return nil, nil
	})
}

// requireRole checks for a tenant host and one of roles.
func requireRole(ctx context.Context, roles ...string) (uuid.UUID, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	_, role, err := requireUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, r := range roles {
		if r == role {
			return tenantID, nil
		}
	}
	return uuid.Nil, huma.Error403Forbidden("insufficient permissions")
}
