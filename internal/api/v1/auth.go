package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/server/middleware"
)

type RegisterInput struct {
	Body struct {
		Email     string `json:"email" format:"email" maxLength:"254" doc:"User email"`
		Password  string `json:"password" minLength:"8" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
		FirstName string `json:"first_name,omitempty" maxLength:"100" doc:"First name"`
		LastName  string `json:"last_name,omitempty" maxLength:"100" doc:"Last name"`
	}
}

type TokenBody struct {
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: auth response DTO
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	Role         string `json:"role"`
}

type RegisterOutput struct {
	Body struct {
		User *domain.User `json:"user"`
		TokenBody
	}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"254" doc:"User email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	Body TokenBody
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

// RegisterAuthRoutes mounts the unauthenticated auth endpoints. The tenant
// comes from the Host header: registration needs a tenant host, login on
// the public host is reserved for superusers.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user on this tenant",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
		tenantID, err := requireTenant(ctx)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.Register(ctx, tenantID, auth.RegisterInput{
			Email:     input.Body.Email,
			Password:  input.Body.Password,
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to register user")
		}

		pair, err := authSvc.Login(ctx, tenantID, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, huma.Error500InternalServerError("registered but failed to issue tokens", err)
		}

		out := &RegisterOutput{}
		out.Body.User = user
		out.Body.TokenBody = tokenBody(pair)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		// uuid.Nil on the public host.
		tenantID, _ := middleware.TenantIDFromContext(ctx)

		pair, err := authSvc.Login(ctx, tenantID, input.Body.Email, input.Body.Password)
		if err != nil {
			// Non-members get the same answer as a wrong password.
			if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNotMember) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		return &LoginOutput{Body: tokenBody(pair)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})
}

func tokenBody(pair *auth.TokenPair) TokenBody {
	return TokenBody{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, Role: pair.Role}
}
