package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/equisy/equisy-api/internal/api/v1"
	"github.com/equisy/equisy-api/internal/api/ws"
)

func registerAuthRoutes(api huma.API, deps Deps) {
	v1.RegisterAuthRoutes(api, deps.Auth)
}

func registerAPIRoutes(api huma.API, deps Deps, maxUpload int64) {
	v1.RegisterTenantRoutes(api, deps.Tenants)
	v1.RegisterUserRoutes(api, deps.Auth)
	v1.RegisterMediaRoutes(api, deps.Site, deps.Media, maxUpload)
	v1.RegisterAdminRoutes(api, deps.Site, deps.Admin, deps.Store.AdminLog())
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/admin/events", hub.ServeAdminEvents)
}
