package models

// App groups the models registered with the admin together.
type App struct {
	Label  string
	models []any
}

// Web is the tenant application: every model stored in a tenant schema.
func Web() *App {
	return &App{
		Label: "web",
		models: []any{
			&ObjectPermission{},
			&ImageMaster{},
			&FileMaster{},
			&SiteSetting{},
		},
	}
}

// Models returns the zero-value prototypes in registration order.
func (a *App) Models() []any {
	out := make([]any, len(a.models))
	copy(out, a.models)
	return out
}
