package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/media"
	"github.com/equisy/equisy-api/internal/server"
	"github.com/equisy/equisy-api/internal/tenancy"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err = runMigrations(ctx, a); err != nil {
			return err
		}
	}

	site, err := a.adminSite()
	if err != nil {
		return err
	}

	storage, err := media.New(a.cfg.Media)
	if err != nil {
		return err
	}

	resolver := tenancy.NewResolver(a.store.Tenants(), a.store.Domains(), a.cache, tenancy.ResolverOptions{
		PublicDomain:         a.cfg.Tenancy.PublicDomain,
		ShowPublicIfNoTenant: a.cfg.Tenancy.ShowPublicIfNoTenant,
	}, a.metrics)

	auditor := admin.NewAuditor(a.store.AdminLog(), a.pubsub)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, a.cfg, server.Deps{
		Store:    a.store,
		PubSub:   a.pubsub,
		Auth:     a.auth,
		Tenants:  a.tenants,
		Resolver: resolver,
		Site:     site,
		Admin:    admin.NewStore(a.store.Gorm(), auditor, a.metrics),
		Media:    storage,
		Metrics:  a.metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", a.cfg.Server.Addr).
			Str("env", string(a.cfg.Env)).
			Str("public_domain", a.cfg.Tenancy.PublicDomain).
			Msg("starting server")
		errCh <- srv.Start(ctx)
	}()

	// Block until shutdown signal or listener failure.
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
