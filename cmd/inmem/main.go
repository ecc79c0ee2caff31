// Package main runs the session service without a database using in-memory
// repositories. Useful for quick development, demos, and learning the API
// without PostgreSQL. All data is lost when the server stops; for production
// use cmd/skycost.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skycost/skycost/pkg/auth"
	authapi "github.com/skycost/skycost/pkg/auth/api"
	"github.com/skycost/skycost/pkg/directory"
	directoryapi "github.com/skycost/skycost/pkg/directory/api"
	"github.com/skycost/skycost/pkg/impersonate"
	impersonateapi "github.com/skycost/skycost/pkg/impersonate/api"
	"github.com/skycost/skycost/pkg/sessions"
	sessionsapi "github.com/skycost/skycost/pkg/sessions/api"
	"github.com/tendant/chi-demo/app"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory session service (no database required)")

	directoryRepo := directory.NewInMemoryRepository()
	directoryService := directory.NewService(directoryRepo)

	sessionRepo := sessions.NewInMemoryRepository()
	sessionService := sessions.NewService(sessionRepo, sessions.DefaultIdleTimeout)

	impersonateService := impersonate.NewService(sessionService, directoryService)

	verifier := auth.NewStaticVerifier()
	seedSubjects(directoryService, verifier)

	flow := auth.NewFlow(verifier, directoryService, sessionService)
	authMiddleware := auth.NewMiddleware(sessionService, directoryService)

	authHandler := authapi.NewHandler(flow)
	directoryHandler := directoryapi.NewHandler(directoryService)
	impersonateHandler := impersonateapi.NewHandler(impersonateService)
	sessionsHandler := sessionsapi.NewHandler(sessionService)

	server := app.DefaultWithoutRoutes()

	app.RoutesHealthz(server.R)
	server.R.Handle("/metrics", promhttp.Handler())

	server.R.Route("/api/auth", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			authHandler.RegisterAuthenticatedRoutes(r)
		})
	})

	server.R.Route("/api/users", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		directoryHandler.RegisterRoutes(r)
		impersonateHandler.RegisterRoutes(r)
	})

	server.R.Route("/api/sessions", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		sessionsHandler.RegisterRoutes(r)
	})

	reaperCtx, cancelReaper := context.WithCancel(context.Background())
	defer cancelReaper()
	reaper := sessions.NewReaper(sessionService, 5*time.Minute)
	reaper.Start(reaperCtx)
	defer reaper.Stop()

	printTestCredentials()

	server.Run()
}

// seedSubjects creates a few subjects covering every role so the whole API
// can be exercised out of the box.
func seedSubjects(directoryService *directory.Service, verifier *auth.StaticVerifier) {
	ctx := context.Background()

	seeds := []struct {
		params   directory.CreateSubjectParams
		password string
	}{
		{
			params: directory.CreateSubjectParams{
				Username: "admin",
				Email:    "admin@example.com",
				Name:     "Demo Admin",
				Role:     directory.RoleAdmin,
			},
			password: "pwd",
		},
		{
			params: directory.CreateSubjectParams{
				Username: "auditor",
				Email:    "auditor@example.com",
				Name:     "Demo Auditor",
				Role:     directory.RoleReadOnly,
			},
			password: "pwd",
		},
		{
			params: directory.CreateSubjectParams{
				Username: "acme",
				Email:    "billing@acme.example.com",
				Name:     "Acme Corp",
				Role:     directory.RoleCustomer,
			},
			password: "pwd",
		},
	}

	for _, seed := range seeds {
		subject, err := directoryService.CreateSubject(ctx, seed.params)
		if err != nil {
			slog.Error("Failed to seed subject", "username", seed.params.Username, "error", err)
			os.Exit(-1)
		}
		verifier.Register(subject.Username, seed.password, subject.ID)
	}
}

func printTestCredentials() {
	slog.Info("Test credentials (password is `pwd` for all)")
	slog.Info("  admin   - administrator, may impersonate customers")
	slog.Info("  auditor - readonly, may list users")
	slog.Info("  acme    - customer")
}
