package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
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

type SkycostDbConfig struct {
	Host     string `env:"SKYCOST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SKYCOST_PG_PORT" env-default:"5432"`
	Database string `env:"SKYCOST_PG_DATABASE" env-default:"skycost_db"`
	User     string `env:"SKYCOST_PG_USER" env-default:"skycost"`
	Password string `env:"SKYCOST_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"SKYCOST_PG_SCHEMA" env-default:"public"`
}

func (d SkycostDbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type SessionConfig struct {
	IdleTimeout  time.Duration `env:"SESSION_IDLE_TIMEOUT" env-default:"15m"`
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" env-default:"1h"`
}

type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME" env-default:"admin"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD" env-default:"pwd"`
	AdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL" env-default:"admin@example.com"`
}

type Config struct {
	SkycostDbConfig SkycostDbConfig
	SessionConfig   SessionConfig
	BootstrapConfig BootstrapConfig
	AppConfig       app.AppConfig
}

// loadEnvFile loads a .env file from the working directory if one exists.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get current working directory", "error", err)
		return
	}

	envFile := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

// seedBootstrapAdmin makes sure an admin subject exists and can log in.
// Credential verification is pluggable; the bundled static verifier keeps its
// passwords in memory, so the bootstrap password has to be registered on every
// start.
func seedBootstrapAdmin(ctx context.Context, directoryService *directory.Service, verifier *auth.StaticVerifier, cfg BootstrapConfig) error {
	subject, err := directoryService.GetSubjectByUsername(ctx, cfg.AdminUsername)
	if errors.Is(err, directory.ErrSubjectNotFound) {
		subject, err = directoryService.CreateSubject(ctx, directory.CreateSubjectParams{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Name:     "Bootstrap Admin",
			Role:     directory.RoleAdmin,
		})
	}
	if err != nil {
		return err
	}

	verifier.Register(cfg.AdminUsername, cfg.AdminPassword, subject.ID)
	slog.Info("Bootstrap admin ready", "username", cfg.AdminUsername, "subject_id", subject.ID)
	return nil
}

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultWithoutRoutes()

	app.RoutesHealthz(server.R)
	server.R.Handle("/metrics", promhttp.Handler())

	dbURL := config.SkycostDbConfig.toDatabaseURL()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.SkycostDbConfig.Database, "host", config.SkycostDbConfig.Host, "port", config.SkycostDbConfig.Port, "user", config.SkycostDbConfig.User)
		os.Exit(-1)
	}

	directoryRepo := directory.NewPostgresRepository(pool)
	directoryService := directory.NewService(directoryRepo)

	sessionRepo := sessions.NewPostgresRepository(pool)
	sessionService := sessions.NewService(sessionRepo, config.SessionConfig.IdleTimeout)

	impersonateService := impersonate.NewService(sessionService, directoryService)

	verifier := auth.NewStaticVerifier()
	if err := seedBootstrapAdmin(context.Background(), directoryService, verifier, config.BootstrapConfig); err != nil {
		slog.Error("Failed to seed bootstrap admin", "error", err)
		os.Exit(-1)
	}

	flow := auth.NewFlow(verifier, directoryService, sessionService)

	authMiddleware := auth.NewMiddleware(sessionService, directoryService)

	authHandler := authapi.NewHandler(flow)
	directoryHandler := directoryapi.NewHandler(directoryService)
	impersonateHandler := impersonateapi.NewHandler(impersonateService)
	sessionsHandler := sessionsapi.NewHandler(sessionService)

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
	reaper := sessions.NewReaper(sessionService, config.SessionConfig.ReapInterval)
	reaper.Start(reaperCtx)
	defer reaper.Stop()

	server.Run()
}
