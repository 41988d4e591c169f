package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/auth"
	"github.com/shahzadkashif/Classrooms/internal/classroom"
	"github.com/shahzadkashif/Classrooms/internal/config"
	"github.com/shahzadkashif/Classrooms/internal/db"
	"github.com/shahzadkashif/Classrooms/internal/health"
	"github.com/shahzadkashif/Classrooms/internal/httputil"
	"github.com/shahzadkashif/Classrooms/internal/logger"
	"github.com/shahzadkashif/Classrooms/internal/metrics"
	"github.com/shahzadkashif/Classrooms/internal/middleware"
	"github.com/shahzadkashif/Classrooms/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	redis     *redis.Client
	telemetry *telemetry.Telemetry

	grpcServer   *grpc.Server
	healthServer *grpchealth.Server
}

// Routes holds everything the HTTP router dispatches to.
type Routes struct {
	Logger         *slog.Logger
	DB             health.Pinger
	Auth           *auth.Service
	Classrooms     classroom.Service
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	SecureCookie   bool
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)
	slogLogger.Info("config loaded", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	app := &App{
		config: cfg,
		logger: slogLogger,
	}

	app.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, ServiceName, Version, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	m, err := metrics.New(app.telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	if err := metrics.RegisterRuntime(app.telemetry.Meter); err != nil {
		slogLogger.Warn("failed to register runtime metrics", "error", err)
	}

	app.db, err = db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := m.Database.RegisterDB(app.db.DB, app.telemetry.Meter); err != nil {
		slogLogger.Warn("failed to register connection pool metrics", "error", err)
	}

	tables := append(auth.Tables(), classroom.Tables()...)
	if err := db.RunMigrations(ctx, app.db, tables...); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	sessions, err := app.sessionStore(ctx, m)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	authService := auth.NewService(auth.NewTeacherRepository(app.db, m), sessions, tokens, cfg.Auth.SessionTTL(), m)
	classroomService := classroom.NewService(classroom.NewRepository(app.db, m))

	app.router = NewRouter(Routes{
		Logger:         slogLogger,
		DB:             app.db,
		Auth:           authService,
		Classrooms:     classroomService,
		Metrics:        m,
		MetricsHandler: app.telemetry.MetricsHandler,
		SecureCookie:   cfg.Auth.SecureCookie,
	})

	if cfg.Grpc.Port != "" {
		app.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		app.healthServer = grpchealth.NewServer()
		grpc_health_v1.RegisterHealthServer(app.grpcServer, app.healthServer)
		app.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		app.healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	slogLogger.Info("application initialized successfully")

	return app, nil
}

func (a *App) sessionStore(ctx context.Context, m *metrics.Metrics) (auth.SessionStore, error) {
	switch a.config.Auth.SessionStore {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.config.Redis.Addr,
			Password: a.config.Redis.Password,
			DB:       a.config.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.config.Redis.Addr, err)
		}
		a.logger.Info("session store initialized", "store", "redis", "addr", a.config.Redis.Addr)
		return auth.NewRedisSessionStore(a.redis), nil
	default:
		a.logger.Info("session store initialized", "store", "postgres")
		return auth.NewSessionRepository(a.db, m), nil
	}
}

// NewRouter assembles the HTTP surface. Every route below the auth group
// sees the caller's identity, and unsafe methods from signed-in callers
// must carry the session's CSRF token.
func NewRouter(routes Routes) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(routes.Logger))
	router.Use(chimw.Recoverer)

	var healthMetrics *metrics.HealthMetrics
	if routes.Metrics != nil {
		healthMetrics = routes.Metrics.Health
	}

	// Health endpoints (no auth required)
	health.NewHandler(routes.DB, routes.Logger, healthMetrics).RegisterRoutes(router)

	if routes.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", routes.MetricsHandler)
	}

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(routes.Auth, routes.Logger, routes.SecureCookie))
		r.Use(auth.VerifyCSRF(routes.Logger))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			httputil.Redirect(w, r, "/classrooms")
		})

		auth.NewHandler(routes.Auth, routes.Logger, routes.SecureCookie).RegisterRoutes(r)
		classroom.NewHandler(routes.Classrooms, routes.Logger, routes.Metrics).RegisterRoutes(r)
	})

	return router
}

func (a *App) Run() error {
	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}

		go func() {
			a.logger.Info("gRPC health server starting", "port", a.config.Grpc.Port)
			if err := a.grpcServer.Serve(lis); err != nil {
				a.logger.Error("gRPC server error", "error", err)
			}
		}()
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var errs []error

	if a.healthServer != nil {
		a.healthServer.Shutdown()
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
			errs = append(errs, err)
		}
	}

	db.Close(a.db)

	return errors.Join(errs...)
}
