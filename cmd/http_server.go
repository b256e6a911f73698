package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/auth"
	authPostgres "github.com/frahmantamala/safety-hazards/internal/auth/postgres"
	"github.com/frahmantamala/safety-hazards/internal/core/events"
	"github.com/frahmantamala/safety-hazards/internal/hazard"
	hazardPostgres "github.com/frahmantamala/safety-hazards/internal/hazard/postgres"
	"github.com/frahmantamala/safety-hazards/internal/hazardtype"
	hazardTypePostgres "github.com/frahmantamala/safety-hazards/internal/hazardtype/postgres"
	"github.com/frahmantamala/safety-hazards/internal/transport"
	"github.com/frahmantamala/safety-hazards/internal/transport/middleware"
	"github.com/frahmantamala/safety-hazards/internal/transport/rest"
	"github.com/frahmantamala/safety-hazards/internal/user"
	userPostgres "github.com/frahmantamala/safety-hazards/internal/user/postgres"
	"github.com/frahmantamala/safety-hazards/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Logger   *slog.Logger
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.DB.Close()

	if err := setupRoutes(deps); err != nil {
		return err
	}

	cfg := deps.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := internal.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.EventBus.Wait()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("Server stopped")
	return nil
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	var (
		reg         *prometheus.Registry
		httpMetrics *middleware.HTTPMetrics
	)
	throttleOpts := []auth.ThrottleOption{auth.WithThrottleLogger(lg)}
	if cfg.Observability.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		var err error
		if httpMetrics, err = middleware.NewHTTPMetrics(reg); err != nil {
			return fmt.Errorf("register http metrics: %w", err)
		}
		throttleMetrics, err := auth.NewThrottleMetrics(reg)
		if err != nil {
			return fmt.Errorf("register login metrics: %w", err)
		}
		throttleOpts = append(throttleOpts, auth.WithThrottleMetrics(throttleMetrics))
		if err := deps.EventBus.Instrument(reg); err != nil {
			return err
		}
	}

	hasher, err := auth.NewHasher(cfg.Security.PasswordAlgorithm)
	if err != nil {
		return err
	}
	throttle, err := auth.NewLoginThrottle(auth.ThrottleConfig{
		MaxFailures:   cfg.Security.LoginThrottle.MaxFailures,
		Window:        cfg.Security.LoginThrottle.Window,
		BlockDuration: cfg.Security.LoginThrottle.BlockDuration,
	}, throttleOpts...)
	if err != nil {
		return err
	}
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.DB), hasher, throttle, tokens, lg,
		auth.WithDecoyIterations(cfg.Security.PasswordIterations))

	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), lg)
	typeService := hazardtype.NewService(hazardTypePostgres.NewHazardTypeRepository(deps.Gorm), lg)
	hazardService := hazard.NewService(
		hazardPostgres.NewHazardRepository(deps.Gorm),
		userService,
		typeService,
		deps.EventBus,
		lg,
	)

	routes := rest.Routes{
		DB:                deps.DB,
		AuthHandler:       auth.NewHandler(authService),
		UserHandler:       user.NewHandler(userService),
		HazardHandler:     hazard.NewHandler(hazardService),
		HazardTypeHandler: hazardtype.NewHandler(transport.NewBaseHandler(lg), typeService),
		Metrics:           httpMetrics,
		MetricsPath:       cfg.Observability.Metrics.Path,
		CORSOrigins:       cfg.Server.Origins(),
		TrustProxy:        cfg.Server.TrustProxy,
		HealthChecks:      map[string]rest.CheckFunc{"schema": schemaCheck(deps.DB)},
	}
	if reg != nil {
		routes.MetricsGatherer = reg
	}
	if rl := cfg.Security.LoginRateLimit; rl.Enabled {
		routes.LoginLimiter = middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			Burst:             rl.Burst,
			IdleTTL:           rl.IdleTTL,
		})
	}

	rest.RegisterAllRoutes(deps.Router, routes, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	events.SubscribeAuditLog(bus, lg)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gdb,
		Router:   chi.NewRouter(),
		EventBus: bus,
		Logger:   lg,
	}, nil
}

// initDB opens the shared pgx pool used by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := internal.WithTimeout(context.Background(), 0)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm wraps the existing pool so both layers share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}
