package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/config"
	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/module/account"
	"github.com/simp-lee/bankoffice/internal/module/auth"
	"github.com/simp-lee/bankoffice/internal/module/client"
	"github.com/simp-lee/bankoffice/internal/module/dashboard"
	"github.com/simp-lee/bankoffice/internal/module/upload"
	"github.com/simp-lee/bankoffice/internal/validation"
	"github.com/simp-lee/bankoffice/web"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
	tokens *auth.TokenManager
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, database, repositories, services, handlers,
// middleware, template rendering, routes and demo data.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	// 2. Setup database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", slog.Any("error", err))
		}
	}()

	// 3. AutoMigrate in debug mode only.
	if cfg.Server.Mode == gin.DebugMode {
		if err := migrate(db); err != nil {
			return nil, err
		}
		log.Info("auto migration completed")
	}

	// 4. Custom validation tags for request binding.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.Register(v); err != nil {
			return nil, fmt.Errorf("register validators: %w", err)
		}
	}

	// 5. Manual dependency injection: repository → service → handler.
	w, err := wire(cfg, db, log.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !success {
			w.tokens.Close()
		}
	}()

	// 6. Create Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	// In release mode, when no allowlist is configured, default to deny cross-origin requests.
	corsConfig := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger, "/static/", "/health"),
		middleware.CORSWithConfig(corsConfig),
	)
	if cfg.Server.RateLimit.Enabled {
		engine.Use(middleware.RateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))
	}
	engine.Use(middleware.Timeout(cfg.Server.RequestTimeout()))
	if cfg.Auth.Enabled {
		engine.Use(middleware.Auth(middleware.AuthConfig{
			Verifier:    w.tokens,
			PublicPaths: publicPaths(cfg),
			LoginPath:   "/login",
			APIPrefix:   "/api/",
		}))
	}

	// 7. Determine filesystem mode and set up template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 8. Resolve CSRF secret.
	csrfSecret, err := resolveSecret(cfg.Server.CSRFSecret, cfg.Server.Mode, "csrf_secret", log.Logger)
	if err != nil {
		return nil, err
	}

	// 9. Register all routes.
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    w.modules,
		DB:         db,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	// 10. Demo data.
	if cfg.Server.Mode == gin.DebugMode {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := w.seeder.Run(ctx, cfg.Seed)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	success = true
	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
		tokens: w.tokens,
	}, nil
}

// migrate creates or updates the schema.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Client{}, &domain.Account{}, &domain.User{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// wiring holds the constructed modules and the pieces New needs besides them.
type wiring struct {
	modules []Module
	tokens  *auth.TokenManager
	seeder  *Seeder
}

func wire(cfg *config.Config, db *gorm.DB, log *slog.Logger) (*wiring, error) {
	jwtSecret, err := resolveSecret(cfg.Auth.JWTSecret, cfg.Server.Mode, "auth.jwt_secret", log)
	if err != nil {
		return nil, err
	}
	users := auth.NewUserRepository(db)
	tokens, err := auth.NewTokenManager(jwtSecret, cfg.Auth.TokenTTL(), users)
	if err != nil {
		return nil, fmt.Errorf("setup tokens: %w", err)
	}

	pictures, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.URLPrefix, cfg.Upload.MaxBytes())
	if err != nil {
		return nil, fmt.Errorf("setup upload store: %w", err)
	}

	clientRepo := client.NewClientRepository(db)
	clientSvc := client.NewService(db)
	accountRepo := account.NewAccountRepository(db)
	accountSvc := account.NewService(accountRepo, clientRepo)
	authSvc := auth.NewService(tokens, users)

	var statsTTL time.Duration
	if cfg.Server.Cache.Enabled {
		statsTTL = cfg.Server.Cache.TTLDuration()
	}
	dashboardSvc := dashboard.NewService(clientRepo, accountRepo, statsTTL)
	handoffs := console.NewHandoffStore(0, 0)
	secure := cfg.Server.Mode == gin.ReleaseMode

	return &wiring{
		modules: []Module{
			auth.NewModule(auth.NewHandler(authSvc), auth.NewPageHandler(authSvc, cfg.Auth.TokenTTL(), secure)),
			dashboard.NewModule(dashboard.NewHandler(dashboardSvc, clientSvc)),
			client.NewModule(
				client.NewHandler(clientSvc, pictures),
				client.NewClientPageHandler(clientSvc, pictures, handoffs),
			),
			account.NewModule(account.NewHandler(accountSvc), account.NewAccountPageHandler(accountSvc)),
			upload.NewModule(upload.NewHandler(pictures)),
		},
		tokens: tokens,
		seeder: &Seeder{
			Users:    authSvc,
			Clients:  clientSvc,
			Count:    clientRepo.Count,
			Accounts: accountSvc,
			Logger:   log,
		},
	}, nil
}

// publicPaths returns the configured public paths plus the console pages and
// assets every visitor needs before signing in.
func publicPaths(cfg *config.Config) []string {
	paths := append([]string{}, cfg.Auth.PublicPaths...)
	return append(paths, "/login", "/register", "/static/", "/health")
}

// resolveSecret returns secret, or a random one outside release mode when
// secret is a placeholder.
func resolveSecret(secret, mode, name string, log *slog.Logger) (string, error) {
	if !isPlaceholderSecret(secret) {
		return strings.TrimSpace(secret), nil
	}
	if mode == gin.ReleaseMode {
		return "", fmt.Errorf("%s must be a non-placeholder value in release mode", name)
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", name, err)
	}
	log.Warn("no " + name + " configured, using random secret in non-release mode (will change on restart)")
	return hex.EncodeToString(b), nil
}

func isPlaceholderSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env", "change-me-in-production-csrf-secret":
		return true
	default:
		return false
	}
}

func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	if d := cfg.MaxAgeDuration(); d > 0 {
		corsConfig.MaxAge = d
	}

	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
		corsConfig.AllowCredentials = cfg.AllowCredentials
		return corsConfig
	}

	if mode == gin.ReleaseMode {
		corsConfig.AllowOrigins = []string{}
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and closes the database
// connection.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		if a.logger != nil {
			a.logger.Info("server started", slog.String("addr", addr))
		} else {
			slog.Info("server started", slog.String("addr", addr))
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("shutdown signal received")
		} else {
			slog.Info("shutdown signal received")
		}
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		// Graceful shutdown with 5-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			if a.logger != nil {
				a.logger.Error("server shutdown error", slog.Any("error", err))
			} else {
				slog.Error("server shutdown error", slog.Any("error", err))
			}
		}
	}

	if a.tokens != nil {
		a.tokens.Close()
	}

	// Close database connection.
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				if a.logger != nil {
					a.logger.Error("database close error", slog.Any("error", err))
				} else {
					slog.Error("database close error", slog.Any("error", err))
				}
			} else {
				if a.logger != nil {
					a.logger.Info("database connection closed")
				} else {
					slog.Info("database connection closed")
				}
			}
		}
	}

	if a.logger != nil {
		a.logger.Info("server stopped")
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	} else {
		slog.Info("server stopped")
	}

	if runErr != nil {
		return runErr
	}

	return nil
}
