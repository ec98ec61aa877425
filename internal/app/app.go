package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-timetable-admin/internal/config"
	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/handler"
	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/repository"
	"go-timetable-admin/internal/router"
	"go-timetable-admin/internal/service"
	"go-timetable-admin/internal/storage"
)

const tokenCleanupInterval = time.Hour

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	exportStore, err := storage.New(cfg.ExportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exports storage: %w", err)
	}

	imageStore, err := storage.New(cfg.ProfileImageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile image storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db.Pool)
	activityRepo := repository.NewActivityRepository(db.Pool)
	tokenRepo := repository.NewTokenRepository(db.Pool)
	slog.Info("database ready")

	authService := service.NewAuthService(userRepo, tokenRepo, activityRepo, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if cfg.DefaultAdminPassword != "" {
		if err := authService.SeedDefaultAdmin(context.Background(), cfg.DefaultAdminUsername, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed default admin: %w", err)
		}
	} else {
		slog.Warn("DEFAULT_ADMIN_PASSWORD not set, skipping admin seed")
	}

	scopeCache := service.NewScopeCache(profileRepo, cfg.ScopeCacheSize, cfg.ScopeCacheTTL)
	downloadService := service.NewDownloadService(exportStore, scopeCache, activityRepo, service.DownloadOptions{
		Retention:           cfg.ExportRetention,
		DeleteAfterDownload: cfg.ExportDeleteAfterDownload,
		Accounts:            userRepo,
	})
	profileImageService := service.NewProfileImageService(imageStore, userRepo, activityRepo, cfg.AllowedImageTypes)
	userService := service.NewUserService(userRepo, tokenRepo, scopeCache, profileImageService, activityRepo)
	activityService := service.NewActivityService(activityRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService, cfg.SessionCookieName)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Health: handler.NewHealthHandler(db),
		Auth: handler.NewAuthHandler(authService, handler.SessionCookie{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			TTL:    cfg.JWTAccessTTL,
		}),
		Download: handler.NewDownloadHandler(downloadService),
		Users:    handler.NewUserHandler(userService),
		Profile:  handler.NewProfileHandler(profileImageService, cfg.MaxUploadSize),
		Activity: handler.NewActivityHandler(activityService),
	})

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go service.NewExportSweeper(exportStore, cfg.ExportRetention).Start(backgroundCtx, cfg.ExportSweepInterval)
	go cleanExpiredTokens(backgroundCtx, tokenRepo, tokenCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			backgroundCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// In-flight requests still use the pool, so it is closed after Shutdown.
	shutdownErr := a.server.Shutdown(ctx)
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

type expiredTokenCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

func cleanExpiredTokens(ctx context.Context, tokens expiredTokenCleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokens.CleanExpired(ctx)
			if err != nil {
				slog.Warn("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}
