package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/internal/api"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/view"
	"yatube/internal/websocket"
	"yatube/pkg/config"
	"yatube/pkg/db"
	"yatube/pkg/logger"
	"yatube/web"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.ProductionMode); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := db.InitDB(); err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	hub, err := websocket.CreateHub()
	if err != nil {
		logger.L.Fatal("Failed to create hub", zap.Error(err))
	}
	if err := websocket.StartHub(hub); err != nil {
		logger.L.Fatal("Failed to start hub", zap.Error(err))
	}

	userRepo := repository.NewUserRepository()
	groupRepo := repository.NewGroupRepository()
	postRepo := repository.NewPostRepository()

	sessions := scs.New()
	sessions.Lifetime = cfg.Session.Lifetime
	sessions.Cookie.Name = cfg.Session.CookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Secure = cfg.JWT.SecureCookie
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	renderer := view.NewRenderer(web.FS, gin.Mode() == gin.DebugMode)
	if err := renderer.Preload(); err != nil {
		logger.L.Fatal("Failed to parse templates", zap.Error(err))
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(time.Minute, stopCleanup)

	handler, err := api.NewRouter(api.Deps{
		AuthService:  service.NewAuthService(userRepo),
		GroupService: service.NewGroupService(groupRepo),
		PostService:  service.NewPostService(postRepo, groupRepo, userRepo, hub),
		Hub:          hub,
		Sessions:     sessions,
		Limiter:      limiter,
		HTMLRender:   renderer,
	})
	if err != nil {
		logger.L.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.L.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("Shutting down server")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L.Error("Server forced to shut down", zap.Error(err))
	}
	close(stopCleanup)
	if err := hub.Close(); err != nil {
		logger.L.Error("Failed to close hub", zap.Error(err))
	}
	logger.L.Info("Server exited")
}
