package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/cache"
	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/database"
	"github.com/GTDGit/gtd_backoffice/internal/handler"
	"github.com/GTDGit/gtd_backoffice/internal/logger"
	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/storage"
	"github.com/GTDGit/gtd_backoffice/internal/worker"
)

// main is the entrypoint for the back office API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	logger.Setup(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Msg("starting back office api")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.RunMigrations(db.DB, cfg.DB.MigrationsPath); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis. The public listing cache is optional.
	var (
		listCache   *cache.ProductListCache
		redisPinger handler.Pinger
	)
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis connection failed - public listing cache disabled")
		} else {
			defer redisClient.Close()
			listCache = cache.NewProductListCache(redisClient, cfg.Redis.PublicCacheTTL)
			redisPinger = handler.PingFunc(redisClient.Ping)
			log.Info().Msg("redis connected successfully")
		}
	}

	// 3c. File storage
	disk, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		log.Error().Err(err).Msg("storage initialization failed")
		fmt.Fprintf(os.Stderr, "storage initialization failed: %v\n", err)
		os.Exit(1)
	}

	// 4. Initialize repositories
	repos := repository.NewRepos(db)
	txRunner := repository.NewTxRunner(db)

	// 5. Initialize services
	adminAuthSvc := service.NewAdminAuthService(repos.Admins)
	productSvc := service.NewProductService(repos, txRunner, disk, listCache, cfg.Currency)
	imageSvc := service.NewProductImageService(repos, txRunner, disk, listCache, cfg.Upload)
	employeeSvc := service.NewEmployeeService(repos, txRunner)
	saleSvc := service.NewSaleService(repos, txRunner, listCache)

	// 6. Initialize handlers
	handler.SetDebug(cfg.Debug)
	handlers := &Handlers{
		Health:       handler.NewHealthHandler(db, redisPinger),
		Auth:         handler.NewAuthHandler(adminAuthSvc),
		Product:      handler.NewProductHandler(productSvc),
		ProductImage: handler.NewProductImageHandler(imageSvc),
		Employee:     handler.NewEmployeeHandler(employeeSvc),
		Sale:         handler.NewSaleHandler(saleSvc),
	}

	// 7. Initialize middleware
	rateLimiter := middleware.NewInvalidAuthRateLimiter(cfg.Auth.FailureLimit, cfg.Auth.FailureWindow)
	go rateLimiter.StartCleanup(ctx, cfg.Auth.FailureWindow)
	authMw := middleware.NewAdminAuthMiddleware(adminAuthSvc, rateLimiter)

	// 8. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(cfg.Debug))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedHosts))
	if local, ok := disk.(*storage.LocalDisk); ok {
		router.Static(cfg.Storage.PublicPath, local.Root())
	}
	setupRoutes(router, handlers, authMw)

	// 9. Start workers
	go worker.NewOrphanSweepWorker(imageSvc, cfg.Worker.OrphanSweepInterval, cfg.Worker.OrphanSweepMinAge).Start(ctx)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Cancel context to stop workers
	cancel()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
