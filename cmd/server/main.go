package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"crm-backend/auth"
	"crm-backend/internal/cache"
	"crm-backend/internal/catalog"
	"crm-backend/internal/client"
	"crm-backend/internal/config"
	"crm-backend/internal/dashboard"
	"crm-backend/internal/db"
	"crm-backend/internal/document"
	"crm-backend/internal/fuzzy"
	"crm-backend/internal/history"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/middleware"
	"crm-backend/internal/search"
	"crm-backend/internal/sheets"
	"crm-backend/internal/user"
	"crm-backend/internal/worker"
	"crm-backend/redis"
)

func main() {
	cfg := config.Load()
	logger := logging.NewDefault()

	if cfg.JWTSecret == "" {
		logger.Error(context.Background(), "JWT_SECRET is not set")
		os.Exit(1)
	}

	// Remote backing store.
	gdb, err := db.Connect(&cfg)
	if err != nil {
		logger.Error(context.Background(), "Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		logger.Error(context.Background(), "Failed to migrate database schema", "error", err)
		os.Exit(1)
	}

	// Redis backs the token denylist. Missing redis degrades to
	// no revocation rather than blocking startup.
	redisClient := redis.NewClient(cfg.RedisAddress, logger)
	denylist := redis.NewTokenDenylist(redisClient, logger)

	// Local fallback files live under the data directory.
	local, err := localstore.New(cfg.DataDir)
	if err != nil {
		logger.Error(context.Background(), "Failed to prepare data directory", "error", err)
		os.Exit(1)
	}

	registry := cache.NewRegistry()
	store := sheets.NewGormStore(gdb, cfg.SheetsTTL, registry)

	pool := worker.NewPool(cfg.UploadWorkers, logger)
	defer pool.Shutdown()

	docStore, err := buildDocumentStore(cfg, logger)
	if err != nil {
		logger.Error(context.Background(), "Failed to initialize document storage", "error", err)
		os.Exit(1)
	}

	// Services.
	historyService := history.NewService(history.Options{
		Store: store,
		Local: local,
		TTL:   cfg.HistoryTTL,
		Reg:   registry,
		Log:   logger,
	})

	docService := document.NewService(docStore, pool, historyService, logger)

	searcher := search.NewSearcher(cfg.SearchFuzzyRatio, cfg.CloseMatchCutoff)

	catalogCache := cache.NewKeyed[[]string](cfg.CatalogsTTL)
	registry.Register(catalogCache)
	catalogService := catalog.NewService(catalog.Options{
		Store:    store,
		Local:    local,
		Caches:   catalogCache,
		Canon:    fuzzy.NewCanonicalizer(cfg.CanonicalMinRatio),
		Searcher: searcher,
		Log:      logger,
	})

	clientRepo := client.NewRepository(client.RepositoryOptions{
		Store: store,
		Local: local,
		TTL:   cfg.ClientsTTL,
		Reg:   registry,
		Log:   logger,
	})
	clientService := client.NewService(client.ServiceOptions{
		Repo:     clientRepo,
		Ledger:   historyService,
		Docs:     docService,
		Catalogs: catalogService,
		Searcher: searcher,
		Log:      logger,
	})

	userRepo := user.NewRepository(user.RepositoryOptions{
		Store: store,
		Local: local,
		TTL:   cfg.UsersTTL,
		Reg:   registry,
		Log:   logger,
	})
	userService := user.NewService(userRepo, logger)

	// Without at least one account nobody can log in.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.Bootstrap(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
		cancel()
		logger.Error(context.Background(), "Failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}
	cancel()

	dashboardService := dashboard.NewService(clientService)

	tokens := auth.NewTokens(cfg.JWTSecret, 24*time.Hour)

	// Handlers.
	userHandler := user.NewHandler(userService, tokens, denylist)
	clientHandler := client.NewHandler(clientService)
	historyHandler := history.NewHandler(historyService)
	catalogHandler := catalog.NewHandler(catalogService)
	dashboardHandler := dashboard.NewHandler(dashboardService)
	docHandler := document.NewHandler(docService, func(c *gin.Context, clientID string) (document.Ref, error) {
		return clientService.Ref(c.Request.Context(), clientID)
	})

	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
	}
	if cfg.Environment == "development" {
		corsConfig.AllowAllOrigins = true
	} else if cfg.FrontendAddress != "" {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandler(logger))

	authRequired := auth.Middleware(tokens, denylist)
	can := func(capability string) gin.HandlerFunc {
		return auth.RequireCapability(capability, user.RoleAllows)
	}

	// Session routes
	router.POST("/login", userHandler.Login)
	router.DELETE("/logout", authRequired, userHandler.Logout)
	router.GET("/profile", authRequired, userHandler.GetProfile)

	// User management
	router.GET("/users", authRequired, can(user.CapManageUsers), userHandler.List)
	router.POST("/users", authRequired, can(user.CapManageUsers), userHandler.Create)
	router.DELETE("/users/:username", authRequired, can(user.CapManageUsers), userHandler.Delete)

	// Client registry
	router.GET("/clients", authRequired, clientHandler.List)
	router.POST("/clients", authRequired, clientHandler.Create)
	router.GET("/clients/export", authRequired, clientHandler.Export)
	router.POST("/clients/import", authRequired, clientHandler.Import)
	router.GET("/clients/advisors", authRequired, clientHandler.Advisors)
	router.GET("/clients/:id", authRequired, clientHandler.Get)
	router.PUT("/clients/:id", authRequired, clientHandler.Update)
	router.POST("/clients/:id/status", authRequired, clientHandler.ChangeStatus)
	router.DELETE("/clients/:id", authRequired, can(user.CapDeleteClient), clientHandler.Delete)

	// Change history
	router.GET("/history", authRequired, can(user.CapViewHistory), historyHandler.List)
	router.DELETE("/history", authRequired, can(user.CapWipeHistory), historyHandler.Wipe)
	router.GET("/clients/:id/history", authRequired, can(user.CapViewHistory), historyHandler.ForClient)

	// Client documents
	router.GET("/clients/:id/documents", authRequired, docHandler.List)
	router.POST("/clients/:id/documents", authRequired, docHandler.Upload)
	router.GET("/clients/:id/documents/archive", authRequired, docHandler.Archive)
	router.GET("/clients/:id/documents/:name", authRequired, docHandler.Download)
	router.DELETE("/clients/:id/documents/:name", authRequired, docHandler.Delete)

	// Catalogs
	router.GET("/catalogs/:name", authRequired, catalogHandler.Show)
	router.PUT("/catalogs/:name", authRequired, catalogHandler.Save)
	router.GET("/catalogs/:name/search", authRequired, catalogHandler.Search)

	// Dashboard
	router.GET("/dashboard/summary", authRequired, dashboardHandler.Summary)

	// Admin
	router.POST("/admin/cache/clear", authRequired, can(user.CapClearCache), func(c *gin.Context) {
		registry.ClearAll()
		c.JSON(http.StatusOK, gin.H{"message": "Caches cleared"})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router.Handler(),
	}

	go func() {
		logger.Info(context.Background(), "Server listening", "port", cfg.ServerPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Error(context.Background(), "Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(context.Background(), "Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), "Server shutdown error", "error", err)
	}

	<-shutdownCtx.Done()
	logger.Info(context.Background(), "Server shutdown complete")
}

// buildDocumentStore selects the document backend from configuration.
func buildDocumentStore(cfg config.Config, logger logging.Logger) (document.Store, error) {
	switch cfg.DocsDriver {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s3Store, err := document.NewS3Store(ctx, document.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			Endpoint:   cfg.S3Endpoint,
			PathStyle:  cfg.S3PathStyle,
			RootPrefix: cfg.S3RootPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	case "fs", "":
		fsStore, err := document.NewFSStore(filepath.Join(cfg.DataDir, "documents"), logger)
		if err != nil {
			return nil, err
		}
		return fsStore, nil
	default:
		return nil, fmt.Errorf("unknown documents driver %q", cfg.DocsDriver)
	}
}
