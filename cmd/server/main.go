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

	"github.com/doldari/api/internal/clients/address"
	"github.com/doldari/api/internal/clients/llm"
	"github.com/doldari/api/internal/clients/market"
	"github.com/doldari/api/internal/clients/registry"
	"github.com/doldari/api/internal/config"
	"github.com/doldari/api/internal/database"
	"github.com/doldari/api/internal/handlers"
	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/middleware"
	"github.com/doldari/api/internal/repository"
	"github.com/doldari/api/internal/services"
	"github.com/doldari/api/internal/staterules"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Doldari API", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository layer
	caseRepo := repository.NewCaseRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Initialize upstream clients
	addressClient := address.NewClient(cfg.Upstreams.AddressBaseURL)
	marketClient := market.NewClient(cfg.Upstreams.MarketBaseURL)
	registryClient := registry.NewClient(cfg.Upstreams.RegistryBaseURL)
	draftGen := llm.NewOpenAIGenerator(cfg.LLM.APIKey, cfg.LLM.DraftModel)
	validationGen := llm.NewOpenAIGenerator(cfg.LLM.APIKey, cfg.LLM.ValidationModel)

	// Initialize service layer. All dependencies are constructed here once
	// and passed down by reference.
	machine := staterules.New(cfg.Analysis.ParseConfidenceFloor)
	caseService := services.NewCaseService(caseRepo, artifactRepo, addressClient, registryClient, machine, log)
	reportService := services.NewReportService(caseRepo, reportRepo, log)
	analysisService := services.NewAnalysisService(
		caseRepo,
		artifactRepo,
		reportRepo,
		registryClient,
		marketClient,
		draftGen,
		validationGen,
		machine,
		cfg.Analysis,
		log,
	)

	// Initialize handlers
	caseHandler := handlers.NewCaseHandler(caseService)
	reportHandler := handlers.NewReportHandler(reportService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		cases := v1.Group("/cases")
		{
			cases.POST("", caseHandler.Create)
			cases.GET("/:id", caseHandler.Get)
			cases.PATCH("/:id", caseHandler.UpdateFields)
			cases.POST("/:id/address-search", caseHandler.StartAddressSearch)
			cases.GET("/:id/address/candidates", caseHandler.SearchAddresses)
			cases.POST("/:id/address", caseHandler.ConfirmAddress)
			cases.POST("/:id/contract", caseHandler.SetContractTerms)
			cases.POST("/:id/registry", caseHandler.AttachRegistry)
			cases.POST("/:id/registry/parse", caseHandler.ParseRegistry)
			cases.POST("/:id/reset", caseHandler.ResetFromError)

			cases.POST("/:id/analysis", analysisHandler.Start)
			cases.GET("/:id/analysis/stream", analysisHandler.Stream)

			cases.GET("/:id/reports", reportHandler.List)
			cases.GET("/:id/reports/latest", reportHandler.Latest)
			cases.GET("/:id/reports/:version", reportHandler.ByVersion)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
