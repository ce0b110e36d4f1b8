package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"daily-flip/internal/auth"
	"daily-flip/internal/blockchain"
	"daily-flip/internal/config"
	"daily-flip/internal/database"
	"daily-flip/internal/handlers"
	"daily-flip/internal/jobs"
	"daily-flip/internal/repository"
	"daily-flip/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize Solana client for custodial payouts
	solanaClient, err := blockchain.NewSolanaClient(
		cfg.Solana.Network,
		cfg.Solana.RPCEndpoint,
		cfg.Solana.TokenMintAddress,
		cfg.Solana.TokenDecimals,
		cfg.Solana.HotWalletPrivateKey,
	)
	if err != nil {
		log.Fatalf("Failed to initialize Solana client: %v", err)
	}

	// Optional redis lease so only one instance drains withdrawals at a time
	var flightLock *services.FlightLock
	if cfg.Redis.Addr != "" {
		flightLock, err = services.NewFlightLock(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		log.Println("Redis single-flight lease enabled")
	}

	// Initialize services
	tierResolver := services.NewDBTierResolver(repo, cfg.Game.DefaultTier)
	entitlementService := services.NewEntitlementService(
		repo,
		tierResolver,
		cfg.Game.TierQuotas,
		cfg.Game.DefaultDailyFlips,
	)
	flipService, err := services.NewFlipService(repo, entitlementService, cfg.Game.RewardAmount)
	if err != nil {
		log.Fatalf("Failed to initialize flip service: %v", err)
	}
	sweepstakesService := services.NewSweepstakesService(repo)
	withdrawalService := services.NewWithdrawalService(
		repo,
		solanaClient,
		flightLock,
		cfg.Withdrawals.BatchSize,
		cfg.Withdrawals.MaxRetries,
		cfg.Withdrawals.RetryDelay,
		cfg.Withdrawals.InterItemDelay,
		cfg.Withdrawals.ConfirmTimeout,
		cfg.Withdrawals.MinFeeLamports,
	)

	// Initialize handlers
	flipHandler := handlers.NewFlipHandler(flipService)
	balanceHandler := handlers.NewBalanceHandler(repo)
	sweepstakesHandler := handlers.NewSweepstakesHandler(sweepstakesService)
	adminHandler := handlers.NewAdminHandler(repo)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService, repo, cfg.Withdrawals.ProcessorSecret)

	// Start withdrawal processor job
	withdrawalJob := jobs.NewWithdrawalJob(withdrawalService, cfg.Withdrawals.Interval)
	go withdrawalJob.Start()
	log.Println("Withdrawal processor job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public API routes
	api := router.Group("/api")
	{
		api.POST("/flip/claim", flipHandler.Claim)
		api.GET("/flip/status", flipHandler.Status)
		api.GET("/flip/verify", flipHandler.Verify)

		api.GET("/balance/:wallet", balanceHandler.GetBalance)
		api.GET("/balance/:wallet/history", balanceHandler.GetHistory)

		api.GET("/sweepstakes/stats", sweepstakesHandler.GetStats)
		api.GET("/sweepstakes/winner", sweepstakesHandler.GetWinner)

		api.POST("/withdrawals/request", withdrawalHandler.Request)
		api.GET("/withdrawals/:wallet", withdrawalHandler.History)
	}

	// Processor route, guarded by the shared processor secret
	router.POST("/api/withdrawals/process", withdrawalHandler.Process)

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		admin.POST("/bonus", adminHandler.GrantBonus)
		admin.POST("/tier", adminHandler.AssignTier)
		admin.POST("/sweepstakes/prizes", sweepstakesHandler.CreatePrize)
		admin.POST("/sweepstakes/draw", sweepstakesHandler.Draw)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	withdrawalJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
