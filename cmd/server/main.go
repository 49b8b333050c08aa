package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursegen-backend/internal/config"
	"coursegen-backend/internal/database"
	"coursegen-backend/internal/handlers"
	"coursegen-backend/internal/middleware"
	"coursegen-backend/internal/repository"
	"coursegen-backend/internal/router"
	"coursegen-backend/internal/services"
	"coursegen-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting CourseGen Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	videoCacheRepo := repository.NewVideoCacheRepo(pool)
	transcriptCache := repository.NewRedisTranscriptCache(redisClients.Cache, cfg.TranscriptCacheTTL)

	ctx := context.Background()

	// ──── Step 5: Initialize YouTube Data API Client ────
	videoDataService, err := services.NewVideoDataService(ctx, cfg.YouTubeAPIKey, videoCacheRepo)
	if err != nil {
		log.Fatalf("✗ YouTube Data API initialization failed: %v", err)
	}
	log.Println("✓ YouTube Data API client initialized")

	// ──── Step 6: Initialize Outline Generator ────
	var generator services.OutlineGenerator
	if cfg.OutlineProvider == "mock" {
		generator = services.NewMockOutlineGenerator()
		log.Println("✓ Mock outline generator initialized")
	} else {
		geminiGenerator, err := services.NewGeminiOutlineGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiGenerator.Close()
		generator = geminiGenerator
		log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, jwtAuth, cfg.InitialCredits)
	transcriptService := services.NewTranscriptService(transcriptCache)
	generationLock := services.NewRedisGenerationLock(redisClients.Cache, cfg.StreamMaxDuration*2)
	eventPublisher := websocket.NewRedisEventPublisher(redisClients.Cache)

	coordinator := services.NewCoordinator(
		videoDataService,
		transcriptService,
		generator,
		courseRepo,
		userRepo,
		generationLock,
		eventPublisher,
		cfg.GenerationCost,
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	generateHandler := handlers.NewGenerateHandler(coordinator, userRepo, cfg.GenerationCost, cfg.StreamMaxDuration)
	courseHandler := handlers.NewCourseHandler(courseRepo)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		generateHandler,
		courseHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("✓ CourseGen Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
