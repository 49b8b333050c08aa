package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey    string
	GeminiModel     string
	OutlineProvider string // "gemini" | "mock"

	// YouTube Data API
	YouTubeAPIKey string

	// Generation
	GenerationCost     int
	InitialCredits     int
	StreamMaxDuration  time.Duration
	TranscriptCacheTTL time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		DatabaseURL:        mustGetEnv("DATABASE_URL"),
		RedisURL:           mustGetEnv("REDIS_URL"),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:       getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:        getEnvOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
		OutlineProvider:    getEnvOrDefault("OUTLINE_PROVIDER", "gemini"),
		YouTubeAPIKey:      mustGetEnv("YOUTUBE_API_KEY"),
		GenerationCost:     getEnvAsIntOrDefault("GENERATION_COST", 1),
		InitialCredits:     getEnvAsIntOrDefault("INITIAL_CREDITS", 3),
		StreamMaxDuration:  getEnvAsDurationOrDefault("STREAM_MAX_DURATION", 5*time.Minute),
		TranscriptCacheTTL: getEnvAsDurationOrDefault("TRANSCRIPT_CACHE_TTL", 15*time.Minute),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.OutlineProvider == "gemini" && cfg.GeminiAPIKey == "" {
		if cfg.Env == "development" {
			// Local development without a key falls back to the canned generator.
			cfg.OutlineProvider = "mock"
		} else {
			panic("GEMINI_API_KEY is required when OUTLINE_PROVIDER=gemini")
		}
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
