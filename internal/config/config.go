package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// JWT configuration
	JWTSecret string

	// internal secret used for privileged room injection
	InternalSecret string

	FrontendAddress string

	// Collaboration tuning
	DiffWordThreshold int           // texts longer than this are diffed word-by-word
	RealtimeThrottle  time.Duration // coalesce-latest window for realtime sends
	AutosaveDebounce  time.Duration // idle period before an auto-save fires
	FallbackSweep     time.Duration // periodic unsaved+idle check
	PreserveWindow    time.Duration // drop preserve-tagged remote updates after a local save
	PresenceTTL       time.Duration // redis presence entry lifetime
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "review-editor-dev-secret"
		log.Println("JWT_SECRET not set, using development secret")
	}

	AppConfig = Config{
		ServerPort:        getEnv("PORT", "8080"),
		Environment:       getEnv("ENV", "development"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "review_editor"),
		RedisAddress:      getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:         jwtSecret,
		InternalSecret:    getEnv("INTERNAL_SECRET", "collab-internal-secret"),
		FrontendAddress:   getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
		DiffWordThreshold: getEnvInt("DIFF_WORD_THRESHOLD", 120),
		RealtimeThrottle:  time.Duration(getEnvInt("REALTIME_THROTTLE_MS", 300)) * time.Millisecond,
		AutosaveDebounce:  time.Duration(getEnvInt("AUTOSAVE_DEBOUNCE_S", 7)) * time.Second,
		FallbackSweep:     time.Duration(getEnvInt("FALLBACK_SWEEP_S", 30)) * time.Second,
		PreserveWindow:    time.Duration(getEnvInt("PRESERVE_WINDOW_S", 15)) * time.Second,
		PresenceTTL:       time.Duration(getEnvInt("PRESENCE_TTL_S", 600)) * time.Second,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
