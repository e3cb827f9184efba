package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client and development server settings.
type Config struct {
	APIURL          string
	HTTPTimeout     time.Duration
	StatePath       string
	NATSPort        int
	ShutdownTimeout time.Duration
	Dev             DevServer
}

// DevServer holds the settings of the development API.
type DevServer struct {
	Addr          string
	DBPath        string
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
	NATSPort      int
}

// Default returns the configuration used when no environment is set.
// The JWT secret must be overridden outside local development. A client NATS
// port of zero or less keeps the embedded bus in-process.
func Default() Config {
	return Config{
		APIURL:          "http://localhost:5000",
		HTTPTimeout:     15 * time.Second,
		StatePath:       "taskboard_state.db",
		NATSPort:        -1,
		ShutdownTimeout: 30 * time.Second,
		Dev: DevServer{
			Addr:          ":5000",
			DBPath:        "taskboard_dev.db",
			JWTSecret:     "taskboard-dev-secret-change-me",
			JWTIssuer:     "taskboard-dev",
			TokenTTL:      24 * time.Hour,
			AdminUsername: "admin",
			AdminEmail:    "admin@example.com",
			AdminPassword: "admin12345",
			BcryptCost:    12,
			NATSPort:      4222,
		},
	}
}

// Load reads an optional .env file and overlays environment variables on the
// defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] Warning: failed to read .env: %v", err)
	}

	cfg := Default()

	cfg.APIURL = getEnv("TASKBOARD_API_URL", cfg.APIURL)
	cfg.HTTPTimeout = getDuration("TASKBOARD_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.StatePath = getEnv("TASKBOARD_STATE_DB", cfg.StatePath)
	cfg.NATSPort = getInt("TASKBOARD_NATS_PORT", cfg.NATSPort)
	cfg.ShutdownTimeout = getDuration("TASKBOARD_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.Dev.Addr = getEnv("TASKBOARD_DEV_ADDR", cfg.Dev.Addr)
	cfg.Dev.DBPath = getEnv("TASKBOARD_DEV_DB", cfg.Dev.DBPath)
	cfg.Dev.JWTSecret = getEnv("JWT_SECRET_KEY", cfg.Dev.JWTSecret)
	cfg.Dev.JWTIssuer = getEnv("JWT_ISSUER", cfg.Dev.JWTIssuer)
	cfg.Dev.TokenTTL = getDuration("TASKBOARD_TOKEN_TTL", cfg.Dev.TokenTTL)
	cfg.Dev.AdminUsername = getEnv("TASKBOARD_ADMIN_USERNAME", cfg.Dev.AdminUsername)
	cfg.Dev.AdminEmail = getEnv("TASKBOARD_ADMIN_EMAIL", cfg.Dev.AdminEmail)
	cfg.Dev.AdminPassword = getEnv("TASKBOARD_ADMIN_PASSWORD", cfg.Dev.AdminPassword)
	cfg.Dev.BcryptCost = getInt("TASKBOARD_BCRYPT_COST", cfg.Dev.BcryptCost)
	cfg.Dev.NATSPort = getInt("TASKBOARD_DEV_NATS_PORT", cfg.Dev.NATSPort)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] Warning: invalid duration %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] Warning: invalid integer %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
