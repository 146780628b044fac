package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Supabase project configuration
	Supabase SupabaseConfig

	// Redis Configuration (task queue)
	Redis RedisConfig

	// Local content database
	Content ContentConfig

	// Logging Configuration
	Logging LoggingConfig

	// Site configuration
	Site SiteConfig
}

// SupabaseConfig holds the hosted backend configuration
type SupabaseConfig struct {
	URL         string // Project URL, e.g. https://xxx.supabase.co
	AnonKey     string // Public anon key, sent with unauthenticated requests
	ServiceKey  string // Service role key for admin operations (optional)
	JWTSecret   string // Secret for verifying access tokens locally
	DatabaseURL string // Direct Postgres connection string for analytics (optional)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// ContentConfig holds the local content store configuration
type ContentConfig struct {
	URL string // SQLite file path
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// SiteConfig holds public site settings
type SiteConfig struct {
	URL                string // Public origin, used for auth redirect URLs
	AdminEmail         string // The allow-listed admin account
	InvestorAccessHash string // bcrypt hash of the investor deck access code
	DigestSchedule     string // Cron expression for the newsletter digest, empty = disabled
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}

	anonKey := os.Getenv("SUPABASE_ANON_KEY")
	if anonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}

	return &Config{
		Supabase: SupabaseConfig{
			URL:         supabaseURL,
			AnonKey:     anonKey,
			ServiceKey:  os.Getenv("SUPABASE_SERVICE_KEY"),
			JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
			DatabaseURL: os.Getenv("SUPABASE_DB_URL"),
		},
		Redis: RedisConfig{
			Address: envOrDefault("REDIS_ADDRESS", "localhost:6379"),
		},
		Content: ContentConfig{
			URL: envOrDefault("CONTENT_DB", "vayu.sqlite"),
		},
		Logging: LoggingConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
		Site: SiteConfig{
			URL:                envOrDefault("SITE_URL", "https://breathe.vayu-prana.com"),
			AdminEmail:         envOrDefault("ADMIN_EMAIL", "hello@dhruvaryan.com"),
			InvestorAccessHash: os.Getenv("INVESTOR_ACCESS_HASH"),
			DigestSchedule:     os.Getenv("DIGEST_SCHEDULE"),
		},
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
