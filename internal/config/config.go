package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	LogLevel                slog.Level

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret           string
	JWTAccessTTL        time.Duration
	JWTRefreshTTL       time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	CORSOrigins         []string
	RateLimitRPM        int
	AuthRateLimitRPM    int

	ExportsDir                string
	ExportRetention           time.Duration
	ExportDeleteAfterDownload bool
	ExportSweepInterval       time.Duration
	ScopeCacheSize            int
	ScopeCacheTTL             time.Duration
	DownloadMaxDuration       time.Duration
	DownloadIdleTimeout       time.Duration

	ProfileImageRoot  string
	AllowedImageTypes []string
	MaxUploadSize     int64

	DefaultAdminUsername string
	DefaultAdminEmail    string
	DefaultAdminPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogLevel:                getLevel("LOG_LEVEL", slog.LevelInfo),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),

		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:        getDuration("JWT_ACCESS_TTL", 30*time.Minute),
		JWTRefreshTTL:       getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "session"),
		SessionCookieSecure: getBool("SESSION_COOKIE_SECURE", false),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:    getInt("AUTH_RATE_LIMIT_RPM", 10),

		ExportsDir:                getEnv("EXPORTS_DIR", "./exports"),
		ExportRetention:           getDuration("EXPORT_RETENTION", 7*24*time.Hour),
		ExportDeleteAfterDownload: getBool("EXPORT_DELETE_AFTER_DOWNLOAD", false),
		ExportSweepInterval:       getDuration("EXPORT_SWEEP_INTERVAL", 0),
		ScopeCacheSize:            getInt("SCOPE_CACHE_SIZE", 1024),
		ScopeCacheTTL:             getDuration("SCOPE_CACHE_TTL", time.Minute),
		DownloadMaxDuration:       getDuration("DOWNLOAD_MAX_DURATION", 30*time.Minute),
		DownloadIdleTimeout:       getDuration("DOWNLOAD_IDLE_TIMEOUT", 2*time.Minute),

		ProfileImageRoot:  getEnv("PROFILE_IMAGE_ROOT", "./uploads/profile-images"),
		AllowedImageTypes: splitCSV(getEnv("ALLOWED_IMAGE_TYPES", "image/jpeg,image/png,image/gif,image/webp")),
		MaxUploadSize:     getInt64("MAX_UPLOAD_SIZE", 5*1024*1024),

		DefaultAdminUsername: getEnv("DEFAULT_ADMIN_USERNAME", "admin"),
		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@localhost"),
		DefaultAdminPassword: strings.TrimSpace(os.Getenv("DEFAULT_ADMIN_PASSWORD")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	if strings.TrimSpace(c.ExportsDir) == "" {
		return fmt.Errorf("EXPORTS_DIR cannot be empty")
	}

	if c.ExportRetention <= 0 {
		return fmt.Errorf("EXPORT_RETENTION must be positive")
	}

	if c.ExportSweepInterval < 0 {
		return fmt.Errorf("EXPORT_SWEEP_INTERVAL cannot be negative")
	}

	if c.DownloadMaxDuration <= 0 || c.DownloadIdleTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_MAX_DURATION and DOWNLOAD_IDLE_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.ProfileImageRoot) == "" {
		return fmt.Errorf("PROFILE_IMAGE_ROOT cannot be empty")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if len(c.AllowedImageTypes) == 0 {
		return fmt.Errorf("ALLOWED_IMAGE_TYPES cannot be empty")
	}

	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getLevel(key string, fallback slog.Level) slog.Level {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}

	return level
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
