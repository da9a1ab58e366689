package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vote-portal/login-approval-service/utils"
)

// PlatformEnums represents the set of known login platforms.
// The set is configurable via YAML so new platforms can be added
// without a code change; anything outside the set falls back to "other".
type PlatformEnums struct {
	Platforms []string `yaml:"platforms"`

	// Map for O(1) validation lookups (initialized from the slice)
	platformsMap map[string]struct{}

	// initOnce ensures thread-safe lazy initialization of the map
	initOnce sync.Once
}

// Config holds the login approval service configuration
type Config struct {
	Platforms PlatformEnums `yaml:"platforms"`
}

var (
	// DefaultPlatforms provides default platform values if the config file is not found.
	// These mirror the login widgets the voting portal ships with.
	DefaultPlatforms = PlatformEnums{
		Platforms: []string{
			"facebook",
			"gmail",
			"google",
			"zalo",
			"instagram",
			"outlook",
			"yahoo",
			"other",
		},
	}
)

// LoadPlatforms loads the platform enum configuration from a YAML file.
// If the file is not found, returns the defaults.
func LoadPlatforms(configPath string) (*PlatformEnums, error) {
	if configPath == "" {
		configPath = "config/platforms.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return GetDefaultPlatforms(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if len(cfg.Platforms.Platforms) == 0 {
		slog.Warn("Platform config file has no platforms, using defaults", "path", configPath)
		return GetDefaultPlatforms(), nil
	}

	return &cfg.Platforms, nil
}

// GetDefaultPlatforms returns a copy of the default platform enums
func GetDefaultPlatforms() *PlatformEnums {
	return &PlatformEnums{Platforms: append([]string{}, DefaultPlatforms.Platforms...)}
}

// initMap builds the lookup map from the configured slice
func (p *PlatformEnums) initMap() {
	p.initOnce.Do(func() {
		p.platformsMap = make(map[string]struct{}, len(p.Platforms))
		for _, v := range p.Platforms {
			p.platformsMap[v] = struct{}{}
		}
	})
}

// IsKnownPlatform reports whether the given platform tag is in the configured set
func (p *PlatformEnums) IsKnownPlatform(platform string) bool {
	p.initMap()
	_, ok := p.platformsMap[platform]
	return ok
}

// Normalize maps an unknown platform tag to the "other" fallback.
// The submitted tag is kept verbatim when it is in the configured set.
func (p *PlatformEnums) Normalize(platform string) string {
	if p.IsKnownPlatform(platform) {
		return platform
	}
	return "other"
}

// AppConfig holds the environment-driven runtime configuration
type AppConfig struct {
	Port          string
	AdminKey      string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PendingExpiry is how long a request may sit in pending/pending_otp
	// before the sweeper transitions it to expired.
	PendingExpiry time.Duration
	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration
}

// LoadAppConfig reads runtime configuration from the environment.
// Callers load .env (godotenv) before this in main.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:          getEnv("PORT", "8080"),
		AdminKey:      os.Getenv("ADMIN_KEY"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost port=5432 user=user password=password dbname=vote_portal sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       0,
	}

	if cfg.AdminKey == "" {
		return nil, fmt.Errorf("ADMIN_KEY is required")
	}

	pendingExpiry, err := parseDurationEnv("PENDING_EXPIRY", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.PendingExpiry = pendingExpiry

	sweepInterval, err := parseDurationEnv("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = sweepInterval

	return cfg, nil
}

// parseDurationEnv parses a duration-style env var ("30s", "15m", "1h", "7d")
// with a default
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := utils.ParseExpiryTime(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
