package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the branch locator.
//
// Values come from, in order of precedence: environment variables prefixed with
// BRANCHMAP_ (dots in keys become underscores), the optional YAML file named by
// BRANCHMAP_CONFIG, and built-in defaults. A .env file is loaded first when present.
type Config struct {
	Env       string         // Env is the current environment: local, development, production.
	Port      int            // Port is the HTTP API port.
	RadiusKm  float64        // RadiusKm is the ATM search radius around a branch.
	ThemeFile string         // ThemeFile optionally overrides the color palette.
	Source    SourceConfig   // Source selects where branch and ATM payloads come from.
	Cache     CacheConfig    // Cache tunes the query cache.
	Google    GoogleConfig   // Google configures map snapshots.
	Database  PostgresConfig // Database holds the postgres database configuration.
}

// SourceConfig selects and tunes the payload source.
type SourceConfig struct {
	Type      string        // http or postgres
	BaseURL   string        // base of {base}/branches and {base}/atms
	Timeout   time.Duration // per-request timeout
	RateLimit int           // outbound requests per second, 0 disables limiting
}

// CacheConfig holds the query cache timings.
type CacheConfig struct {
	BranchesStale time.Duration
	ATMsStale     time.Duration
	ATMsGC        time.Duration
	Retry         int
	GCInterval    time.Duration
}

// GoogleConfig configures the Google Static Maps client. Snapshots are disabled without a key.
type GoogleConfig struct {
	APIKey    string
	RateLimit int
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

var defaults = map[string]string{
	"env":                  "production",
	"port":                 "8080",
	"radius_km":            "15",
	"theme_file":           "",
	"source.type":          "http",
	"source.base_url":      "",
	"source.timeout":       "10s",
	"source.rate_limit":    "0",
	"cache.branches_stale": "5m",
	"cache.atms_stale":     "10m",
	"cache.atms_gc":        "30m",
	"cache.retry":          "0",
	"cache.gc_interval":    "1m",
	"google.api_key":       "",
	"google.rate_limit":    "10",
	"postgres.host":        "",
	"postgres.port":        "5432",
	"postgres.user":        "",
	"postgres.password":    "",
	"postgres.db_name":     "",
}

// MustLoad loads the configuration and panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BRANCHMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// The database variables keep their unprefixed names as a fallback.
	_ = v.BindEnv("postgres.host", "BRANCHMAP_POSTGRES_HOST", "DB_HOST")
	_ = v.BindEnv("postgres.port", "BRANCHMAP_POSTGRES_PORT", "DB_PORT")
	_ = v.BindEnv("postgres.user", "BRANCHMAP_POSTGRES_USER", "DB_USERNAME")
	_ = v.BindEnv("postgres.password", "BRANCHMAP_POSTGRES_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("postgres.db_name", "BRANCHMAP_POSTGRES_DB_NAME", "DB_NAME")

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		panic("failed to parse port for API server from configuration")
	}

	radius, err := strconv.ParseFloat(v.GetString("radius_km"), 64)
	if err != nil || radius <= 0 {
		panic("failed to parse radius from configuration, must be a positive number")
	}

	timeout, err := time.ParseDuration(v.GetString("source.timeout"))
	if err != nil {
		panic("failed to parse source timeout from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("source.rate_limit"))
	if err != nil {
		panic("failed to parse source rate limit from configuration, must be an integer type")
	}

	retry, err := strconv.Atoi(v.GetString("cache.retry"))
	if err != nil {
		panic("failed to parse cache retry from configuration, must be an integer type")
	}

	googleRateLimit, err := strconv.Atoi(v.GetString("google.rate_limit"))
	if err != nil {
		panic("failed to parse google rate limit from configuration, must be an integer type")
	}

	return &Config{
		Env:       v.GetString("env"),
		Port:      port,
		RadiusKm:  radius,
		ThemeFile: v.GetString("theme_file"),
		Source: SourceConfig{
			Type:      v.GetString("source.type"),
			BaseURL:   v.GetString("source.base_url"),
			Timeout:   timeout,
			RateLimit: rateLimit,
		},
		Cache: CacheConfig{
			BranchesStale: mustDuration(v, "cache.branches_stale"),
			ATMsStale:     mustDuration(v, "cache.atms_stale"),
			ATMsGC:        mustDuration(v, "cache.atms_gc"),
			Retry:         retry,
			GCInterval:    mustDuration(v, "cache.gc_interval"),
		},
		Google: GoogleConfig{
			APIKey:    v.GetString("google.api_key"),
			RateLimit: googleRateLimit,
		},
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
	}
}

func mustDuration(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		panic("failed to parse cache durations from configuration")
	}
	return d
}
