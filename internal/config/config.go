// Package config loads service configuration from an optional config file,
// a local .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/airaware/airaware/internal/database"
	"github.com/airaware/airaware/internal/location"
)

// Snapshot drivers.
const (
	SnapshotDriverFile     = "file"
	SnapshotDriverPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	WAQI     WAQIConfig     `mapstructure:"waqi"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	DB       DBConfig       `mapstructure:"db"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OTel     OTelConfig     `mapstructure:"otel"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Location LocationConfig `mapstructure:"location"`
}

// AppConfig configures the HTTP surface.
type AppConfig struct {
	Port       int    `mapstructure:"port"`
	Env        string `mapstructure:"env"`
	BaseURL    string `mapstructure:"base_url"`
	RequireTLS bool   `mapstructure:"require_tls"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WAQIConfig holds World Air Quality Index API settings.
type WAQIConfig struct {
	APIToken string        `mapstructure:"api_token"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GeocodeConfig holds reverse geocoding settings.
type GeocodeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SnapshotConfig selects where the generated JSON documents live.
type SnapshotConfig struct {
	Driver   string        `mapstructure:"driver"`
	Dir      string        `mapstructure:"dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JWTConfig holds admin token settings.
type JWTConfig struct {
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"exporter_otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// PubSubConfig holds the worker subscription settings.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Subscription string `mapstructure:"subscription"`
}

// WorkerConfig configures the snapshot refresh job.
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LocationConfig selects the location strategy.
type LocationConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// Load reads configuration from airaware.yaml (optional), .env (optional)
// and the environment. Environment variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()

	// Config file
	v.SetConfigName("airaware")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The page was deployed with the token under its Next.js name.
	if err := v.BindEnv("waqi.api_token", "WAQI_API_TOKEN", "NEXT_PUBLIC_WAQI_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("config: bind env: %w", err)
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "https://air.nmn.gl")
	v.SetDefault("app.require_tls", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("waqi.base_url", "https://api.waqi.info")
	v.SetDefault("waqi.timeout", 10*time.Second)
	v.SetDefault("geocode.base_url", "https://api.bigdatacloud.net/data")
	v.SetDefault("geocode.timeout", 5*time.Second)
	v.SetDefault("snapshot.driver", SnapshotDriverFile)
	v.SetDefault("snapshot.dir", "public")
	v.SetDefault("snapshot.cache_ttl", 5*time.Minute)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "airaware")
	v.SetDefault("db.password", "localdev")
	v.SetDefault("db.name", "airaware")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "https://air.nmn.gl")
	v.SetDefault("jwt.audience", "airaware-admin")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.subscription", "airaware-worker")
	v.SetDefault("worker.concurrency", 3)
	v.SetDefault("worker.request_interval", time.Second)
	v.SetDefault("worker.timeout", 30*time.Second)
	v.SetDefault("location.strategy", string(location.StrategyCoordinates))
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Snapshot.Driver {
	case SnapshotDriverFile, SnapshotDriverPostgres:
	default:
		return fmt.Errorf("config: unknown snapshot driver %q", c.Snapshot.Driver)
	}

	switch location.StrategyName(c.Location.Strategy) {
	case location.StrategyCoordinates, location.StrategyReverseGeocode:
	default:
		return fmt.Errorf("config: unknown location strategy %q", c.Location.Strategy)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}

	if c.IsProduction() && c.JWT.SigningKey == "" {
		return errors.New("config: JWT_SIGNING_KEY is required in production")
	}

	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Database converts the DB settings for database.Connect. The application
// name tags the connections of each binary.
func (c *Config) Database(applicationName string) database.Config {
	return database.Config{
		ApplicationName: applicationName,
		Host:            c.DB.Host,
		Port:            c.DB.Port,
		User:            c.DB.User,
		Password:        c.DB.Password,
		Database:        c.DB.Name,
		SSLMode:         c.DB.SSLMode,
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

// NewLogger builds the root logger for a service.
func NewLogger(cfg LogConfig, service, version string) (zerolog.Logger, error) {
	return newLogger(os.Stdout, cfg, service, version)
}

func newLogger(w io.Writer, cfg LogConfig, service, version string) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("config: parse log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger(), nil
}
