package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type OpenAIConfig struct {
	APIKey             string  `mapstructure:"api_key"`
	Model              string  `mapstructure:"model"`
	TranscriptionModel string  `mapstructure:"transcription_model"`
	MaxTokens          int     `mapstructure:"max_tokens"`
	Temperature        float64 `mapstructure:"temperature"`
}

// RedisConfig enables the shared lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type TrackerConfig struct {
	Timezone   string `mapstructure:"timezone"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Location loads the default tracker timezone.
func (c TrackerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("tracker.timezone: %w", err)
	}
	return loc, nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// parseRedisURL reads redis://[:password@]host:port[/db].
func parseRedisURL(redisURL string, base RedisConfig) (RedisConfig, error) {
	u, err := url.Parse(redisURL)
	if err != nil {
		return RedisConfig{}, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return RedisConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	cfg := base
	cfg.Addr = u.Host
	if password, ok := u.User.Password(); ok {
		cfg.Password = password
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		if cfg.DB, err = strconv.Atoi(db); err != nil {
			return RedisConfig{}, fmt.Errorf("invalid db %q", db)
		}
	}
	return cfg, nil
}

// LoadConfig reads path (skipped when empty) over the defaults, then applies
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.request_timeout", "2m")
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "daylog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "data/daylog.sqlite")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "2m")
	v.SetDefault("tracker.timezone", "UTC")
	v.SetDefault("tracker.max_retries", 3)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", false)

	// Enable environment variable support: DAYLOG_DATABASE_DRIVER etc.
	v.SetEnvPrefix("daylog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Well-known variables without the prefix, as hosting platforms set them
	if dbURL := lookupEnv(v, "DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if redisURL := lookupEnv(v, "REDIS_URL"); redisURL != "" {
		redisConfig, err := parseRedisURL(redisURL, config.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		config.Redis = redisConfig
	}

	if token := lookupEnv(v, "TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := lookupEnv(v, "OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func lookupEnv(v *viper.Viper, name string) string {
	if err := v.BindEnv(name, name); err != nil {
		return ""
	}
	return v.GetString(name)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	if c.Tracker.MaxRetries < 0 {
		return fmt.Errorf("tracker.max_retries: must not be negative")
	}
	if _, err := c.Tracker.Location(); err != nil {
		return err
	}
	return nil
}
