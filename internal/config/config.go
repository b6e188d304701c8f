package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Aging     AgingConfig     `mapstructure:"aging"`
	EPSS      EPSSConfig      `mapstructure:"epss"`
	Intake    IntakeConfig    `mapstructure:"intake"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled  bool               `mapstructure:"enabled"`
	URL      string             `mapstructure:"url"`
	Subjects NATSSubjectsConfig `mapstructure:"subjects"`
}

type NATSSubjectsConfig struct {
	RiskCreated      string `mapstructure:"risk_created"`
	RiskUpdated      string `mapstructure:"risk_updated"`
	TreatmentUpdated string `mapstructure:"treatment_updated"`
	EPSSRefreshed    string `mapstructure:"epss_refreshed"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ScoringConfig holds per-framework classification breakpoints.
// The Medium floor intentionally differs between frameworks: ISO 27001 and
// technology risks bucket Medium at score >= 6, NIST CSF and FAIR at >= 5.
type ScoringConfig struct {
	Frameworks map[string]Breakpoints `mapstructure:"frameworks"`
}

// Breakpoints defines the lower bound of each level above Low.
type Breakpoints struct {
	Critical int `mapstructure:"critical"`
	High     int `mapstructure:"high"`
	Medium   int `mapstructure:"medium"`
}

// AgingConfig holds due-soon windows per deadline-bearing entity.
type AgingConfig struct {
	ControlWindow        time.Duration `mapstructure:"control_window"`
	ContractExpiryWindow time.Duration `mapstructure:"contract_expiry_window"`
	ContractReviewWindow time.Duration `mapstructure:"contract_review_window"`
}

type EPSSConfig struct {
	APIURL          string        `mapstructure:"api_url"`
	BatchSize       int           `mapstructure:"batch_size"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type IntakeConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type AssistantConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/grchub")
	}

	v.SetEnvPrefix("GRCHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "GRCHUB_REDIS_HOST")
	v.BindEnv("redis.port", "GRCHUB_REDIS_PORT")
	v.BindEnv("redis.password", "GRCHUB_REDIS_PASSWORD")
	v.BindEnv("redis.tls", "GRCHUB_REDIS_TLS")
	v.BindEnv("database.host", "GRCHUB_DATABASE_HOST")
	v.BindEnv("database.port", "GRCHUB_DATABASE_PORT")
	v.BindEnv("database.user", "GRCHUB_DATABASE_USER")
	v.BindEnv("database.password", "GRCHUB_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "GRCHUB_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "GRCHUB_DATABASE_SSLMODE")
	v.BindEnv("nats.enabled", "GRCHUB_NATS_ENABLED")
	v.BindEnv("nats.url", "GRCHUB_NATS_URL")
	v.BindEnv("auth.api_key", "GRCHUB_AUTH_API_KEY")
	v.BindEnv("assistant.api_key", "GRCHUB_ASSISTANT_API_KEY")
	v.BindEnv("app.environment", "GRCHUB_APP_ENVIRONMENT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults carry a full config
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration from the default search paths
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "grchub")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "grchub")
	v.SetDefault("database.dbname", "grchub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "grchub:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subjects.risk_created", "grchub.risk.created")
	v.SetDefault("nats.subjects.risk_updated", "grchub.risk.updated")
	v.SetDefault("nats.subjects.treatment_updated", "grchub.treatment.updated")
	v.SetDefault("nats.subjects.epss_refreshed", "grchub.epss.refreshed")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.requests_per_hour", 2000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("scoring.frameworks.iso27001.critical", 15)
	v.SetDefault("scoring.frameworks.iso27001.high", 10)
	v.SetDefault("scoring.frameworks.iso27001.medium", 6)
	v.SetDefault("scoring.frameworks.nist_csf.critical", 15)
	v.SetDefault("scoring.frameworks.nist_csf.high", 10)
	v.SetDefault("scoring.frameworks.nist_csf.medium", 5)
	v.SetDefault("scoring.frameworks.fair.critical", 15)
	v.SetDefault("scoring.frameworks.fair.high", 10)
	v.SetDefault("scoring.frameworks.fair.medium", 5)
	v.SetDefault("scoring.frameworks.tech.critical", 15)
	v.SetDefault("scoring.frameworks.tech.high", 10)
	v.SetDefault("scoring.frameworks.tech.medium", 6)

	v.SetDefault("aging.control_window", "168h")          // 7 days
	v.SetDefault("aging.contract_expiry_window", "720h")  // 30 days
	v.SetDefault("aging.contract_review_window", "2160h") // 90 days

	v.SetDefault("epss.api_url", "https://api.first.org/data/v1/epss")
	v.SetDefault("epss.batch_size", 50)
	v.SetDefault("epss.freshness_window", "24h")
	v.SetDefault("epss.refresh_interval", "6h")
	v.SetDefault("epss.request_timeout", "30s")

	v.SetDefault("intake.session_ttl", "30m")

	v.SetDefault("assistant.enabled", false)
	v.SetDefault("assistant.api_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.temperature", 0.3)
	v.SetDefault("assistant.max_tokens", 1024)
	v.SetDefault("assistant.timeout", "60s")
}
