package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the fraud monitor
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Import    ImportConfig    `mapstructure:"import"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  string        `mapstructure:"max_request_size"`
}

// DatabaseConfig holds PostgreSQL configuration. An empty host selects the
// in-memory store
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// Circuit breaker around every store call
	BreakerMaxRequests      uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval         time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration. Disabled when Enabled is false
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxRetries      int           `mapstructure:"max_retries"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MetricsCacheTTL time.Duration `mapstructure:"metrics_cache_ttl"`
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig holds Kafka configuration. Disabled when Enabled is false
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	ClientID          string   `mapstructure:"client_id"`
	TransactionsTopic string   `mapstructure:"transactions_topic"`
	AlertsTopic       string   `mapstructure:"alerts_topic"`
}

// ScoringConfig holds rule engine parameters
type ScoringConfig struct {
	BaseProbability float64 `mapstructure:"base_probability"`
	MaxProbability  float64 `mapstructure:"max_probability"`
	BaseCurrency    string  `mapstructure:"base_currency"`
}

// LifecycleConfig holds the automatic transition policy
type LifecycleConfig struct {
	LargeAmountBlockThreshold float64 `mapstructure:"large_amount_block_threshold"`
}

// ImportConfig holds bulk import limits
type ImportConfig struct {
	BatchSize   int `mapstructure:"batch_size"`
	MaxBatch    int `mapstructure:"max_batch"`
	Parallelism int `mapstructure:"parallelism"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	Debug         bool    `mapstructure:"debug"`
	TracingEnable bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	JWTIssuer      string   `mapstructure:"jwt_issuer"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase loads only the database section. Tools that never serve
// requests use it so they do not need the security settings
func LoadDatabase() (DatabaseConfig, error) {
	cfg, err := load()
	if err != nil {
		return DatabaseConfig{}, err
	}
	return cfg.Database, nil
}

func load() (*Config, error) {
	// Local .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("FRAUD_MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fraud-monitor")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.Scoring.BaseProbability < 0 || c.Scoring.MaxProbability > 1 ||
		c.Scoring.BaseProbability > c.Scoring.MaxProbability {
		return fmt.Errorf("config: scoring probabilities must satisfy 0 <= base <= max <= 1")
	}
	if c.Lifecycle.LargeAmountBlockThreshold < 0 {
		return fmt.Errorf("config: lifecycle.large_amount_block_threshold must not be negative")
	}
	if c.Import.BatchSize <= 0 || c.Import.MaxBatch < c.Import.BatchSize {
		return fmt.Errorf("config: import.batch_size must be positive and not exceed import.max_batch")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("config: security.jwt_secret is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.metrics_port", 9095)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", "2M")

	// Database defaults
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "fraud_monitor")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.breaker_max_requests", 1)
	v.SetDefault("database.breaker_interval", "60s")
	v.SetDefault("database.breaker_timeout", "30s")
	v.SetDefault("database.breaker_failure_threshold", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.metrics_cache_ttl", "1m")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "fraud-monitor")
	v.SetDefault("kafka.transactions_topic", "fraud.transactions.scored")
	v.SetDefault("kafka.alerts_topic", "fraud.alerts")

	// Scoring defaults
	v.SetDefault("scoring.base_probability", 0.05)
	v.SetDefault("scoring.max_probability", 0.95)
	v.SetDefault("scoring.base_currency", "INR")

	// Lifecycle defaults
	v.SetDefault("lifecycle.large_amount_block_threshold", 30000.0)

	// Import defaults
	v.SetDefault("import.batch_size", 100)
	v.SetDefault("import.max_batch", 1000)
	v.SetDefault("import.parallelism", 8)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "fraud-monitor")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.debug", false)
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)

	// Security defaults
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_issuer", "")
	v.SetDefault("security.allowed_origins", []string{"*"})
}
