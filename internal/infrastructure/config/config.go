package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Queue      QueueConfig
	Scheduler  SchedulerConfig
	PrestaShop PrestaShopConfig
	RabbitMQ   RabbitMQConfig
	Storage    StorageConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
	// GORM log level: silent, error, warn, info
	DBLevel string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the admin API bearer token settings.
// An empty secret disables authentication (development only).
type AuthConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// QueueConfig holds the import job queue configuration
type QueueConfig struct {
	Workers      int
	BufferSize   int
	PollInterval time.Duration
	JobTimeout   time.Duration
	StaleAfter   time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxRetry     time.Duration
	// LockBackend selects the import lock: "postgres", "redis" or "memory"
	LockBackend string
	LockTTL     time.Duration
}

// SchedulerConfig holds cron specs for the recurring backend actions.
// An empty spec disables the action.
type SchedulerConfig struct {
	Enabled          bool
	ImportCustomers  string
	ImportProducts   string
	ImportOrders     string
	ImportCarts      string
	ImportCarriers   string
	ExportStock      string
	MaxParallelSyncs int
}

// PrestaShopConfig holds web service client settings shared by all backends
type PrestaShopConfig struct {
	Timeout         time.Duration
	RetryCount      int
	RetryWait       time.Duration
	PageSize        int
	MaxResponseSize int64
	Debug           bool
}

// RabbitMQConfig holds the optional job notification broker settings
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	Port       int
	User       string
	Password   string
	VHost      string
	Exchange   string
	RoutingKey string
}

// StorageConfig holds S3-compatible object storage settings for product images
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool

	// PublicURL is the base URL of public image links. When empty, links
	// are presigned for PresignExpiration.
	PublicURL         string
	PresignExpiration time.Duration
}

// TelemetryConfig holds OpenTelemetry exporter settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	MetricsInterval   time.Duration
	Logs              bool
	// DBTracing adds a span per SQL statement
	DBTracing       bool
	SlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PSC_ prefix (e.g., PSC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
// A .env file in the working directory is loaded into the environment first;
// variables already set are not overridden.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PSC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("auth.secret"),
			Issuer: v.GetString("auth.issuer"),
		},
		Log: LogConfig{
			Level:   v.GetString("log.level"),
			Format:  v.GetString("log.format"),
			Output:  v.GetString("log.output"),
			DBLevel: v.GetString("log.db_level"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Queue: QueueConfig{
			Workers:      v.GetInt("queue.workers"),
			BufferSize:   v.GetInt("queue.buffer_size"),
			PollInterval: v.GetDuration("queue.poll_interval"),
			JobTimeout:   v.GetDuration("queue.job_timeout"),
			StaleAfter:   v.GetDuration("queue.stale_after"),
			MaxAttempts:  v.GetInt("queue.max_attempts"),
			RetryDelay:   v.GetDuration("queue.retry_delay"),
			MaxRetry:     v.GetDuration("queue.max_retry"),
			LockBackend:  v.GetString("queue.lock_backend"),
			LockTTL:      v.GetDuration("queue.lock_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler.enabled"),
			ImportCustomers:  v.GetString("scheduler.import_customers"),
			ImportProducts:   v.GetString("scheduler.import_products"),
			ImportOrders:     v.GetString("scheduler.import_orders"),
			ImportCarts:      v.GetString("scheduler.import_carts"),
			ImportCarriers:   v.GetString("scheduler.import_carriers"),
			ExportStock:      v.GetString("scheduler.export_stock"),
			MaxParallelSyncs: v.GetInt("scheduler.max_parallel_syncs"),
		},
		PrestaShop: PrestaShopConfig{
			Timeout:         v.GetDuration("prestashop.timeout"),
			RetryCount:      v.GetInt("prestashop.retry_count"),
			RetryWait:       v.GetDuration("prestashop.retry_wait"),
			PageSize:        v.GetInt("prestashop.page_size"),
			MaxResponseSize: v.GetInt64("prestashop.max_response_size"),
			Debug:           v.GetBool("prestashop.debug"),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:    v.GetBool("rabbitmq.enabled"),
			Host:       v.GetString("rabbitmq.host"),
			Port:       v.GetInt("rabbitmq.port"),
			User:       v.GetString("rabbitmq.user"),
			Password:   v.GetString("rabbitmq.password"),
			VHost:      v.GetString("rabbitmq.vhost"),
			Exchange:   v.GetString("rabbitmq.exchange"),
			RoutingKey: v.GetString("rabbitmq.routing_key"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			Logs:              v.GetBool("telemetry.logs"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			SlowQueryThresh:   v.GetDuration("telemetry.slow_query_thresh"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PublicURL:         v.GetString("storage.public_url"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "prestashop-connector"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "connector"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "prestashop-connector"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.DBLevel == "" {
		cfg.Log.DBLevel = "warn"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.BufferSize == 0 {
		cfg.Queue.BufferSize = 100
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 5 * time.Second
	}
	if cfg.Queue.JobTimeout == 0 {
		cfg.Queue.JobTimeout = 15 * time.Minute
	}
	if cfg.Queue.StaleAfter == 0 {
		cfg.Queue.StaleAfter = 4 * cfg.Queue.JobTimeout
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 5
	}
	if cfg.Queue.RetryDelay == 0 {
		cfg.Queue.RetryDelay = 10 * time.Second
	}
	if cfg.Queue.MaxRetry == 0 {
		cfg.Queue.MaxRetry = 30 * time.Minute
	}
	if cfg.Queue.LockBackend == "" {
		cfg.Queue.LockBackend = "postgres"
	}
	if cfg.Queue.LockTTL == 0 {
		cfg.Queue.LockTTL = 10 * time.Minute
	}
	if cfg.Scheduler.MaxParallelSyncs == 0 {
		cfg.Scheduler.MaxParallelSyncs = 2
	}
	if cfg.PrestaShop.Timeout == 0 {
		cfg.PrestaShop.Timeout = 60 * time.Second
	}
	if cfg.PrestaShop.RetryCount == 0 {
		cfg.PrestaShop.RetryCount = 2
	}
	if cfg.PrestaShop.RetryWait == 0 {
		cfg.PrestaShop.RetryWait = 500 * time.Millisecond
	}
	if cfg.PrestaShop.PageSize == 0 {
		cfg.PrestaShop.PageSize = 1000
	}
	if cfg.PrestaShop.MaxResponseSize == 0 {
		cfg.PrestaShop.MaxResponseSize = 50 << 20
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.VHost == "" {
		cfg.RabbitMQ.VHost = "/"
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "prestashop.connector"
	}
	if cfg.RabbitMQ.RoutingKey == "" {
		cfg.RabbitMQ.RoutingKey = "job.finished"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Queue.LockBackend {
	case "postgres", "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("queue.lock_backend=redis requires redis.enabled=true")
		}
	default:
		return fmt.Errorf("queue.lock_backend must be one of postgres, redis, memory, got %q", c.Queue.LockBackend)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Queue.StaleAfter <= c.Queue.JobTimeout {
		return fmt.Errorf("queue.stale_after must be longer than queue.job_timeout")
	}
	if c.PrestaShop.PageSize <= 0 {
		return fmt.Errorf("prestashop.page_size must be positive")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required in production")
		}
		if len(c.Auth.Secret) < 32 {
			return fmt.Errorf("auth.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// URL returns the AMQP connection URL with escaped credentials
func (r *RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:   r.VHost,
	}
	return u.String()
}
