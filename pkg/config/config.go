package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported table sources.
const (
	SourceCSV        = "csv"
	SourceParquet    = "parquet"
	SourceSQLite     = "sqlite"
	SourcePostgres   = "postgres"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		Source string `yaml:"source"`
		Dir    string `yaml:"dir"`
		DSN    string `yaml:"dsn"`
		Files  struct {
			Predictions string `yaml:"predictions"`
			PriceSeries string `yaml:"price_series"`
			Technicals  string `yaml:"technicals"`
			Earnings    string `yaml:"earnings"`
		} `yaml:"files"`
		Tables struct {
			Predictions string `yaml:"predictions"`
			PriceSeries string `yaml:"price_series"`
			Technicals  string `yaml:"technicals"`
			Earnings    string `yaml:"earnings"`
		} `yaml:"tables"`
		PredictionsInPercent bool          `yaml:"predictions_in_percent"`
		LoadTimeout          time.Duration `yaml:"load_timeout"`
	} `yaml:"data"`
	Dashboard struct {
		Title            string `yaml:"title"`
		Footer           string `yaml:"footer"`
		TopN             int    `yaml:"top_n"`
		TechnicalsCutoff string `yaml:"technicals_cutoff"`
	} `yaml:"dashboard"`
	RateLimit struct {
		Enabled  bool          `yaml:"enabled"`
		Backend  string        `yaml:"backend"` // memory | redis
		Capacity float64       `yaml:"capacity"`
		Refill   float64       `yaml:"refill_per_sec"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`

		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		PoolTimeout  time.Duration `yaml:"pool_timeout"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool          `yaml:"enabled"`
		Brokers       []string      `yaml:"brokers"`
		LogTopic      string        `yaml:"log_topic"`
		Compression   string        `yaml:"compression"`
		RequiredAcks  int           `yaml:"required_acks"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		FlushCount    int           `yaml:"flush_count"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		MaxExecution time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Default returns a config usable without a file: CSV tables under ./data.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8050
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	f := &c.Data.Files
	if f.Predictions == "" {
		f.Predictions = "all_predictions.csv"
	}
	if f.PriceSeries == "" {
		f.PriceSeries = "stock_price_predictions.csv"
	}
	if f.Technicals == "" {
		f.Technicals = "technical_indicators.csv"
	}
	if f.Earnings == "" {
		f.Earnings = "earnings.csv"
	}
	t := &c.Data.Tables
	if t.Predictions == "" {
		t.Predictions = "all_predictions"
	}
	if t.PriceSeries == "" {
		t.PriceSeries = "stock_price_predictions"
	}
	if t.Technicals == "" {
		t.Technicals = "technical_indicators"
	}
	if t.Earnings == "" {
		t.Earnings = "earnings"
	}
	if c.Data.LoadTimeout == 0 {
		c.Data.LoadTimeout = 30 * time.Second
	}
	if c.Dashboard.Title == "" {
		c.Dashboard.Title = "Stock Dashboard"
	}
	if c.Dashboard.TopN == 0 {
		c.Dashboard.TopN = 5
	}
	if c.Dashboard.TechnicalsCutoff == "" {
		c.Dashboard.TechnicalsCutoff = "2023-01-01"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.Refill == 0 {
		c.RateLimit.Refill = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Second
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "stockdash"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.PoolTimeout == 0 {
		c.Redis.PoolTimeout = 30 * time.Second
	}
	if c.Kafka.LogTopic == "" {
		c.Kafka.LogTopic = "stockdash.logs"
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "default"
	}
	if c.ClickHouse.User == "" {
		c.ClickHouse.User = "default"
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML, a .env file if one exists, and then
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Data.DSN = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return nil, fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Data.Source {
	case SourceCSV, SourceParquet:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for source '%s'", c.Data.Source)
		}
	case SourceSQLite, SourcePostgres:
		if c.Data.DSN == "" {
			return fmt.Errorf("data.dsn is required for source '%s'", c.Data.Source)
		}
	case SourceClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for source 'clickhouse'")
		}
	default:
		return fmt.Errorf("data.source must be one of csv, parquet, sqlite, postgres, clickhouse, got '%s'", c.Data.Source)
	}
	if c.Dashboard.TopN <= 0 {
		return fmt.Errorf("dashboard.top_n must be positive")
	}
	if _, err := time.Parse("2006-01-02", c.Dashboard.TechnicalsCutoff); err != nil {
		return fmt.Errorf("dashboard.technicals_cutoff: %w", err)
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("rate_limit.backend must be 'memory' or 'redis', got '%s'", c.RateLimit.Backend)
	}
	if c.RateLimit.Enabled && c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.enabled")
	}
	return nil
}

// TechnicalsCutoff returns the parsed cutoff date. Validate guarantees it parses.
func (c *Config) TechnicalsCutoff() time.Time {
	t, _ := time.Parse("2006-01-02", c.Dashboard.TechnicalsCutoff)
	return t
}
