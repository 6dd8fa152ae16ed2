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

// Endpoint is one upstream HTTP source.
type Endpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic"`
			FlushInterval  time.Duration `yaml:"flush_interval"`
			CountThreshold int           `yaml:"count_threshold"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Sources struct {
		Timeout        time.Duration `yaml:"timeout"`
		RetryAttempts  int           `yaml:"retry_attempts"`
		RetryBackoff   time.Duration `yaml:"retry_backoff"`
		CryptoCompare  Endpoint      `yaml:"cryptocompare"`
		DefiLlama      Endpoint      `yaml:"defillama"`
		Binance        Endpoint      `yaml:"binance"`
		Coinbase       Endpoint      `yaml:"coinbase"`
		Bitfinex       Endpoint      `yaml:"bitfinex"`
		Deribit        Endpoint      `yaml:"deribit"`
		BlockchainInfo Endpoint      `yaml:"blockchain_info"`
		BitcoinData    Endpoint      `yaml:"bitcoin_data"`
		Coinalyze      struct {
			Endpoint          `yaml:",inline"`
			BatchSize         int `yaml:"batch_size"`
			RequestsPerMinute int `yaml:"requests_per_minute"`
		} `yaml:"coinalyze"`
		CoinGecko Endpoint `yaml:"coingecko"`
		Upbit     Endpoint `yaml:"upbit"`
		Bithumb   Endpoint `yaml:"bithumb"`
	} `yaml:"sources"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl"`
		MemoryMaxSize int           `yaml:"memory_max_size"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Topics       struct {
			Dashboard string `yaml:"dashboard"`
			Screener  string `yaml:"screener"`
			Refresh   string `yaml:"refresh"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID        string        `yaml:"group_id"`
			OffsetReset    string        `yaml:"offset_reset"`
			Workers        int           `yaml:"workers"`
			BufferSize     int           `yaml:"buffer_size"`
			RetryMax       int           `yaml:"retry_max"`
			BackoffMin     time.Duration `yaml:"backoff_min"`
			BackoffMax     time.Duration `yaml:"backoff_max"`
			HandlerTimeout time.Duration `yaml:"handler_timeout"`
			MaxAge         time.Duration `yaml:"max_age"`
			DLQTopic       string        `yaml:"dlq_topic"`
			MinBytes       int           `yaml:"min_bytes"`
			MaxBytes       int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Dashboard struct {
		FetchTimeout     time.Duration `yaml:"fetch_timeout"`
		IndicatorTimeout time.Duration `yaml:"indicator_timeout"`
		RefreshLockTTL   time.Duration `yaml:"refresh_lock_ttl"`
		RefreshSecret    string        `yaml:"refresh_secret"`
	} `yaml:"dashboard"`
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

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (when present), then the YAML file, then environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CRYPTOCOMPARE_API_KEY"); v != "" {
		c.Sources.CryptoCompare.APIKey = v
	}
	if v := os.Getenv("COINALYZE_API_KEY"); v != "" {
		c.Sources.Coinalyze.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("REFRESH_SECRET"); v != "" {
		c.Dashboard.RefreshSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Sources.Timeout <= 0 {
		c.Sources.Timeout = 30 * time.Second
	}
	if c.Sources.RetryAttempts <= 0 {
		c.Sources.RetryAttempts = 3
	}
	if c.Sources.RetryBackoff <= 0 {
		c.Sources.RetryBackoff = 500 * time.Millisecond
	}
	if c.Sources.Coinalyze.BatchSize <= 0 {
		c.Sources.Coinalyze.BatchSize = 20
	}
	if c.Sources.Coinalyze.RequestsPerMinute <= 0 {
		c.Sources.Coinalyze.RequestsPerMinute = 40
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.MemoryMaxSize <= 0 {
		c.Cache.MemoryMaxSize = 256
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "cyclescope"
	}
	if c.Dashboard.FetchTimeout <= 0 {
		c.Dashboard.FetchTimeout = 2 * time.Minute
	}
	if c.Dashboard.IndicatorTimeout <= 0 {
		c.Dashboard.IndicatorTimeout = 90 * time.Second
	}
	if c.Dashboard.RefreshLockTTL <= 0 {
		c.Dashboard.RefreshLockTTL = 10 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got '%s'", c.Logging.Format)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Logging.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collector requires kafka.enabled")
	}
	return nil
}
