package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	SQLite struct {
		Path        string        `yaml:"path"`
		BusyTimeout time.Duration `yaml:"busy_timeout"`
	} `yaml:"sqlite"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		MemorySize int           `yaml:"memory_size"`
		TTL        time.Duration `yaml:"ttl"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		RetryMax   int           `yaml:"retry_max"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		EventsTopic  string   `yaml:"events_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	WebSocket struct {
		Enabled         bool          `yaml:"enabled"`
		SendBuffer      int           `yaml:"send_buffer"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		MaxMessageBytes int64         `yaml:"max_message_bytes"`
	} `yaml:"websocket"`
	Import struct {
		MaxRows         int `yaml:"max_rows"`
		RatePerMinute   int `yaml:"rate_per_minute"`
		RateBurst       int `yaml:"rate_burst"`
		MaxPayloadBytes int `yaml:"max_payload_bytes"`
	} `yaml:"import"`
	Analytics struct {
		DefaultPairing       string        `yaml:"default_pairing"`
		CacheTTL             time.Duration `yaml:"cache_ttl"`
		HistogramBins        int           `yaml:"histogram_bins"`
		ConcentrationMin     float64       `yaml:"concentration_min"`
		ConcentrationMax     float64       `yaml:"concentration_max"`
		ConcentrationDefault float64       `yaml:"concentration_default"`
		Tilt                 struct {
			MinTrades      int `yaml:"min_trades"`
			MaxStreakDepth int `yaml:"max_streak_depth"`
			MinSampleSize  int `yaml:"min_sample_size"`
		} `yaml:"tilt"`
	} `yaml:"analytics"`
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

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("TRADELENS_DB_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("TRADELENS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse TRADELENS_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
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
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = 5 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Cache.MemorySize == 0 {
		c.Cache.MemorySize = 512
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.RetryMax == 0 {
		c.Queue.RetryMax = 3
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 10 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "tradelens.executions"
	}
	if c.Kafka.EventsTopic == "" {
		c.Kafka.EventsTopic = "tradelens.journal.events"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "tradelens-journal"
	}
	if c.Kafka.Consumer.Workers == 0 {
		c.Kafka.Consumer.Workers = 2
	}
	if c.Kafka.Consumer.BufferSize == 0 {
		c.Kafka.Consumer.BufferSize = 100
	}
	if c.Kafka.Consumer.RetryMax == 0 {
		c.Kafka.Consumer.RetryMax = 3
	}
	if c.Kafka.Consumer.BackoffMin == 0 {
		c.Kafka.Consumer.BackoffMin = 50 * time.Millisecond
	}
	if c.Kafka.Consumer.BackoffMax == 0 {
		c.Kafka.Consumer.BackoffMax = 2 * time.Second
	}
	if c.Kafka.Consumer.MinBytes == 0 {
		c.Kafka.Consumer.MinBytes = 10e3
	}
	if c.Kafka.Consumer.MaxBytes == 0 {
		c.Kafka.Consumer.MaxBytes = 10e6
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "tradelens"
	}
	if c.ClickHouse.User == "" {
		c.ClickHouse.User = "default"
	}
	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = 64
	}
	if c.WebSocket.PingInterval == 0 {
		c.WebSocket.PingInterval = 30 * time.Second
	}
	if c.Import.MaxRows == 0 {
		c.Import.MaxRows = 50000
	}
	if c.Import.RatePerMinute == 0 {
		c.Import.RatePerMinute = 12
	}
	if c.Import.RateBurst == 0 {
		c.Import.RateBurst = 3
	}
	if c.Import.MaxPayloadBytes == 0 {
		c.Import.MaxPayloadBytes = 10 << 20
	}
	if c.Analytics.DefaultPairing == "" {
		c.Analytics.DefaultPairing = "fifo"
	}
	if c.Analytics.CacheTTL == 0 {
		c.Analytics.CacheTTL = 5 * time.Minute
	}
	if c.Analytics.HistogramBins == 0 {
		c.Analytics.HistogramBins = 11
	}
	if c.Analytics.ConcentrationMin == 0 {
		c.Analytics.ConcentrationMin = 5
	}
	if c.Analytics.ConcentrationMax == 0 {
		c.Analytics.ConcentrationMax = 30
	}
	if c.Analytics.ConcentrationDefault == 0 {
		c.Analytics.ConcentrationDefault = 10
	}
	if c.Analytics.Tilt.MinTrades == 0 {
		c.Analytics.Tilt.MinTrades = 10
	}
	if c.Analytics.Tilt.MaxStreakDepth == 0 {
		c.Analytics.Tilt.MaxStreakDepth = 4
	}
	if c.Analytics.Tilt.MinSampleSize == 0 {
		c.Analytics.Tilt.MinSampleSize = 20
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	switch strings.ToLower(c.Analytics.DefaultPairing) {
	case "fifo", "lifo":
	default:
		return fmt.Errorf("analytics.default_pairing must be 'fifo' or 'lifo', got '%s'", c.Analytics.DefaultPairing)
	}
	if c.Analytics.HistogramBins < 2 {
		return fmt.Errorf("analytics.histogram_bins must be at least 2")
	}
	if c.Analytics.ConcentrationMin <= 0 || c.Analytics.ConcentrationMax <= c.Analytics.ConcentrationMin {
		return fmt.Errorf("analytics concentration bounds are invalid")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
