package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		StaticDir       string        `yaml:"static_dir"`
	} `yaml:"server"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Feed struct {
		Mode         string        `yaml:"mode"` // rest or websocket
		TickerURL    string        `yaml:"ticker_url"`
		WebSocketURL string        `yaml:"websocket_url"`
		Channel      string        `yaml:"channel"`
		Timeout      time.Duration `yaml:"timeout"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Poller struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poller"`
	Import struct {
		HistoryFile string `yaml:"history_file"`
	} `yaml:"import"`
	Query struct {
		MaxPoints int `yaml:"max_points"`
	} `yaml:"query"`
	Cache struct {
		Backend string `yaml:"backend"` // memory or redis
		MaxSize int    `yaml:"max_size"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		Linger       time.Duration `yaml:"linger"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
	} `yaml:"kafka"`
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

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_TICKER_URL"); v != "" {
		c.Feed.TickerURL = v
	}
	if v := os.Getenv("HISTORY_FILE"); v != "" {
		c.Import.HistoryFile = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "price_history"
	}
	if c.Feed.Mode == "" {
		c.Feed.Mode = "rest"
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = time.Hour
	}
	if c.Query.MaxPoints == 0 {
		c.Query.MaxPoints = 200
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	if c.Feed.Mode != "rest" && c.Feed.Mode != "websocket" {
		return fmt.Errorf("feed.mode must be 'rest' or 'websocket', got '%s'", c.Feed.Mode)
	}
	if c.Feed.Mode == "rest" && c.Feed.TickerURL == "" {
		return fmt.Errorf("feed.ticker_url is required for rest mode")
	}
	if c.Feed.Mode == "websocket" && c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required for websocket mode")
	}
	if c.Poller.Interval > time.Hour {
		return fmt.Errorf("poller.interval must not be coarser than one hour")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
