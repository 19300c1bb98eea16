package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the copilot service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Feed       FeedConfig       `yaml:"feed"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	Mode            string        `yaml:"mode"` // gin mode: debug | release | test
}

// ModelConfig points at the trained scorer artifact and bounds its calls.
type ModelConfig struct {
	Path         string        `yaml:"path"`
	ScoreTimeout time.Duration `yaml:"scoreTimeout"`
	AdvisorPath  string        `yaml:"advisorPath"`
}

// SimulatorConfig controls synthetic telemetry generation.
type SimulatorConfig struct {
	Seed            int64         `yaml:"seed"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// GenerationConfig configures the free-form text backend.
type GenerationConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CacheConfig controls the answer cache behind the generation backend.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          bool          `yaml:"tls"`
}

// FeedConfig controls the MQTT prediction feed.
type FeedConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientID"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COPILOT_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			Mode:            "release",
		},
		Model: ModelConfig{
			Path:         "configs/model.json",
			ScoreTimeout: 2 * time.Second,
		},
		Simulator: SimulatorConfig{
			RefreshInterval: 30 * time.Second,
		},
		Generation: GenerationConfig{
			Model:    "gpt-4o-mini",
			Timeout:  15 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Feed: FeedConfig{
			Enabled: false,
			Topic:   "fleet/predictions/{machine_id}",
			QoS:     1,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COPILOT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("COPILOT_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("COPILOT_SERVER_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("COPILOT_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("COPILOT_MODEL_SCORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.ScoreTimeout = d
		}
	}
	if v := os.Getenv("COPILOT_ADVISOR_PATH"); v != "" {
		cfg.Model.AdvisorPath = v
	}
	if v := os.Getenv("COPILOT_SIMULATOR_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulator.Seed = seed
		}
	}
	if v := os.Getenv("COPILOT_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulator.RefreshInterval = d
		}
	}
	if v := os.Getenv("COPILOT_GENERATION_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("COPILOT_GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("COPILOT_GENERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generation.Timeout = d
		}
	}
	if v := os.Getenv("COPILOT_GENERATION_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generation.CacheTTL = d
		}
	}
	if v := os.Getenv("COPILOT_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("COPILOT_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("COPILOT_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("COPILOT_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("COPILOT_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("COPILOT_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("COPILOT_FEED_ENABLED"); v != "" {
		cfg.Feed.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("COPILOT_FEED_BROKER"); v != "" {
		cfg.Feed.Broker = v
	}
	if v := os.Getenv("COPILOT_FEED_CLIENT_ID"); v != "" {
		cfg.Feed.ClientID = v
	}
	if v := os.Getenv("COPILOT_FEED_USERNAME"); v != "" {
		cfg.Feed.Username = v
	}
	if v := os.Getenv("COPILOT_FEED_PASSWORD"); v != "" {
		cfg.Feed.Password = v
	}
	if v := os.Getenv("COPILOT_FEED_TOPIC"); v != "" {
		cfg.Feed.Topic = v
	}
	if v := os.Getenv("COPILOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COPILOT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
