package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Engine    EngineConfig    `yaml:"engine"`
	Identity  IdentityConfig  `yaml:"identity"`
	Transport TransportConfig `yaml:"transport"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

// StorageConfig holds filesystem storage configuration.
type StorageConfig struct {
	VideoPath    string `yaml:"video_path" envconfig:"STORAGE_VIDEO_PATH"`
	AudioPath    string `yaml:"audio_path" envconfig:"STORAGE_AUDIO_PATH"`
	TempPath     string `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH"`
	DatabasePath string `yaml:"database_path" envconfig:"STORAGE_DATABASE_PATH"`
	MinFreeBytes int64  `yaml:"min_free_bytes" envconfig:"STORAGE_MIN_FREE_BYTES"`
	Reencode     bool   `yaml:"reencode" envconfig:"STORAGE_REENCODE"`
}

// EngineConfig holds acquisition orchestrator configuration.
type EngineConfig struct {
	MaxStrategies       int           `yaml:"max_strategies" envconfig:"ENGINE_MAX_STRATEGIES"`
	AttemptsPerStrategy int           `yaml:"attempts_per_strategy" envconfig:"ENGINE_ATTEMPTS_PER_STRATEGY"`
	RetryDelay          time.Duration `yaml:"retry_delay" envconfig:"ENGINE_RETRY_DELAY"`
	MaxRetryDelay       time.Duration `yaml:"max_retry_delay" envconfig:"ENGINE_MAX_RETRY_DELAY"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout" envconfig:"ENGINE_PROBE_TIMEOUT"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout" envconfig:"ENGINE_FETCH_TIMEOUT"`
}

// ProxyEntry pairs a proxy route with the credential bundle used through it.
type ProxyEntry struct {
	URL    string `yaml:"url"`
	Bundle string `yaml:"bundle"`
}

// IdentityConfig holds the proxied identity pool configuration.
type IdentityConfig struct {
	Proxies    []ProxyEntry `yaml:"proxies"`
	CookieDir  string       `yaml:"cookie_dir" envconfig:"IDENTITY_COOKIE_DIR"`
	Passphrase string       `yaml:"passphrase" envconfig:"IDENTITY_PASSPHRASE"`
}

// TransportConfig holds delivery transport configuration.
type TransportConfig struct {
	BotToken         string        `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	StandardBaseURL  string        `yaml:"standard_base_url" envconfig:"TRANSPORT_STANDARD_BASE_URL"`
	AlternateBaseURL string        `yaml:"alternate_base_url" envconfig:"TRANSPORT_ALTERNATE_BASE_URL"`
	SizeThreshold    int64         `yaml:"size_threshold" envconfig:"TRANSPORT_SIZE_THRESHOLD"`
	UploadTimeout    time.Duration `yaml:"upload_timeout" envconfig:"TRANSPORT_UPLOAD_TIMEOUT"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" envconfig:"TRANSPORT_PROBE_TIMEOUT"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"WORKER_MAX_RETRIES"`
}

// defaults returns the built-in configuration. Defaults live here rather
// than in struct tags: envconfig reapplies tag defaults over values already
// loaded from the file whenever the variable is unset.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         9614,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			VideoPath:    "/data/videos",
			AudioPath:    "/data/audio",
			TempPath:     "/data/temp",
			DatabasePath: "/data/mediagrab.db",
			MinFreeBytes: 1 << 30, // 1GB
		},
		Engine: EngineConfig{
			MaxStrategies:       6,
			AttemptsPerStrategy: 2,
			RetryDelay:          2 * time.Second,
			MaxRetryDelay:       30 * time.Second,
			ProbeTimeout:        time.Minute,
			FetchTimeout:        15 * time.Minute,
		},
		Identity: IdentityConfig{
			CookieDir: "/data/cookies",
		},
		Transport: TransportConfig{
			StandardBaseURL:  "https://api.telegram.org",
			AlternateBaseURL: "http://127.0.0.1:8081",
			SizeThreshold:    50 * 1024 * 1024,
			UploadTimeout:    5 * time.Minute,
			ProbeTimeout:     5 * time.Second,
		},
		Worker: WorkerConfig{
			Count:        2,
			PollInterval: 2 * time.Second,
			MaxRetries:   1,
		},
	}
}

// Load reads configuration in precedence order: built-in defaults, then the
// YAML file, then environment variables.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Transport.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Storage.VideoPath == "" {
		return fmt.Errorf("STORAGE_VIDEO_PATH is required")
	}
	if c.Storage.AudioPath == "" {
		return fmt.Errorf("STORAGE_AUDIO_PATH is required")
	}
	if c.Transport.SizeThreshold <= 0 {
		return fmt.Errorf("TRANSPORT_SIZE_THRESHOLD must be positive")
	}
	for i, p := range c.Identity.Proxies {
		if p.URL == "" {
			return fmt.Errorf("identity proxy %d has no url", i)
		}
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DestDir returns the destination directory for a content kind.
func (c *StorageConfig) DestDir(kind string) string {
	if kind == "audio" {
		return c.AudioPath
	}
	return c.VideoPath
}
