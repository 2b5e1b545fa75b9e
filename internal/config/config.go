package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// MIME types accepted by the conversion service.
const (
	TypePDF  = "application/pdf"
	TypeDOC  = "application/msword"
	TypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ServiceConfig describes how to reach one deployment of the conversion
// service.
type ServiceConfig struct {
	BaseURL  string `yaml:"baseURL"`
	APIKey   string `yaml:"apiKey"`
	CORSMode string `yaml:"corsMode"`
	Origin   string `yaml:"origin"`
}

// EndpointsConfig holds the remote operation paths, relative to BaseURL.
type EndpointsConfig struct {
	Process  string `yaml:"process"`
	Status   string `yaml:"status"`
	Download string `yaml:"download"`
	Cancel   string `yaml:"cancel"`
}

type UploadConfig struct {
	MaxSizeBytes int64    `yaml:"maxSizeBytes"`
	AllowedTypes []string `yaml:"allowedTypes"`
}

type PollingConfig struct {
	IntervalMs int `yaml:"intervalMs"`
	TimeoutMs  int `yaml:"timeoutMs"`
}

type HTTPConfig struct {
	TimeoutMs int `yaml:"timeoutMs"`
}

// SessionConfig controls where the Active Job Set is persisted. The ID
// scopes the set the way a browser tab scopes sessionStorage.
type SessionConfig struct {
	ID         string `yaml:"id"`
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	DSN        string `yaml:"dsn"`
	RedisURL   string `yaml:"redisURL"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Environment  string                   `yaml:"environment"`
	Environments map[string]ServiceConfig `yaml:"environments"`
	Endpoints    EndpointsConfig          `yaml:"endpoints"`
	Upload       UploadConfig             `yaml:"upload"`
	Polling      PollingConfig            `yaml:"polling"`
	HTTP         HTTPConfig               `yaml:"http"`
	Session      SessionConfig            `yaml:"session"`
	Server       ServerConfig             `yaml:"server"`
	Log          LogConfig                `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: EnvDev,
		Environments: map[string]ServiceConfig{
			EnvDev: {
				BaseURL:  "http://localhost:8000",
				CORSMode: "cors",
				Origin:   "http://localhost:8000",
			},
			EnvProd: {
				BaseURL:  "https://api.example.com/api",
				CORSMode: "cors",
			},
		},
		Endpoints: EndpointsConfig{
			Process:  "/ProcessDocument",
			Status:   "/CheckStatus",
			Download: "/DownloadResult",
			Cancel:   "/CancelProcessing",
		},
		Upload: UploadConfig{
			MaxSizeBytes: 10 * 1024 * 1024,
			AllowedTypes: []string{TypePDF, TypeDOC, TypeDOCX},
		},
		Polling: PollingConfig{
			IntervalMs: 2000,
			TimeoutMs:  300000,
		},
		HTTP: HTTPConfig{TimeoutMs: 30000},
		Session: SessionConfig{
			ID:         "default",
			Backend:    "sqlite",
			Path:       "data/session.db",
			TTLMinutes: 24 * 60,
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: 8000},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// LoadEnv loads a .env file when one exists and applies DOC2TXT_*
// overrides to cfg.
func LoadEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("DOC2TXT_ENV"); v != "" {
		cfg.Environment = v
	}

	// An unknown environment is only created by an explicit override, so
	// Validate still reports a mistyped DOC2TXT_ENV.
	svc, known := cfg.Environments[cfg.Environment]
	overridden := false
	if v := os.Getenv("DOC2TXT_BASE_URL"); v != "" {
		svc.BaseURL = v
		overridden = true
	}
	if v := os.Getenv("DOC2TXT_API_KEY"); v != "" {
		svc.APIKey = v
		overridden = true
	}
	if known || overridden {
		if cfg.Environments == nil {
			cfg.Environments = map[string]ServiceConfig{}
		}
		cfg.Environments[cfg.Environment] = svc
	}

	if v := os.Getenv("DOC2TXT_SESSION_ID"); v != "" {
		cfg.Session.ID = v
	}
	if v := os.Getenv("DOC2TXT_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("DOC2TXT_SESSION_DSN"); v != "" {
		cfg.Session.DSN = v
	}
	if v := os.Getenv("DOC2TXT_REDIS_URL"); v != "" {
		cfg.Session.RedisURL = v
	}
	if v := os.Getenv("DOC2TXT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// fillDefaults restores zero-valued fields a partial YAML file may have
// cleared.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.Endpoints.Process == "" {
		c.Endpoints.Process = d.Endpoints.Process
	}
	if c.Endpoints.Status == "" {
		c.Endpoints.Status = d.Endpoints.Status
	}
	if c.Endpoints.Download == "" {
		c.Endpoints.Download = d.Endpoints.Download
	}
	if c.Endpoints.Cancel == "" {
		c.Endpoints.Cancel = d.Endpoints.Cancel
	}
	if c.Upload.MaxSizeBytes == 0 {
		c.Upload.MaxSizeBytes = d.Upload.MaxSizeBytes
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = d.Upload.AllowedTypes
	}
	if c.Polling.IntervalMs == 0 {
		c.Polling.IntervalMs = d.Polling.IntervalMs
	}
	if c.Polling.TimeoutMs == 0 {
		c.Polling.TimeoutMs = d.Polling.TimeoutMs
	}
	if c.HTTP.TimeoutMs == 0 {
		c.HTTP.TimeoutMs = d.HTTP.TimeoutMs
	}
	if c.Session.ID == "" {
		c.Session.ID = d.Session.ID
	}
	if c.Session.Backend == "" {
		c.Session.Backend = d.Session.Backend
	}
	if c.Session.Backend == "sqlite" && c.Session.Path == "" {
		c.Session.Path = d.Session.Path
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, ok := c.Environments[c.Environment]; !ok {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return errors.New("upload.maxSizeBytes must be positive")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return errors.New("upload.allowedTypes must not be empty")
	}
	if c.Polling.IntervalMs <= 0 {
		return errors.New("polling.intervalMs must be positive")
	}
	if c.Polling.TimeoutMs <= 0 {
		return errors.New("polling.timeoutMs must be positive")
	}
	switch strings.ToLower(c.Session.Backend) {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	return nil
}

// Service returns the settings of the active environment.
func (c *Config) Service() ServiceConfig {
	return c.Environments[c.Environment]
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMs) * time.Millisecond
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutMs) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutMs) * time.Millisecond
}

// TTL is how long an untouched Active Job Set survives. Zero keeps it
// forever.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}
