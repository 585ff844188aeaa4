package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every override variable. Nested keys use a
// double underscore: BINARJOIN_SERVER__PORT -> server.port.
const EnvPrefix = "BINARJOIN_"

// Config holds all configuration for the BinarJoin AI engine.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
	Providers ProvidersConfig `koanf:"providers"`
	Engine    EngineConfig    `koanf:"engine"`
}

type ServerConfig struct {
	Port        int      `koanf:"port"`
	Version     string   `koanf:"version"`
	CORSOrigins []string `koanf:"cors_origins"`
	// APIKeys enables bearer-key auth on /api/v1 when non-empty.
	APIKeys []string `koanf:"api_keys"`
}

type DatabaseConfig struct {
	Driver         string `koanf:"driver"` // "sqlite" or "postgres"
	URL            string `koanf:"url"`
	MaxConnections int    `koanf:"max_connections"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "console" or "json"
}

// ProviderConfig configures one model backend. A provider without an API
// key is not registered with the router.
type ProviderConfig struct {
	APIKey     string `koanf:"api_key"`
	Model      string `koanf:"model"`
	Priority   int    `koanf:"priority"`
	DailyLimit int    `koanf:"daily_limit"`
	BaseURL    string `koanf:"base_url"`
}

type ProvidersConfig struct {
	HuggingFace ProviderConfig `koanf:"huggingface"`
	OpenAI      ProviderConfig `koanf:"openai"`
	Gemini      ProviderConfig `koanf:"gemini"`
}

type EngineConfig struct {
	Cooldown        time.Duration `koanf:"cooldown"`
	Currency        string        `koanf:"currency"`
	HistoryLimit    int           `koanf:"history_limit"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`

	// SessionRetention purges sessions idle for longer; zero keeps them forever.
	SessionRetention  time.Duration `koanf:"session_retention"`
	RetentionInterval time.Duration `koanf:"retention_interval"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Version:     "0.1.0",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			URL:            "binarjoin.db",
			MaxConnections: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "binarjoin-ai-engine",
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Providers: ProvidersConfig{
			HuggingFace: ProviderConfig{
				Model:      "llama3.1-8b",
				Priority:   1,
				DailyLimit: 10000,
				BaseURL:    "https://router.huggingface.co/v1",
			},
			OpenAI: ProviderConfig{
				Model:      "gpt-4o",
				Priority:   2,
				DailyLimit: 1000,
			},
			Gemini: ProviderConfig{
				Model:      "gemini-2.0-flash",
				Priority:   3,
				DailyLimit: 1500,
			},
		},
		Engine: EngineConfig{
			Cooldown:          5 * time.Minute,
			Currency:          "SAR",
			HistoryLimit:      20,
			MaxOutputTokens:   4096,
			SessionRetention:  0,
			RetentionInterval: time.Hour,
		},
	}
}

// Path returns the YAML file location, overridable with BINARJOIN_CONFIG.
func Path() string {
	return envStr("BINARJOIN_CONFIG", "binarjoin.yml")
}

// Load reads defaults, then the YAML file at path if it exists, then
// BINARJOIN_* overrides, then the conventional credential variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyCredentials(cfg)
	return cfg, nil
}

// applyCredentials fills API keys and the database URL from the variables
// other tooling already exports. Explicit config values win.
func applyCredentials(cfg *Config) {
	p := &cfg.Providers
	if p.HuggingFace.APIKey == "" {
		p.HuggingFace.APIKey = envStr("HUGGINGFACE_API_KEY", "")
	}
	if m := envStr("HUGGINGFACE_DEFAULT_MODEL", ""); m != "" {
		p.HuggingFace.Model = m
	}
	if p.OpenAI.APIKey == "" {
		p.OpenAI.APIKey = envStr("OPENAI_API_KEY", "")
	}
	if p.Gemini.APIKey == "" {
		p.Gemini.APIKey = envStr("GEMINI_API_KEY", envStr("GOOGLE_API_KEY", ""))
	}
	if url := envStr("DATABASE_URL", ""); url != "" && cfg.Database.URL == DefaultConfig().Database.URL {
		cfg.Database.URL = url
		if strings.HasPrefix(url, "postgres") {
			cfg.Database.Driver = "postgres"
		}
	}
	if port := envInt("PORT", 0); port > 0 {
		cfg.Server.Port = port
	}
	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	if keys := envStr("BINARJOIN_API_KEYS", ""); keys != "" {
		cfg.Server.APIKeys = nil
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.Server.APIKeys = append(cfg.Server.APIKeys, k)
			}
		}
	}
}

var validDrivers = map[string]bool{"sqlite": true, "postgres": true}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database.driver %q: must be sqlite or postgres", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	for name, p := range map[string]ProviderConfig{
		"huggingface": c.Providers.HuggingFace,
		"openai":      c.Providers.OpenAI,
		"gemini":      c.Providers.Gemini,
	} {
		if p.APIKey == "" {
			continue
		}
		if p.Model == "" {
			return fmt.Errorf("providers.%s.model is required", name)
		}
		if p.DailyLimit <= 0 {
			return fmt.Errorf("providers.%s.daily_limit must be positive", name)
		}
	}
	if c.Engine.Cooldown <= 0 {
		return fmt.Errorf("engine.cooldown must be positive")
	}
	if c.Engine.SessionRetention < 0 {
		return fmt.Errorf("engine.session_retention must not be negative")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
