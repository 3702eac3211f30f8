package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/carie/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CARIE_LLM_API_KEY.
const EnvPrefix = "CARIE"

// Config holds all configuration for the assistant
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Plants    PlantsConfig    `mapstructure:"plants"`
	Search    SearchConfig    `mapstructure:"search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func (g GeneralConfig) Normalize() GeneralConfig {
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	if g.LogFormat == "" {
		g.LogFormat = "text"
	}
	return g
}

func (g GeneralConfig) Validate() error {
	if err := logging.Validate(g.LogLevel); err != nil {
		return fmt.Errorf("general.log_level: %w", err)
	}
	if g.LogFormat != "text" && g.LogFormat != "json" {
		return fmt.Errorf("general.log_format must be text or json")
	}
	return nil
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"` // empty disables auth on /api
}

func (s ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(s.Address); err != nil {
		return fmt.Errorf("server.address: %w", err)
	}
	return nil
}

// PlannerConfig controls the reasoning loop.
type PlannerConfig struct {
	MaxHops               int           `mapstructure:"max_hops"`
	InvocationErrorPolicy string        `mapstructure:"invocation_error_policy"` // continue | abort
	DuplicateActionGuard  bool          `mapstructure:"duplicate_action_guard"`
	TaskTimeout           time.Duration `mapstructure:"task_timeout"`
}

func (p PlannerConfig) Normalize() PlannerConfig {
	if p.MaxHops <= 0 {
		p.MaxHops = 8
	}
	p.InvocationErrorPolicy = strings.ToLower(strings.TrimSpace(p.InvocationErrorPolicy))
	if p.InvocationErrorPolicy == "" {
		p.InvocationErrorPolicy = "continue"
	}
	return p
}

func (p PlannerConfig) Validate() error {
	switch p.InvocationErrorPolicy {
	case "continue", "abort":
	default:
		return fmt.Errorf("planner.invocation_error_policy must be continue or abort, got %q", p.InvocationErrorPolicy)
	}
	if p.TaskTimeout < 0 {
		return fmt.Errorf("planner.task_timeout cannot be negative")
	}
	return nil
}

// LLMConfig contains the OpenAI-compatible model endpoint
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	DemosFile   string        `mapstructure:"demos_file"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	return nil
}

// PlantsConfig selects where plants are loaded from.
type PlantsConfig struct {
	Source      string        `mapstructure:"source"` // file | postgres
	File        string        `mapstructure:"file"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

func (p PlantsConfig) Validate() error {
	switch p.Source {
	case "file":
		if strings.TrimSpace(p.File) == "" {
			return fmt.Errorf("plants.file required when source is file")
		}
	case "postgres":
	default:
		return fmt.Errorf("plants.source must be file or postgres, got %q", p.Source)
	}
	return nil
}

// SearchConfig contains web search settings. The web_search capability is only
// offered when at least one key is set.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // preferred: brave | serper
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether any search key is configured.
func (s SearchConfig) Enabled() bool {
	return strings.TrimSpace(s.BraveAPIKey) != "" || strings.TrimSpace(s.SerperAPIKey) != ""
}

func (s SearchConfig) Validate() error {
	if s.Provider != "brave" && s.Provider != "serper" {
		return fmt.Errorf("search.provider must be brave or serper, got %q", s.Provider)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return net.JoinHostPort(r.Host, r.Port) }

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN returns URL when set and otherwise builds one from the parts.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s", p.User, p.Password, net.JoinHostPort(p.Host, p.Port), p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// TraceConfig controls trace capture on the Redis stream.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
	MaxLen  int64  `mapstructure:"max_len"`
}

func (t TraceConfig) Validate() error {
	if t.Enabled && strings.TrimSpace(t.Stream) == "" {
		return fmt.Errorf("trace.stream required when trace is enabled")
	}
	if t.MaxLen < 0 {
		return fmt.Errorf("trace.max_len cannot be negative")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BatchConfig controls the batch runner.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

func (b BatchConfig) Normalize() BatchConfig {
	if b.Concurrency <= 0 {
		b.Concurrency = 4
	}
	return b
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "text")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("planner.max_hops", 8)
	v.SetDefault("planner.invocation_error_policy", "continue")
	v.SetDefault("planner.duplicate_action_guard", false)
	v.SetDefault("planner.task_timeout", 2*time.Minute)
	v.SetDefault("llm.base_url", "http://127.0.0.1:8000/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "mistralai/Mistral-7B-Instruct-v0.2")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.demos_file", "")
	v.SetDefault("plants.source", "file")
	v.SetDefault("plants.file", "./storage/plants.json")
	v.SetDefault("plants.load_timeout", 10*time.Second)
	v.SetDefault("search.provider", "brave")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.serper_api_key", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "carie")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "carie")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timeout", 5*time.Second)
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.stream", "carie:traces")
	v.SetDefault("trace.max_len", 10000)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("batch.concurrency", 4)
}

// Load reads the JSON config at path, or searches ./config, . and the executable's
// directory for config.json when path is empty. A missing file is not an error
// when searching; defaults and CARIE_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.General = cfg.General.Normalize()
	cfg.Planner = cfg.Planner.Normalize()
	cfg.Batch = cfg.Batch.Normalize()

	for _, check := range []func() error{
		cfg.General.Validate,
		cfg.Server.Validate,
		cfg.Planner.Validate,
		cfg.LLM.Validate,
		cfg.Plants.Validate,
		cfg.Search.Validate,
		cfg.Trace.Validate,
	} {
		if err := check(); err != nil {
			return nil, err
		}
	}
	if cfg.Trace.Enabled {
		if err := cfg.Storage.Redis.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Plants.Source == "postgres" {
		if err := cfg.Storage.Postgres.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadConfig loads config and panics when it is unusable.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}
