package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/viper"
)

// Config holds all configuration for the news service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
}

// Production reports whether the service runs with production logging.
func (g GeneralConfig) Production() bool {
	switch strings.ToLower(g.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	APIKey      string   `mapstructure:"api_key"`
	APIKeyHash  string   `mapstructure:"api_key_hash"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects the durable store and the fast tier.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CacheTTL time.Duration  `mapstructure:"cache_ttl"`
}

// DSN returns the connection string for the configured driver.
func (s StorageConfig) DSN() string {
	if strings.EqualFold(s.Driver, "postgres") {
		return s.Postgres.DSN()
	}
	return s.SQLite.Path
}

// SQLiteConfig points at the database file; ":memory:" keeps it in process.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres:// URL unless an explicit url is configured.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + port,
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

// RedisConfig contains Redis connection settings. An empty host disables the fast tier.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("storage.redis.timeout must be positive")
	}
	return nil
}

// SourcesConfig configures the provider adapters and the live fallback.
type SourcesConfig struct {
	Timeout      time.Duration  `mapstructure:"timeout"`
	Retries      int            `mapstructure:"retries"`
	Backoff      time.Duration  `mapstructure:"backoff"`
	UserAgent    string         `mapstructure:"user_agent"`
	BaseQuery    string         `mapstructure:"base_query"`
	LiveProvider string         `mapstructure:"live_provider"`
	LiveSuffix   string         `mapstructure:"live_suffix"`
	GoogleRSS    EndpointConfig `mapstructure:"google_rss"`
	GDELT        GDELTConfig    `mapstructure:"gdelt"`
	NewsAPI      APIKeyEndpoint `mapstructure:"newsapi"`
	DuckDuckGo   EndpointConfig `mapstructure:"duckduckgo"`
	Brave        APIKeyEndpoint `mapstructure:"brave"`
	Serper       APIKeyEndpoint `mapstructure:"serper"`
}

// EndpointConfig overrides the base URL of a keyless provider.
type EndpointConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// GDELTConfig also carries the fixed query used by scheduled refreshes.
type GDELTConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Query    string `mapstructure:"query"`
}

// APIKeyEndpoint configures a keyed provider. The provider is skipped when APIKey is empty.
type APIKeyEndpoint struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

func (s SourcesConfig) Validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("sources.timeout must be positive")
	}
	if s.Retries < 0 {
		return fmt.Errorf("sources.retries must not be negative")
	}
	if strings.TrimSpace(s.LiveProvider) == "" {
		return fmt.Errorf("sources.live_provider required")
	}
	return nil
}

// LLMConfig contains the reasoning provider settings.
type LLMConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Groq    GroqConfig    `mapstructure:"groq"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
}

// GroqConfig configures the primary, tool-calling provider.
type GroqConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// GeminiConfig configures the secondary provider.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SchedulerConfig configures background refreshes.
type SchedulerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Crons   []string      `mapstructure:"crons"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

func (s SchedulerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Crons) == 0 {
		return fmt.Errorf("scheduler.crons required when scheduler is enabled")
	}
	for _, expr := range s.Crons {
		if _, err := cronexpr.Parse(expr); err != nil {
			return fmt.Errorf("scheduler.crons %q: %w", expr, err)
		}
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
	case "postgres":
		errs = append(errs, c.Storage.Postgres.Validate())
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver))
	}
	errs = append(errs,
		c.Storage.Redis.Validate(),
		c.Sources.Validate(),
		c.Scheduler.Validate(),
	)
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.service_name", "newshub")
	v.SetDefault("general.env", "development")
	v.SetDefault("general.log_level", "info")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.api_key_hash", "")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "data/newshub.db")
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "newshub")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 2*time.Second)
	v.SetDefault("storage.cache_ttl", 600*time.Second)

	v.SetDefault("sources.timeout", 10*time.Second)
	v.SetDefault("sources.retries", 1)
	v.SetDefault("sources.backoff", 300*time.Millisecond)
	v.SetDefault("sources.user_agent", "newshub/1.0 (+https://github.com/mohammad-safakhou/newshub)")
	v.SetDefault("sources.base_query", "segurança publica")
	v.SetDefault("sources.live_provider", "duckduckgo")
	v.SetDefault("sources.live_suffix", " Distrito Federal")
	v.SetDefault("sources.google_rss.endpoint", "https://news.google.com/rss/search")
	v.SetDefault("sources.gdelt.endpoint", "https://api.gdeltproject.org/api/v2/doc/doc")
	v.SetDefault("sources.gdelt.query", "segurança OR crime")
	v.SetDefault("sources.newsapi.api_key", "")
	v.SetDefault("sources.newsapi.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("sources.duckduckgo.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("sources.brave.api_key", "")
	v.SetDefault("sources.brave.endpoint", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("sources.serper.api_key", "")
	v.SetDefault("sources.serper.endpoint", "https://google.serper.dev/search")

	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.groq.api_key", "")
	v.SetDefault("llm.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.groq.max_tokens", 4096)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.crons", []string{"0 11 * * *", "0 23 * * *"})
	v.SetDefault("scheduler.lock_ttl", 10*time.Minute)
}

// well-known provider variables accepted next to the NEWSHUB_ prefixed ones
var legacyEnv = map[string]string{
	"llm.groq.api_key":        "GROQ_API_KEY",
	"llm.gemini.api_key":      "GOOGLE_API_KEY",
	"sources.newsapi.api_key": "NEWS_API_KEY",
	"server.api_key":          "API_KEY",
	"storage.postgres.url":    "DATABASE_URL",
}

// LoadConfig reads the JSON file named "config" (or the file at path) and
// applies NEWSHUB_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
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

	v.SetEnvPrefix("NEWSHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "NEWSHUB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
