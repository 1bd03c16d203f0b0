package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Credential store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrUnknownProvider = errors.New("unknown model provider")
	ErrUnknownDriver   = errors.New("unknown database driver")
	ErrMissingSecret   = errors.New("JWT_SECRET not set")
)

type Config struct {
	Port           string         `mapstructure:"port"`
	Provider       string         `mapstructure:"provider"`
	Model          string         `mapstructure:"model"`
	AIEndpoint     string         `mapstructure:"ai_endpoint"`
	Agent          bool           `mapstructure:"agent"`
	GoogleAPIKey   string         `mapstructure:"GOOGLE_API_KEY"`
	OpenAIAPIKey   string         `mapstructure:"OPENAI_API_KEY"`
	JWTSecret      string         `mapstructure:"JWT_SECRET"`
	SessionTTL     time.Duration  `mapstructure:"session_ttl"`
	MaxUploadBytes int64          `mapstructure:"max_upload_bytes"`
	CORSOrigins    []string       `mapstructure:"cors_origins"`
	SecureCookie   bool           `mapstructure:"secure_cookie"`
	Database       DatabaseConfig `mapstructure:"database"`
	PDF            PDFConfig      `mapstructure:"pdf"`
	Tools          ToolsConfig    `mapstructure:"tools"`
	Log            LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Name         string `mapstructure:"name"` // mongo database name
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type PDFConfig struct {
	Engine string `mapstructure:"engine"`
}

type ToolsConfig struct {
	Search    SearchConfig    `mapstructure:"search"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Save      SaveConfig      `mapstructure:"save"`
}

type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	EngineID string `mapstructure:"engine_id"`
}

type WikipediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// SaveConfig selects where the save_to_file tool writes. An S3 bucket takes
// precedence over Dir.
type SaveConfig struct {
	Dir        string `mapstructure:"dir"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	// Static S3 credentials. When empty the default AWS chain is used.
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", "gemini-1.5-flash")
	v.SetDefault("ai_endpoint", "https://api.openai.com/v1")
	v.SetDefault("agent", false)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("secure_cookie", false)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "research-assistant.db")
	v.SetDefault("database.name", "research_assistant")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("pdf.engine", "native")
	v.SetDefault("tools.wikipedia.base_url", "https://en.wikipedia.org")
	v.SetDefault("tools.save.dir", "research_output")
	v.SetDefault("tools.save.s3_region", "us-east-1")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads configPath (YAML) when it is not empty, then overlays
// environment variables. A missing file at configPath is an error; an empty
// configPath means defaults plus environment only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Secrets only ever come from the environment or .env.
	v.BindEnv("GOOGLE_API_KEY")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("tools.search.api_key", "GOOGLE_SEARCH_API_KEY")
	v.BindEnv("tools.search.engine_id", "GOOGLE_SEARCH_ENGINE_ID")
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("tools.save.s3_access_key", "S3_ACCESS_KEY")
	v.BindEnv("tools.save.s3_secret_key", "S3_SECRET_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Provider = strings.ToLower(config.Provider)
	config.Database.Driver = strings.ToLower(config.Database.Driver)

	return &config, nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderGemini:
		return c.GoogleAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	return ""
}

// Validate checks what must hold before the process starts serving. The
// configured provider's key must be present.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY not set", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return c.ValidateDatabase()
}

// ValidateServer is Validate plus what the HTTP server needs on top.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// ValidateDatabase is the subset of Validate needed by commands that only
// touch the credential store.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is empty")
	}
	return nil
}
