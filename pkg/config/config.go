package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Cache struct {
		Dir string `yaml:"dir" json:"dir" jsonschema:"default=./cache,description=Cache root holding extracted sources and the paper store"`
	} `yaml:"cache" json:"cache" jsonschema:"description=Local cache configuration"`

	Arxiv ArxivConfig `yaml:"arxiv" json:"arxiv" jsonschema:"description=arXiv endpoints"`

	Database struct {
		MaxOpenConns    int `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=1,description=Maximum number of open connections"`
		MaxIdleConns    int `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=1,description=Maximum number of idle connections"`
		ConnMaxLifetime int `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Paper store configuration"`

	Assistant AssistantConfig `yaml:"assistant" json:"assistant" jsonschema:"description=Assistant used to answer questions about a paper"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Browse API server configuration"`
}

// ArxivConfig holds the metadata and source endpoints
type ArxivConfig struct {
	APIURL    string        `yaml:"api_url" json:"api_url" jsonschema:"default=http://export.arxiv.org/api/query,description=Atom query endpoint"`
	SourceURL string        `yaml:"source_url" json:"source_url" jsonschema:"default=https://arxiv.org/e-print,description=E-print source endpoint"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=arxivtex/1.0,description=User agent for HTTP requests"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=0s,description=HTTP request timeout, 0 waits forever"`
}

// AssistantConfig holds the assistant backend settings
type AssistantConfig struct {
	Backend     string  `yaml:"backend" json:"backend" jsonschema:"default=cli,enum=cli,enum=openai,description=Assistant backend"`
	Command     string  `yaml:"command" json:"command" jsonschema:"default=claude,description=External command for the cli backend"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey      string  `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string  `yaml:"model" json:"model" jsonschema:"default=gpt-4o-mini,description=Model name for the openai backend"`
	Temperature float64 `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,minimum=0,maximum=2,description=Temperature for response generation"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=2000,description=Maximum tokens in response"`
}

// backend names
const (
	BackendCLI    = "cli"
	BackendOpenAI = "openai"
)

// Load reads configuration from a YAML file. empty path means defaults only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "./cache"
	}

	if cfg.Arxiv.APIURL == "" {
		cfg.Arxiv.APIURL = "http://export.arxiv.org/api/query"
	}
	if cfg.Arxiv.SourceURL == "" {
		cfg.Arxiv.SourceURL = "https://arxiv.org/e-print"
	}
	if cfg.Arxiv.UserAgent == "" {
		cfg.Arxiv.UserAgent = "arxivtex/1.0"
	}

	// sqlite takes one writer at a time
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 1
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 1
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	if cfg.Assistant.Backend == "" {
		cfg.Assistant.Backend = BackendCLI
	}
	if cfg.Assistant.Command == "" {
		cfg.Assistant.Command = "claude"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gpt-4o-mini"
	}
	if cfg.Assistant.Temperature == 0 {
		cfg.Assistant.Temperature = 0.3
	}
	if cfg.Assistant.MaxTokens == 0 {
		cfg.Assistant.MaxTokens = 2000
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Arxiv.Timeout < 0 {
		return fmt.Errorf("arxiv.timeout must be non-negative")
	}

	switch cfg.Assistant.Backend {
	case BackendCLI:
	case BackendOpenAI:
		if cfg.Assistant.APIKey == "" && cfg.Assistant.Endpoint == "" {
			return fmt.Errorf("assistant.api_key or assistant.endpoint is required for openai backend")
		}
	default:
		return fmt.Errorf("unknown assistant.backend %q", cfg.Assistant.Backend)
	}
	if cfg.Assistant.Temperature < 0 || cfg.Assistant.Temperature > 2 {
		return fmt.Errorf("assistant.temperature must be between 0 and 2")
	}
	if cfg.Assistant.MaxTokens < 0 {
		return fmt.Errorf("assistant.max_tokens must be non-negative")
	}

	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must be non-negative")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetAssistantConfig returns assistant configuration
func (c *Config) GetAssistantConfig() AssistantConfig {
	return c.Assistant
}
