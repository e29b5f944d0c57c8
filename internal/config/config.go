package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Database   DatabaseConfig
	Frontend   FrontendConfig
	Tools      ToolsConfig
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
	Log        LogConfig
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LLMConfig holds the LLM configuration.
type LLMConfig struct {
	Provider     string `mapstructure:"provider"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
	// Retries is the budget for re-invoking the LLM after a transient failure.
	Retries int `mapstructure:"retries"`
	// MaxTurns caps LLM -> tool -> LLM round trips within one exchange.
	MaxTurns int `mapstructure:"max_turns"`
}

// DatabaseConfig holds the sqlite configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// FrontendConfig points at the directory with the static chat UI.
type FrontendConfig struct {
	Dir string `mapstructure:"dir"`
}

// ToolsConfig holds API keys for the built-in tools. Empty keys are fine:
// the tools answer with canned data instead of calling out.
type ToolsConfig struct {
	GeoAPIKey     string `mapstructure:"geo_api_key"`
	WeatherAPIKey string `mapstructure:"weather_api_key"`
}

// ClientType is the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// MCPServerConfig describes one external MCP tool server.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Headers map[string]string `mapstructure:"headers"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from config.yaml (or the file named by
// CONFIG_PATH), after loading a .env file when one exists. Environment
// variables override file values, e.g. LLM_API_KEY.
func Load() (*Config, error) {
	// Matches the original deployment style: secrets live in .env.
	_ = godotenv.Load()

	v := viper.New()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.max_turns", 5)
	v.SetDefault("database.path", "chat.db")
	v.SetDefault("frontend.dir", "frontend")
	v.SetDefault("tools.geo_api_key", "")
	v.SetDefault("tools.weather_api_key", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = v.BindEnv("database.path", "CHAT_DB_PATH")
	_ = v.BindEnv("tools.geo_api_key", "GEO_API_KEY")
	_ = v.BindEnv("tools.weather_api_key", "WEATHER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable; defaults plus env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Database.Path != "" {
		config.Database.Path = filepath.Clean(config.Database.Path)
	}
	return &config, nil
}
