// Package config handles configuration loading and validation for aitracker.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete aitracker configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Search     SearchConfig     `mapstructure:"search"`
	Export     ExportConfig     `mapstructure:"export"`
	Vectorizer VectorizerConfig `mapstructure:"vectorizer"`
}

// ServerConfig describes the vector database connection.
type ServerConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Certainty float64 `mapstructure:"certainty"`
	Limit     int     `mapstructure:"limit"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Path     string `mapstructure:"path"`
	PageSize int    `mapstructure:"page_size"`
}

// VectorizerConfig configures optional client-side embeddings.
type VectorizerConfig struct {
	Provider string            `mapstructure:"provider"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI   OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     DefaultServerURL,
			Timeout: DefaultTimeout,
		},
		Search: SearchConfig{
			Certainty: DefaultCertainty,
		},
		Export: ExportConfig{
			Path:     DefaultExportPath,
			PageSize: DefaultPageSize,
		},
		Vectorizer: VectorizerConfig{
			Provider: DefaultVectorizer,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
	}
}

// Load reads configuration from a .env file, the config file and environment
// variables, in increasing order of precedence.
func Load(configFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		// .aitrackerrc.yaml in the current directory or a parent wins
		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	viper.SetEnvPrefix("AITRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadCredentialsFromEnv()

	return cfg.Validate()
}

// Validate checks values that would otherwise only fail at request time.
func (c *Config) Validate() error {
	if c.Search.Certainty < 0 || c.Search.Certainty > 1 {
		return fmt.Errorf("search.certainty must be within [0,1], got %v", c.Search.Certainty)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must not be negative, got %d", c.Search.Limit)
	}
	if c.Export.PageSize < 0 {
		return fmt.Errorf("export.page_size must not be negative, got %d", c.Export.PageSize)
	}
	switch c.Vectorizer.Provider {
	case "", VectorizerNone, "ollama", "openai":
	default:
		return fmt.Errorf("unsupported vectorizer provider: %s", c.Vectorizer.Provider)
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.url", DefaultServerURL)
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("server.timeout", DefaultTimeout)

	// Search
	viper.SetDefault("search.certainty", DefaultCertainty)
	viper.SetDefault("search.limit", 0)

	// Export
	viper.SetDefault("export.path", DefaultExportPath)
	viper.SetDefault("export.page_size", DefaultPageSize)

	// Vectorizer
	viper.SetDefault("vectorizer.provider", DefaultVectorizer)
	viper.SetDefault("vectorizer.ollama.url", DefaultOllamaURL)
	viper.SetDefault("vectorizer.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("vectorizer.openai.model", DefaultOpenAIEmbedModel)
	viper.SetDefault("vectorizer.openai.base_url", "")
	viper.SetDefault("vectorizer.openai.api_key", "")
	viper.SetDefault("vectorizer.openai.dimensions", 0)
}

// findRCFile searches for .aitrackerrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, RCFileName)
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// loadCredentialsFromEnv fills credentials from the conventional variables
// when neither the config file nor AITRACKER_* set them.
func loadCredentialsFromEnv() {
	if cfg.Server.Username == "" {
		cfg.Server.Username = os.Getenv("WEAVIATE_USERNAME")
	}
	if cfg.Server.Password == "" {
		cfg.Server.Password = os.Getenv("WEAVIATE_PASSWORD")
	}
	if cfg.Vectorizer.OpenAI.APIKey == "" {
		cfg.Vectorizer.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
