package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Server defaults
	DefaultServerURL = "https://localhost:8080"
	DefaultTimeout   = 30 * time.Second

	// Search defaults
	DefaultCertainty = 0.6

	// Export defaults
	DefaultExportPath = "output.json"
	DefaultPageSize   = 100

	// Vectorizer defaults
	VectorizerNone          = "none"
	DefaultVectorizer       = VectorizerNone
	DefaultOllamaURL        = "http://localhost:11434"
	DefaultOllamaEmbedModel = "nomic-embed-text"
	DefaultOpenAIEmbedModel = "text-embedding-3-small"

	// RCFileName is looked up in the working directory and its parents.
	RCFileName = ".aitrackerrc.yaml"
)

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/aitracker"
	}
	return filepath.Join(home, ".config", "aitracker")
}
