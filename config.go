package batchrename

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	IncludeHidden     bool     `yaml:"include_hidden"`
	ExcludePatterns   []string `yaml:"exclude_patterns"`
	TempPrefix        string   `yaml:"temp_prefix"`
	JournalPath       string   `yaml:"journal_path"`
	LogLevel          string   `yaml:"log_level"`
	MaxReportedErrors int      `yaml:"max_reported_errors"`
}

func DefaultConfig() *Config {
	return &Config{
		ExcludePatterns:   []string{"Thumbs.db", "desktop.ini"},
		TempPrefix:        DefaultTempPrefix,
		JournalPath:       DefaultJournalPath(),
		LogLevel:          "warn",
		MaxReportedErrors: 20,
	}
}

// DefaultJournalPath returns the default location of the undo journal.
// Uses XDG_STATE_HOME if set, otherwise falls back to ~/.local/state/batch-rename.
func DefaultJournalPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "batch-rename", "journal.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "batch-rename", "journal.db")
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}
