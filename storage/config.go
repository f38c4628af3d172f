package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// LoadConfig loads the configuration from path.
// If the file doesn't exist, it returns default configuration.
// If the file is corrupted, it returns an error.
// Missing fields (absent from JSON) are silently defaulted.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	if _, err := fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	jsonBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	// Apply defaults only for fields that are absent from the file
	ApplyMissingDefaults(config, detectPresentKeys(jsonBytes))

	return config, nil
}

// SaveConfig saves the configuration to path atomically
func SaveConfig(fs afero.Fs, path string, config *Config) error {
	return AtomicWriteJSON(fs, path, config)
}

// CreateConfigIfMissing creates a default config file if it doesn't exist
func CreateConfigIfMissing(fs afero.Fs, path string) error {
	if _, err := fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		return SaveConfig(fs, path, DefaultConfig())
	}
	return nil
}
