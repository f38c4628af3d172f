package storage

import (
	"encoding/json"
	"fmt"

	"github.com/pixl-project/retroplayer/libretro"
)

// validLogLevels lists the accepted log.level values
var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// defaultedKeys lists, per top-level section, the keys that get a default
// when absent. The empty section holds top-level scalars.
var defaultedKeys = map[string][]string{
	"":              {"version"},
	"log":           {"level"},
	"rewind":        {"enabled", "seconds", "maxBufferMB"},
	"directories":   {"routing"},
	"notifications": {"defaultDurationMs"},
	"content":       {"cacheSize", "maxSizeMB"},
}

// detectPresentKeys unmarshals JSON bytes to determine which config keys
// are explicitly present in the file. Returns a flat set of dotted-path keys
// (e.g., "rewind.seconds", "log.level").
func detectPresentKeys(jsonBytes []byte) map[string]bool {
	present := make(map[string]bool)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &raw); err != nil {
		return present
	}

	for section, keys := range defaultedKeys {
		if section == "" {
			for _, k := range keys {
				if _, ok := raw[k]; ok {
					present[k] = true
				}
			}
			continue
		}

		sectionRaw, ok := raw[section]
		if !ok {
			continue
		}
		var nested map[string]json.RawMessage
		if json.Unmarshal(sectionRaw, &nested) != nil {
			continue
		}
		for _, k := range keys {
			if _, ok := nested[k]; ok {
				present[section+"."+k] = true
			}
		}
	}

	return present
}

// ApplyMissingDefaults sets default values for config fields that are absent
// from the JSON file. Only truly missing fields get defaults, preserving
// intentional zero values (e.g., rewind.enabled=false).
func ApplyMissingDefaults(config *Config, presentKeys map[string]bool) {
	defaults := DefaultConfig()

	if !presentKeys["version"] {
		config.Version = defaults.Version
	}
	if !presentKeys["log.level"] {
		config.Log.Level = defaults.Log.Level
	}
	if !presentKeys["rewind.enabled"] {
		config.Rewind.Enabled = defaults.Rewind.Enabled
	}
	if !presentKeys["rewind.seconds"] {
		config.Rewind.Seconds = defaults.Rewind.Seconds
	}
	if !presentKeys["rewind.maxBufferMB"] {
		config.Rewind.MaxBufferMB = defaults.Rewind.MaxBufferMB
	}
	if !presentKeys["directories.routing"] {
		config.Directories.Routing = defaults.Directories.Routing
	}
	if !presentKeys["notifications.defaultDurationMs"] {
		config.Notifications.DefaultDurationMs = defaults.Notifications.DefaultDurationMs
	}
	if !presentKeys["content.cacheSize"] {
		config.Content.CacheSize = defaults.Content.CacheSize
	}
	if !presentKeys["content.maxSizeMB"] {
		config.Content.MaxSizeMB = defaults.Content.MaxSizeMB
	}
}

// ValidateConfig checks all config fields against valid ranges and returns
// human-readable error descriptions. An empty slice means the config is valid.
func ValidateConfig(config *Config) []string {
	var errors []string

	// version
	if config.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", config.Version))
	}

	// log.level
	if !validLogLevel(config.Log.Level) {
		errors = append(errors, fmt.Sprintf("log.level: %q (valid: %v)", config.Log.Level, validLogLevels))
	}

	// rewind.seconds
	if config.Rewind.Seconds < 1 || config.Rewind.Seconds > 600 {
		errors = append(errors, fmt.Sprintf("rewind.seconds: %d (valid: 1-600)", config.Rewind.Seconds))
	}

	// rewind.maxBufferMB
	if config.Rewind.MaxBufferMB < 0 || config.Rewind.MaxBufferMB > 4096 {
		errors = append(errors, fmt.Sprintf("rewind.maxBufferMB: %d (valid: 0-4096)", config.Rewind.MaxBufferMB))
	}

	// directories.routing
	if _, err := libretro.ParseRouting(config.Directories.Routing); err != nil {
		errors = append(errors, fmt.Sprintf("directories.routing: %q (valid: \"libretro-path\", \"distinct\")", config.Directories.Routing))
	}

	// notifications.defaultDurationMs
	if config.Notifications.DefaultDurationMs < 500 || config.Notifications.DefaultDurationMs > 60000 {
		errors = append(errors, fmt.Sprintf("notifications.defaultDurationMs: %d (valid: 500-60000)", config.Notifications.DefaultDurationMs))
	}

	// content.cacheSize
	if config.Content.CacheSize < 1 || config.Content.CacheSize > 1024 {
		errors = append(errors, fmt.Sprintf("content.cacheSize: %d (valid: 1-1024)", config.Content.CacheSize))
	}

	// content.maxSizeMB
	if config.Content.MaxSizeMB < 1 || config.Content.MaxSizeMB > 4096 {
		errors = append(errors, fmt.Sprintf("content.maxSizeMB: %d (valid: 1-4096)", config.Content.MaxSizeMB))
	}

	// input.firstAction
	if config.Input.FirstAction < 0 {
		errors = append(errors, fmt.Sprintf("input.firstAction: %d (valid: >= 0)", config.Input.FirstAction))
	}

	// cores
	seen := make(map[string]bool)
	for i, core := range config.Cores {
		if problem := coreProblem(core, seen); problem != "" {
			errors = append(errors, fmt.Sprintf("cores[%d]: %s", i, problem))
		}
	}
	for i, core := range config.Known {
		if core.ID == "" {
			errors = append(errors, fmt.Sprintf("known[%d]: empty id", i))
		}
	}

	return errors
}

// CorrectConfig resets any invalid fields to their defaults from DefaultConfig()
// and drops invalid core entries. Valid fields are preserved.
func CorrectConfig(config *Config) *Config {
	defaults := DefaultConfig()

	if config.Version != 1 {
		config.Version = defaults.Version
	}
	if !validLogLevel(config.Log.Level) {
		config.Log.Level = defaults.Log.Level
	}
	if config.Rewind.Seconds < 1 || config.Rewind.Seconds > 600 {
		config.Rewind.Seconds = defaults.Rewind.Seconds
	}
	if config.Rewind.MaxBufferMB < 0 || config.Rewind.MaxBufferMB > 4096 {
		config.Rewind.MaxBufferMB = defaults.Rewind.MaxBufferMB
	}
	if _, err := libretro.ParseRouting(config.Directories.Routing); err != nil {
		config.Directories.Routing = defaults.Directories.Routing
	}
	if config.Notifications.DefaultDurationMs < 500 || config.Notifications.DefaultDurationMs > 60000 {
		config.Notifications.DefaultDurationMs = defaults.Notifications.DefaultDurationMs
	}
	if config.Content.CacheSize < 1 || config.Content.CacheSize > 1024 {
		config.Content.CacheSize = defaults.Content.CacheSize
	}
	if config.Content.MaxSizeMB < 1 || config.Content.MaxSizeMB > 4096 {
		config.Content.MaxSizeMB = defaults.Content.MaxSizeMB
	}
	if config.Input.FirstAction < 0 {
		config.Input.FirstAction = defaults.Input.FirstAction
	}

	seen := make(map[string]bool)
	cores := config.Cores[:0]
	for _, core := range config.Cores {
		if coreProblem(core, seen) == "" {
			cores = append(cores, core)
		}
	}
	config.Cores = cores

	known := config.Known[:0]
	for _, core := range config.Known {
		if core.ID != "" {
			known = append(known, core)
		}
	}
	config.Known = known

	return config
}

// coreProblem describes what is wrong with an installed core entry, or
// returns "". seen collects the ids of valid entries.
func coreProblem(core CoreEntry, seen map[string]bool) string {
	switch {
	case core.ID == "":
		return "empty id"
	case seen[core.ID]:
		return fmt.Sprintf("duplicate id %q", core.ID)
	case core.Path == "":
		return fmt.Sprintf("%s: empty path", core.ID)
	}
	seen[core.ID] = true
	return ""
}

func validLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if level == l {
			return true
		}
	}
	return false
}
