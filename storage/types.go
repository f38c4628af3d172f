package storage

import (
	"github.com/pixl-project/retroplayer/coreif"
)

// Config represents the frontend configuration stored in config.json
type Config struct {
	Version       int                `json:"version" jsonschema:"enum=1,description=Config file format version"`
	Log           LogConfig          `json:"log"`
	Rewind        RewindConfig       `json:"rewind"`
	Directories   DirectoryConfig    `json:"directories"`
	Notifications NotificationConfig `json:"notifications"`
	Content       ContentConfig      `json:"content"`
	Input         InputConfig        `json:"input"`
	Cores         []CoreEntry        `json:"cores,omitempty" jsonschema:"description=Installed cores"`
	Known         []CoreEntry        `json:"known,omitempty" jsonschema:"description=Cores that are known but not installed. Only their extensions are used"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,description=Minimum log level"`
}

// RewindConfig contains rewind feature settings
type RewindConfig struct {
	Enabled     bool `json:"enabled"`
	Seconds     int  `json:"seconds" jsonschema:"minimum=1,maximum=600,description=Seconds of history to keep"`
	MaxBufferMB int  `json:"maxBufferMB" jsonschema:"minimum=0,maximum=4096,description=Cap on history memory in MB. 0 means no cap"`
}

// DirectoryConfig contains the directories reported to cores
type DirectoryConfig struct {
	System   string `json:"system,omitempty"`
	Content  string `json:"content,omitempty"`
	Save     string `json:"save,omitempty"`
	Routing  string `json:"routing" jsonschema:"enum=libretro-path,enum=distinct,description=Which directories answer content and save queries"`
	Username string `json:"username,omitempty"`
}

// NotificationConfig contains on-screen message settings
type NotificationConfig struct {
	DefaultDurationMs int `json:"defaultDurationMs" jsonschema:"minimum=500,maximum=60000"`
}

// ContentConfig contains content resolution settings
type ContentConfig struct {
	Roots     map[string]string `json:"roots,omitempty" jsonschema:"description=special:// root name to directory"`
	CacheDir  string            `json:"cacheDir,omitempty"`
	CacheSize int               `json:"cacheSize" jsonschema:"minimum=1,maximum=1024,description=Extracted archive members kept on disk"`
	MaxSizeMB int               `json:"maxSizeMB" jsonschema:"minimum=1,maximum=4096,description=Largest content file read into memory"`
	Databases string            `json:"databases,omitempty" jsonschema:"description=Game database (.rdb) file or directory used to identify content"`
}

// InputConfig contains input settings
type InputConfig struct {
	FirstAction int `json:"firstAction" jsonschema:"minimum=0,description=Host action id mapped onto the first control"`
}

// CoreEntry describes an installed or known core
type CoreEntry struct {
	ID             string `json:"id" jsonschema:"minLength=1"`
	Name           string `json:"name,omitempty"`
	Version        string `json:"version,omitempty"`
	Author         string `json:"author,omitempty"`
	Path           string `json:"path,omitempty" jsonschema:"description=Path to the core shared library"`
	Extensions     string `json:"extensions" jsonschema:"description=Supported extensions separated by |"`
	SupportsVFS    bool   `json:"supportsVFS,omitempty"`
	SupportsNoGame bool   `json:"supportsNoGame,omitempty"`
	Disabled       bool   `json:"disabled,omitempty"`
}

// Descriptor converts the entry into a core descriptor.
func (e CoreEntry) Descriptor() coreif.Descriptor {
	return coreif.Descriptor{
		ID:             e.ID,
		Name:           e.Name,
		Version:        e.Version,
		Author:         e.Author,
		Path:           e.Path,
		Extensions:     coreif.ParseExtensions(e.Extensions),
		SupportsVFS:    e.SupportsVFS,
		SupportsNoGame: e.SupportsNoGame,
		Disabled:       e.Disabled,
	}
}

// EntryFor converts a descriptor into a config entry.
func EntryFor(d coreif.Descriptor) CoreEntry {
	return CoreEntry{
		ID:             d.ID,
		Name:           d.Name,
		Version:        d.Version,
		Author:         d.Author,
		Path:           d.Path,
		Extensions:     d.Extensions.String(),
		SupportsVFS:    d.SupportsVFS,
		SupportsNoGame: d.SupportsNoGame,
		Disabled:       d.Disabled,
	}
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Log: LogConfig{
			Level: "info",
		},
		Rewind: RewindConfig{
			Enabled:     true,
			Seconds:     60,
			MaxBufferMB: 64,
		},
		Directories: DirectoryConfig{
			Routing: "libretro-path",
		},
		Notifications: NotificationConfig{
			DefaultDurationMs: 3000,
		},
		Content: ContentConfig{
			CacheSize: 32,
			MaxSizeMB: 512,
		},
		Input: InputConfig{},
	}
}
