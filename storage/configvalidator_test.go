package storage

import (
	"strings"
	"testing"
)

func TestDetectPresentKeys(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected map[string]bool
	}{
		{
			name: "all keys present",
			json: `{
				"version": 1,
				"log": {"level": "debug"},
				"rewind": {"enabled": true, "seconds": 30, "maxBufferMB": 32},
				"directories": {"routing": "distinct"},
				"notifications": {"defaultDurationMs": 2000},
				"content": {"cacheSize": 8, "maxSizeMB": 64}
			}`,
			expected: map[string]bool{
				"version": true, "log.level": true,
				"rewind.enabled": true, "rewind.seconds": true, "rewind.maxBufferMB": true,
				"directories.routing": true, "notifications.defaultDurationMs": true,
				"content.cacheSize": true, "content.maxSizeMB": true,
			},
		},
		{
			name:     "empty object",
			json:     `{}`,
			expected: map[string]bool{},
		},
		{
			name: "zero values are still present",
			json: `{
				"rewind": {"enabled": false, "maxBufferMB": 0}
			}`,
			expected: map[string]bool{
				"rewind.enabled": true, "rewind.maxBufferMB": true,
			},
		},
		{
			name:     "invalid JSON returns empty",
			json:     `{not valid json`,
			expected: map[string]bool{},
		},
		{
			name:     "nested object present but empty",
			json:     `{"rewind": {}, "log": {}}`,
			expected: map[string]bool{},
		},
		{
			name:     "section of the wrong type is ignored",
			json:     `{"rewind": 5, "version": 1}`,
			expected: map[string]bool{"version": true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := detectPresentKeys([]byte(tc.json))
			for k := range tc.expected {
				if !got[k] {
					t.Errorf("expected key %q to be present", k)
				}
			}
			for k := range got {
				if !tc.expected[k] {
					t.Errorf("unexpected key %q detected", k)
				}
			}
		})
	}
}

func TestApplyMissingDefaults(t *testing.T) {
	t.Run("all missing gets all defaults", func(t *testing.T) {
		config := &Config{}
		ApplyMissingDefaults(config, map[string]bool{})

		defaults := DefaultConfig()
		if config.Version != defaults.Version {
			t.Errorf("version: got %d, want %d", config.Version, defaults.Version)
		}
		if config.Log.Level != defaults.Log.Level {
			t.Errorf("log.level: got %q, want %q", config.Log.Level, defaults.Log.Level)
		}
		if config.Rewind.Enabled != defaults.Rewind.Enabled {
			t.Errorf("rewind.enabled: got %v, want %v", config.Rewind.Enabled, defaults.Rewind.Enabled)
		}
		if config.Rewind.Seconds != defaults.Rewind.Seconds {
			t.Errorf("rewind.seconds: got %d, want %d", config.Rewind.Seconds, defaults.Rewind.Seconds)
		}
		if config.Rewind.MaxBufferMB != defaults.Rewind.MaxBufferMB {
			t.Errorf("rewind.maxBufferMB: got %d, want %d", config.Rewind.MaxBufferMB, defaults.Rewind.MaxBufferMB)
		}
		if config.Directories.Routing != defaults.Directories.Routing {
			t.Errorf("directories.routing: got %q, want %q", config.Directories.Routing, defaults.Directories.Routing)
		}
		if config.Notifications.DefaultDurationMs != defaults.Notifications.DefaultDurationMs {
			t.Errorf("notifications.defaultDurationMs: got %d, want %d", config.Notifications.DefaultDurationMs, defaults.Notifications.DefaultDurationMs)
		}
		if config.Content.CacheSize != defaults.Content.CacheSize {
			t.Errorf("content.cacheSize: got %d, want %d", config.Content.CacheSize, defaults.Content.CacheSize)
		}
		if config.Content.MaxSizeMB != defaults.Content.MaxSizeMB {
			t.Errorf("content.maxSizeMB: got %d, want %d", config.Content.MaxSizeMB, defaults.Content.MaxSizeMB)
		}
	})

	t.Run("present keys preserved even when zero", func(t *testing.T) {
		config := &Config{Rewind: RewindConfig{Enabled: false, MaxBufferMB: 0}}
		ApplyMissingDefaults(config, map[string]bool{
			"rewind.enabled":     true,
			"rewind.maxBufferMB": true,
		})

		if config.Rewind.Enabled {
			t.Error("rewind.enabled should remain false")
		}
		if config.Rewind.MaxBufferMB != 0 {
			t.Errorf("rewind.maxBufferMB should remain 0, got %d", config.Rewind.MaxBufferMB)
		}
		if config.Rewind.Seconds != 60 {
			t.Errorf("rewind.seconds should default to 60, got %d", config.Rewind.Seconds)
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{"defaults are valid", func(c *Config) {}, nil},
		{"version", func(c *Config) { c.Version = 2 }, []string{"version: 2"}},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, []string{`log.level: "loud"`}},
		{"rewind seconds low", func(c *Config) { c.Rewind.Seconds = 0 }, []string{"rewind.seconds: 0"}},
		{"rewind seconds high", func(c *Config) { c.Rewind.Seconds = 601 }, []string{"rewind.seconds: 601"}},
		{"rewind buffer", func(c *Config) { c.Rewind.MaxBufferMB = -1 }, []string{"rewind.maxBufferMB: -1"}},
		{"routing", func(c *Config) { c.Directories.Routing = "sideways" }, []string{`directories.routing: "sideways"`}},
		{"notification", func(c *Config) { c.Notifications.DefaultDurationMs = 100 }, []string{"notifications.defaultDurationMs: 100"}},
		{"cache size", func(c *Config) { c.Content.CacheSize = 0 }, []string{"content.cacheSize: 0"}},
		{"max size", func(c *Config) { c.Content.MaxSizeMB = 5000 }, []string{"content.maxSizeMB: 5000"}},
		{"first action", func(c *Config) { c.Input.FirstAction = -3 }, []string{"input.firstAction: -3"}},
		{
			"cores",
			func(c *Config) {
				c.Cores = []CoreEntry{
					{ID: "a", Path: "/a.so"},
					{ID: "", Path: "/b.so"},
					{ID: "a", Path: "/c.so"},
					{ID: "d"},
				}
			},
			[]string{"cores[1]: empty id", `cores[2]: duplicate id "a"`, "cores[3]: d: empty path"},
		},
		{"known", func(c *Config) { c.Known = []CoreEntry{{ID: ""}} }, []string{"known[0]: empty id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			got := ValidateConfig(config)
			if len(got) != len(tt.want) {
				t.Fatalf("ValidateConfig() = %v, want %d problems", got, len(tt.want))
			}
			for i, prefix := range tt.want {
				if !strings.HasPrefix(got[i], prefix) {
					t.Errorf("problem[%d] = %q, want prefix %q", i, got[i], prefix)
				}
			}
		})
	}
}

func TestCorrectConfig(t *testing.T) {
	config := &Config{
		Version:       3,
		Log:           LogConfig{Level: "verbose"},
		Rewind:        RewindConfig{Enabled: false, Seconds: 1000, MaxBufferMB: 8},
		Directories:   DirectoryConfig{Routing: "distinct", System: "/sys"},
		Notifications: NotificationConfig{DefaultDurationMs: 10},
		Content:       ContentConfig{CacheSize: 4, MaxSizeMB: 0},
		Input:         InputConfig{FirstAction: -1},
		Cores: []CoreEntry{
			{ID: "a", Path: "/a.so"},
			{ID: "a", Path: "/dup.so"},
			{ID: "b"},
			{ID: "c", Path: "/c.so"},
		},
		Known: []CoreEntry{{ID: ""}, {ID: "k", Extensions: "gba"}},
	}

	CorrectConfig(config)
	defaults := DefaultConfig()

	if config.Version != defaults.Version {
		t.Errorf("version = %d, want %d", config.Version, defaults.Version)
	}
	if config.Log.Level != defaults.Log.Level {
		t.Errorf("log.level = %q, want %q", config.Log.Level, defaults.Log.Level)
	}
	if config.Rewind.Seconds != defaults.Rewind.Seconds {
		t.Errorf("rewind.seconds = %d, want %d", config.Rewind.Seconds, defaults.Rewind.Seconds)
	}
	if config.Notifications.DefaultDurationMs != defaults.Notifications.DefaultDurationMs {
		t.Errorf("notifications.defaultDurationMs = %d, want %d", config.Notifications.DefaultDurationMs, defaults.Notifications.DefaultDurationMs)
	}
	if config.Content.MaxSizeMB != defaults.Content.MaxSizeMB {
		t.Errorf("content.maxSizeMB = %d, want %d", config.Content.MaxSizeMB, defaults.Content.MaxSizeMB)
	}
	if config.Input.FirstAction != 0 {
		t.Errorf("input.firstAction = %d, want 0", config.Input.FirstAction)
	}

	// Valid values survive.
	if config.Rewind.Enabled {
		t.Error("rewind.enabled should stay false")
	}
	if config.Rewind.MaxBufferMB != 8 {
		t.Errorf("rewind.maxBufferMB = %d, want 8", config.Rewind.MaxBufferMB)
	}
	if config.Directories.Routing != "distinct" || config.Directories.System != "/sys" {
		t.Errorf("directories = %+v, want distinct routing with /sys", config.Directories)
	}
	if config.Content.CacheSize != 4 {
		t.Errorf("content.cacheSize = %d, want 4", config.Content.CacheSize)
	}

	var ids []string
	for _, c := range config.Cores {
		ids = append(ids, c.ID+"="+c.Path)
	}
	if got := strings.Join(ids, ","); got != "a=/a.so,c=/c.so" {
		t.Errorf("cores = %s, want a=/a.so,c=/c.so", got)
	}
	if len(config.Known) != 1 || config.Known[0].ID != "k" {
		t.Errorf("known = %+v, want only k", config.Known)
	}

	if problems := ValidateConfig(config); len(problems) != 0 {
		t.Errorf("corrected config still invalid: %v", problems)
	}
}
