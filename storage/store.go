package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
)

const bytesPerMB = 1024 * 1024

// Store holds the loaded configuration and writes changes back to disk. It
// is safe for concurrent use and serves as the rewind settings source and
// the core list of a registry.
type Store struct {
	fs   afero.Fs
	path string
	log  zerolog.Logger

	mu     sync.RWMutex
	config *Config
}

// NewStore creates a Store for the config file at path. The store holds
// defaults until Load is called.
func NewStore(fs afero.Fs, path string, logger zerolog.Logger) *Store {
	return &Store{
		fs:     fs,
		path:   path,
		log:    logger.With().Str("component", "storage").Logger(),
		config: DefaultConfig(),
	}
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the config file, logging and correcting invalid values.
func (s *Store) Load() error {
	config, err := LoadConfig(s.fs, s.path)
	if err != nil {
		return err
	}

	if problems := ValidateConfig(config); len(problems) > 0 {
		for _, p := range problems {
			s.log.Warn().Str("path", s.path).Str("problem", p).Msg("invalid config value reset to default")
		}
		config = CorrectConfig(config)
	}

	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
	return nil
}

// Save writes the current config to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SaveConfig(s.fs, s.path, s.config)
}

// Config returns a copy of the current config.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.config
	c.Cores = append([]CoreEntry(nil), s.config.Cores...)
	c.Known = append([]CoreEntry(nil), s.config.Known...)
	return c
}

// Update applies fn to the config, corrects the result and saves it.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.config)
	CorrectConfig(s.config)
	return SaveConfig(s.fs, s.path, s.config)
}

func (s *Store) RewindEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Rewind.Enabled
}

func (s *Store) RewindSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Rewind.Seconds
}

func (s *Store) RewindMaxBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.config.Rewind.MaxBufferMB) * bytesPerMB
}

// Routing returns the configured directory routing.
func (s *Store) Routing() libretro.Routing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, _ := libretro.ParseRouting(s.config.Directories.Routing)
	return r
}

// NotificationDuration returns the default on-screen message duration.
func (s *Store) NotificationDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.config.Notifications.DefaultDurationMs) * time.Millisecond
}

// Installed returns the installed cores as descriptors.
func (s *Store) Installed() ([]coreif.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return descriptors(s.config.Cores), nil
}

// Known returns installed and known-only cores as descriptors.
func (s *Store) Known() ([]coreif.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(descriptors(s.config.Cores), descriptors(s.config.Known)...), nil
}

// AddCore installs a core, replacing any entry with the same id.
func (s *Store) AddCore(d coreif.Descriptor) error {
	return s.Update(func(c *Config) {
		entry := EntryFor(d)
		for i := range c.Cores {
			if c.Cores[i].ID == d.ID {
				c.Cores[i] = entry
				return
			}
		}
		c.Cores = append(c.Cores, entry)
	})
}

// SetCoreDisabled marks an installed core disabled or enabled and saves the
// change.
func (s *Store) SetCoreDisabled(id string, disabled bool) error {
	found := false
	err := s.Update(func(c *Config) {
		for i := range c.Cores {
			if c.Cores[i].ID == id {
				c.Cores[i].Disabled = disabled
				found = true
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("core %s is not installed", id)
	}
	return nil
}

// DisableCore is SetCoreDisabled for use as a registry disable hook.
// Failures are logged.
func (s *Store) DisableCore(id string) {
	if err := s.SetCoreDisabled(id, true); err != nil {
		s.log.Error().Err(err).Str("core", id).Msg("failed to persist disabled core")
	}
}

func descriptors(entries []CoreEntry) []coreif.Descriptor {
	out := make([]coreif.Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Descriptor())
	}
	return out
}
