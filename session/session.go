// Package session drives a single loaded libretro core: creation and
// validation against its descriptor, content loading, frame stepping, and
// rewind.
//
// All calls into the core are guarded. A core that fails or panics makes the
// current operation fail; the panic never unwinds past the Session.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/input"
	"github.com/pixl-project/retroplayer/libretro"
	"github.com/pixl-project/retroplayer/rewind"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUnloaded State = iota
	StateCreated
	StatePlaying
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateCreated:
		return "created"
	case StatePlaying:
		return "playing"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Settings supplies the rewind configuration. It is read when content is
// opened and by ApplySettings.
type Settings interface {
	RewindEnabled() bool
	RewindSeconds() int
	// RewindMaxBytes caps the rewind storage. 0 means no cap.
	RewindMaxBytes() int64
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	Enabled  bool
	Seconds  int
	MaxBytes int64
}

func (s StaticSettings) RewindEnabled() bool   { return s.Enabled }
func (s StaticSettings) RewindSeconds() int    { return s.Seconds }
func (s StaticSettings) RewindMaxBytes() int64 { return s.MaxBytes }

// Resolver translates content paths into something a core can open.
type Resolver interface {
	// Resolve returns the path to hand to the core described by desc.
	Resolve(path string, desc coreif.Descriptor) (string, error)
	// Peek reports whether path is an archive holding a member desc
	// accepts.
	Peek(path string, desc coreif.Descriptor) bool
	// ReadFile returns the bytes at a resolved path.
	ReadFile(path string) ([]byte, error)
}

// Config configures a Session.
type Config struct {
	Descriptor coreif.Descriptor
	Loader     coreif.Loader
	Frontend   api.Frontend

	// Settings defaults to rewind disabled.
	Settings Settings
	// Resolver may be nil, in which case paths are passed through.
	Resolver Resolver

	Routing              libretro.Routing
	NotificationDuration time.Duration

	// FirstAction is the host action id mapped onto the first control.
	FirstAction int

	Logger zerolog.Logger
}

// Session owns one loaded core instance.
type Session struct {
	desc     coreif.Descriptor
	loader   coreif.Loader
	frontend api.Frontend
	settings Settings
	resolver Resolver
	routing  libretro.Routing
	notify   time.Duration
	log      zerolog.Logger

	input *input.StateTable

	// mu serializes entry into the core. The AV info hook runs inside core
	// calls made with mu held and must not take it.
	mu        sync.Mutex
	state     State
	core      coreif.Core
	bridge    *libretro.Bridge
	services  *libretro.Services
	callbacks libretro.Callbacks
	info      coreif.SystemInfo

	contentPath   string
	region        api.Region
	geometry      api.Geometry
	frameRate     float64
	correction    float64
	sampleRate    float64
	serializeSize int
	rewindEnabled bool
	rewind        rewind.Buffer
}

// New returns an unloaded session for cfg.Descriptor.
func New(cfg Config) *Session {
	settings := cfg.Settings
	if settings == nil {
		settings = StaticSettings{}
	}
	log := cfg.Logger.With().
		Str("component", "session").
		Str("core", cfg.Descriptor.ID).
		Logger()

	return &Session{
		desc:       cfg.Descriptor,
		loader:     cfg.Loader,
		frontend:   cfg.Frontend,
		settings:   settings,
		resolver:   cfg.Resolver,
		routing:    cfg.Routing,
		notify:     cfg.NotificationDuration,
		log:        log,
		input:      input.NewStateTable(cfg.FirstAction, cfg.Logger),
		correction: 1,
	}
}

// ID returns the descriptor id.
func (s *Session) ID() string {
	return s.desc.ID
}

// Descriptor returns the declared identity of the core.
func (s *Session) Descriptor() coreif.Descriptor {
	return s.desc
}

// Input returns the table the core reads input from.
func (s *Session) Input() *input.StateTable {
	return s.input
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the core is loaded and validated.
func (s *Session) Ready() bool {
	st := s.State()
	return st == StateCreated || st == StatePlaying
}

// Playing reports whether content is loaded.
func (s *Session) Playing() bool {
	return s.State() == StatePlaying
}

// SystemInfo returns what the core reported at Create.
func (s *Session) SystemInfo() coreif.SystemInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// clientName is the name the core reported, or the descriptor's.
func (s *Session) clientName() string {
	if s.info.Name != "" {
		return s.info.Name
	}
	return s.desc.DisplayName()
}

// Create loads the core binary and validates it against the descriptor. A
// session that is already ready is destroyed first. On failure the session
// is left unloaded.
func (s *Session) Create() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyLocked()
	s.state = StateUnloaded

	s.log.Debug().Str("path", s.desc.Path).Msg("creating core instance")

	if s.loader == nil {
		return fmt.Errorf("failed to load core %s: no loader", s.desc.ID)
	}
	core, err := guard(s, "Load", func() (coreif.Core, error) {
		return s.loader.Load(s.desc.Path)
	})
	if err != nil {
		return fmt.Errorf("failed to load core %s: %w", s.desc.ID, err)
	}

	if v := core.APIVersion(); v != coreif.APIVersion {
		s.closeCore(core)
		return fmt.Errorf("core %s uses API version %d, want %d", s.desc.ID, v, coreif.APIVersion)
	}

	s.callbacks = libretro.Callbacks{}
	s.services = libretro.NewServices(s.frontend, s.log)
	var trampolines libretro.Trampolines
	if binder, ok := core.(libretro.ServiceBinder); ok {
		trampolines = binder.BindServices(s.services)
	}
	s.bridge = libretro.New(libretro.Config{
		Frontend:             s.frontend,
		Callbacks:            &s.callbacks,
		Trampolines:          trampolines,
		Routing:              s.routing,
		NotificationDuration: s.notify,
		OnSystemAVInfo:       s.onSystemAVInfo,
		Logger:               s.log,
	})
	s.core = core

	err = guardErr(s, "SetEnvironment", func() error {
		core.SetEnvironment(s.bridge.Environment())
		core.SetInputState(s.input.GetInput)
		return nil
	})
	if err != nil {
		s.teardown()
		return fmt.Errorf("failed to install callbacks: %w", err)
	}

	info, err := guard(s, "GetSystemInfo", core.SystemInfo)
	if err != nil {
		s.teardown()
		return fmt.Errorf("failed to query core %s: %w", s.desc.ID, err)
	}
	info.SupportsNoGame = info.SupportsNoGame || s.bridge.SupportsNoGame()

	if problems := s.desc.Mismatch(info); len(problems) > 0 {
		for _, p := range problems {
			s.log.Error().Str("problem", p).Msg("descriptor doesn't match core value")
		}
		s.teardown()
		return fmt.Errorf("%w: %s", ErrContractMismatch, strings.Join(problems, "; "))
	}

	if err := guardErr(s, "Init", core.Init); err != nil {
		s.teardown()
		return fmt.Errorf("failed to initialize core %s: %w", s.desc.ID, err)
	}

	s.info = info
	s.state = StateCreated

	s.log.Info().
		Str("client", info.Name).
		Str("version", info.Version).
		Str("extensions", info.Extensions.String()).
		Bool("vfs", info.SupportsVFS).
		Bool("no_game", info.SupportsNoGame).
		Msg("loaded core")

	return nil
}

// Destroy unloads content and the core. It is a no-op on a session that is
// not ready.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked()
}

func (s *Session) destroyLocked() {
	if s.state == StatePlaying {
		s.closeContentLocked()
	}
	if s.state != StateCreated {
		return
	}

	s.log.Debug().Msg("destroying core instance")
	_ = guardErr(s, "Deinit", s.core.Deinit)
	s.teardown()
	s.state = StateDestroyed
}

// teardown releases the core and bridge without calling Deinit.
func (s *Session) teardown() {
	if s.core != nil {
		s.closeCore(s.core)
		s.core = nil
	}
	if s.bridge != nil {
		s.bridge.Close()
		s.bridge = nil
	}
	if s.services != nil {
		s.services.Forget()
	}
	s.info = coreif.SystemInfo{}
}

func (s *Session) closeCore(core coreif.Core) {
	_ = guardErr(s, "Close", core.Close)
}
