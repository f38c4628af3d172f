// Package registry tracks the cores known to the frontend and the session
// each installed core runs in. There is at most one session per core.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
	"github.com/pixl-project/retroplayer/session"
)

// WrapperID is the helper library that hosts libretro cores. It is never
// registered as a core itself.
const WrapperID = "library.xbmc.libretro"

var (
	ErrNotRegistered = errors.New("core is not registered")
	ErrNoCandidate   = errors.New("no core can open this content")
	ErrDisabled      = errors.New("core is disabled")
	ErrWrapper       = errors.New("wrapper library is not a core")
)

// Source lists core descriptors.
type Source interface {
	// Installed returns the cores available locally, enabled or not.
	Installed() ([]coreif.Descriptor, error)
	// Known returns every core the frontend knows of, installed or not.
	// Only their extensions are used.
	Known() ([]coreif.Descriptor, error)
}

// StaticSource is a fixed list of installed cores.
type StaticSource []coreif.Descriptor

func (s StaticSource) Installed() ([]coreif.Descriptor, error) { return s, nil }
func (s StaticSource) Known() ([]coreif.Descriptor, error)     { return s, nil }

// Config configures a Registry. The session fields are passed to every
// session the registry creates.
type Config struct {
	Source   Source
	Loader   coreif.Loader
	Frontend api.Frontend
	Settings session.Settings
	Resolver session.Resolver
	Routing  libretro.Routing

	NotificationDuration time.Duration
	FirstAction          int

	// OnDisable is called when a core fails to load and is disabled.
	OnDisable func(id string)

	Logger zerolog.Logger
}

// Registry owns the sessions of all registered cores.
type Registry struct {
	cfg Config
	log zerolog.Logger

	probes   singleflight.Group
	launcher launcher

	mu         sync.Mutex
	sessions   map[string]*session.Session
	disabled   map[string]bool
	extensions coreif.ExtensionSet
}

// New returns a stopped registry.
func New(cfg Config) *Registry {
	return &Registry{
		cfg:        cfg,
		log:        cfg.Logger.With().Str("component", "registry").Logger(),
		sessions:   make(map[string]*session.Session),
		disabled:   make(map[string]bool),
		extensions: make(coreif.ExtensionSet),
	}
}

// Start registers the installed cores and collects known extensions.
func (r *Registry) Start() error {
	if err := r.UpdateCores(); err != nil {
		return err
	}
	return r.UpdateKnown()
}

// Stop destroys every session and forgets all registrations.
func (r *Registry) Stop() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Destroy()
	}
	r.launcher.clear()
}

// UpdateCores registers every installed core, dropping those that can no
// longer be registered.
func (r *Registry) UpdateCores() error {
	if r.cfg.Source == nil {
		return nil
	}
	descs, err := r.cfg.Source.Installed()
	if err != nil {
		return fmt.Errorf("failed to list installed cores: %w", err)
	}
	for _, desc := range descs {
		if err := r.Register(desc); err != nil {
			r.log.Debug().Str("core", desc.ID).Err(err).Msg("not registered")
			_ = r.Unregister(desc.ID)
		}
	}
	return nil
}

// UpdateKnown rebuilds the set of game extensions from every known core
// that is not disabled.
func (r *Registry) UpdateKnown() error {
	if r.cfg.Source == nil {
		return nil
	}
	known, err := r.cfg.Source.Known()
	if err != nil {
		return fmt.Errorf("failed to list known cores: %w", err)
	}
	installed, err := r.cfg.Source.Installed()
	if err != nil {
		return fmt.Errorf("failed to list installed cores: %w", err)
	}

	exts := make(coreif.ExtensionSet)
	all := make([]coreif.Descriptor, 0, len(known)+len(installed))
	all = append(all, known...)
	all = append(all, installed...)
	for _, desc := range dedupe(all) {
		if desc.Disabled {
			continue
		}
		for ext := range desc.Extensions {
			exts.Add(ext)
		}
	}

	r.mu.Lock()
	r.extensions = exts
	r.mu.Unlock()

	r.log.Debug().Int("count", len(exts)).Msg("tracking extensions")
	return nil
}

// dedupe sorts by id and keeps the first descriptor of each id.
func dedupe(descs []coreif.Descriptor) []coreif.Descriptor {
	sort.SliceStable(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	out := descs[:0]
	for i, d := range descs {
		if i > 0 && d.ID == descs[i-1].ID {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Register adds a core after checking that it loads. A core that fails to
// load is disabled and the user is notified. Registering an id twice is a
// no-op.
func (r *Registry) Register(desc coreif.Descriptor) error {
	if desc.ID == WrapperID {
		return ErrWrapper
	}

	r.mu.Lock()
	if desc.Disabled || r.disabled[desc.ID] {
		r.mu.Unlock()
		return ErrDisabled
	}
	_, exists := r.sessions[desc.ID]
	r.mu.Unlock()
	if exists {
		return nil
	}

	v, err, _ := r.probes.Do(desc.ID, func() (any, error) {
		return r.probe(desc)
	})
	if err != nil {
		return err
	}
	s := v.(*session.Session)

	r.mu.Lock()
	if _, exists := r.sessions[desc.ID]; exists {
		r.mu.Unlock()
		return nil
	}
	r.sessions[desc.ID] = s
	for ext := range desc.Extensions {
		r.extensions.Add(ext)
	}
	r.mu.Unlock()

	r.log.Debug().Str("core", desc.ID).Msg("registered core")

	// A file may have been queued waiting for this core.
	r.launcher.launch(s)
	return nil
}

// probe creates and destroys a session for desc.
func (r *Registry) probe(desc coreif.Descriptor) (*session.Session, error) {
	s := session.New(session.Config{
		Descriptor:           desc,
		Loader:               r.cfg.Loader,
		Frontend:             r.cfg.Frontend,
		Settings:             r.cfg.Settings,
		Resolver:             r.cfg.Resolver,
		Routing:              r.cfg.Routing,
		NotificationDuration: r.cfg.NotificationDuration,
		FirstAction:          r.cfg.FirstAction,
		Logger:               r.cfg.Logger,
	})

	if err := s.Create(); err != nil {
		r.log.Error().Str("core", desc.ID).Err(err).Msg("failed to load core, disabling")
		if r.cfg.Frontend != nil {
			r.cfg.Frontend.Notify(desc.DisplayName()+": Error loading core", r.cfg.NotificationDuration)
		}
		r.mu.Lock()
		r.disabled[desc.ID] = true
		r.mu.Unlock()
		if r.cfg.OnDisable != nil {
			r.cfg.OnDisable(desc.ID)
		}
		return nil, fmt.Errorf("failed to load core %s: %w", desc.ID, err)
	}
	s.Destroy()
	return s, nil
}

// Unregister destroys the session of id and forgets the core.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotRegistered
	}
	s.Destroy()
	return nil
}

// Enable clears the disabled mark left by a failed load.
func (r *Registry) Enable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, id)
}

// Session returns the session of a registered core.
func (r *Registry) Session(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ConnectedSession returns the session of a registered core that is ready.
func (r *Registry) ConnectedSession(id string) (*session.Session, bool) {
	s, ok := r.Session(id)
	if !ok || !s.Ready() {
		return nil, false
	}
	return s, true
}

// IDs returns the registered core ids in order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Candidates returns the ids of the cores that can open path. When
// requested is set only that core is considered.
func (r *Registry) Candidates(path, requested string) []string {
	var candidates []string
	for _, id := range r.IDs() {
		if requested != "" && requested != id {
			continue
		}
		s, ok := r.Session(id)
		if !ok {
			continue
		}
		r.log.Debug().Str("core", id).Str("path", path).Msg("checking candidate")
		if s.CanOpen(path, requested) {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// Extensions returns the tracked game extensions in order.
func (r *Registry) Extensions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extensions.Sorted()
}

// IsGame reports whether path has an extension some known core opens.
func (r *Registry) IsGame(path string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimRight(path, "/")))
	if ext == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extensions.Contains(ext)
}

// StopSession destroys the session of id, or recreates it when restart is
// set.
func (r *Registry) StopSession(id string, restart bool) error {
	s, ok := r.Session(id)
	if !ok {
		return ErrNotRegistered
	}
	if restart {
		r.log.Debug().Str("core", id).Msg("restarting core")
		return s.Create()
	}
	r.log.Debug().Str("core", id).Msg("stopping core")
	s.Destroy()
	return nil
}

// Open opens path in the first core able to, creating the core instance if
// needed.
func (r *Registry) Open(path, requested string) (*session.Session, error) {
	candidates := r.Candidates(path, requested)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCandidate, path)
	}
	s, ok := r.Session(candidates[0])
	if !ok {
		return nil, ErrNotRegistered
	}
	if !s.Ready() {
		if err := s.Create(); err != nil {
			return nil, err
		}
	}
	if err := s.OpenContentFor(path, requested); err != nil {
		return nil, err
	}
	return s, nil
}

// QueueLaunch holds path until a core that can open it is registered, then
// calls fn with that core's session. A later call replaces the queued path.
func (r *Registry) QueueLaunch(path, requested string, fn LaunchFunc) {
	r.launcher.queue(path, requested, fn)
}
