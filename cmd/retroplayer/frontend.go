package main

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/storage"
)

// headless is a frontend without video or audio output. Messages go to the
// log and core options take their first declared value unless overridden.
type headless struct {
	dirs storage.DirectoryConfig
	log  zerolog.Logger

	mu        sync.Mutex
	corePath  string
	overrides map[string]string
	vars      map[string]string
	updated   bool
	format    api.PixelFormat
	av        api.SystemAVInfo
	rotation  api.Rotation
	frameTime time.Duration
	noGame    bool
	stopped   bool
}

func newHeadless(dirs storage.DirectoryConfig, overrides map[string]string, log zerolog.Logger) *headless {
	if overrides == nil {
		overrides = make(map[string]string)
	}
	return &headless{
		dirs:      dirs,
		log:       log.With().Str("component", "frontend").Logger(),
		overrides: overrides,
		vars:      make(map[string]string),
	}
}

// setCorePath records the binary answered for GET_LIBRETRO_PATH.
func (h *headless) setCorePath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.corePath = path
}

func (h *headless) shutdownRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *headless) SetRotation(r api.Rotation) {
	h.mu.Lock()
	h.rotation = r
	h.mu.Unlock()
	h.log.Debug().Int("degrees", r.Degrees()).Msg("rotation")
}

func (h *headless) Overscan() bool { return false }
func (h *headless) CanDupe() bool  { return true }

func (h *headless) Notify(msg string, d time.Duration) {
	h.log.Info().Dur("duration", d).Msg(msg)
}

func (h *headless) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
}

func (h *headless) SetPerformanceLevel(level uint) {
	h.log.Debug().Uint("level", level).Msg("performance level")
}

func (h *headless) SystemDirectory() (string, bool) {
	return h.dirs.System, h.dirs.System != ""
}

func (h *headless) ContentDirectory() (string, bool) {
	return h.dirs.Content, h.dirs.Content != ""
}

func (h *headless) SaveDirectory() (string, bool) {
	return h.dirs.Save, h.dirs.Save != ""
}

func (h *headless) LibretroPath() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.corePath, h.corePath != ""
}

func (h *headless) SetPixelFormat(f api.PixelFormat) bool {
	if f.BytesPerPixel() == 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.format = f
	return true
}

func (h *headless) pixelFormat() api.PixelFormat {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.format
}

func (h *headless) SetInputDescriptors(descs []api.InputDescriptor) {
	for _, d := range descs {
		h.log.Debug().
			Uint("port", d.Port).
			Uint("device", d.Device).
			Uint("id", d.ID).
			Str("description", d.Description).
			Msg("input")
	}
}

func (h *headless) Variable(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.vars[key]
	return v, ok
}

// SetVariables takes the first option of every declared variable unless the
// user set one.
func (h *headless) SetVariables(vars []api.Variable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range vars {
		value, ok := h.overrides[v.Key]
		if !ok {
			value = defaultOption(v.Value)
		}
		h.vars[v.Key] = value
	}
	h.updated = true
}

func (h *headless) VariablesUpdated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	updated := h.updated
	h.updated = false
	return updated
}

func (h *headless) SetSupportNoGame(supported bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noGame = supported
}

func (h *headless) SetSystemAVInfo(info api.SystemAVInfo) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.av = info
	return true
}

func (h *headless) SetGeometry(g api.Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.av.Geometry = g
}

func (h *headless) InputDeviceCapabilities() uint64 {
	return 1<<coreif.DeviceJoypad | 1<<coreif.DeviceAnalog
}

func (h *headless) Username() (string, bool) {
	return h.dirs.Username, h.dirs.Username != ""
}

func (h *headless) SetFrameTimeReference(reference time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frameTime = reference
}

// defaultOption returns the first choice of a "Description; a|b|c" value.
func defaultOption(declared string) string {
	_, choices, found := strings.Cut(declared, ";")
	if !found {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(choices), "|")
	return first
}
