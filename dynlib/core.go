//go:build darwin || linux || freebsd

package dynlib

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
)

// symbols holds the retro_* entry points of a core.
type symbols struct {
	apiVersion              func() uint32
	getSystemInfo           func(info *libretro.SystemInfo)
	getSystemAVInfo         func(info *libretro.SystemAVInfo)
	setEnvironment          func(cb uintptr)
	setVideoRefresh         func(cb uintptr)
	setAudioSample          func(cb uintptr)
	setAudioSampleBatch     func(cb uintptr)
	setInputPoll            func(cb uintptr)
	setInputState           func(cb uintptr)
	init                    func()
	deinit                  func()
	loadGame                func(game *libretro.GameInfo) bool
	unloadGame              func()
	run                     func()
	reset                   func()
	getRegion               func() uint32
	serializeSize           func() uintptr
	serialize               func(data unsafe.Pointer, size uintptr) bool
	unserialize             func(data unsafe.Pointer, size uintptr) bool
	setControllerPortDevice func(port, device uint32)
}

// Core is a core loaded from a shared library.
type Core struct {
	path string
	fs   afero.Fs
	log  zerolog.Logger

	video VideoFunc
	audio AudioFunc

	mu     sync.Mutex
	handle uintptr
	sym    symbols
	slot   *slot

	env   coreif.EnvironmentFunc
	input coreif.InputStateFunc

	vfs      atomic.Bool
	info     *coreif.SystemInfo
	callsSet bool

	pinner   runtime.Pinner
	game     *libretro.GameInfo
	gameData []byte

	frames      atomic.Uint64
	dupedFrames atomic.Uint64
	audioFrames atomic.Uint64
	inputPolls  atomic.Uint64

	stereo [2]int16
}

func (l *Loader) open(path string) (*Core, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	c := &Core{
		path:   path,
		fs:     l.fs,
		log:    l.log.With().Str("path", path).Logger(),
		video:  l.video,
		audio:  l.audio,
		handle: handle,
	}
	if err := c.bind(); err != nil {
		purego.Dlclose(handle)
		return nil, err
	}

	s, err := acquire(c)
	if err != nil {
		purego.Dlclose(handle)
		return nil, err
	}
	c.slot = s

	c.log.Debug().Int("slot", s.index).Msg("opened core library")
	return c, nil
}

func (c *Core) bind() error {
	table := []struct {
		name string
		fn   any
	}{
		{"retro_api_version", &c.sym.apiVersion},
		{"retro_get_system_info", &c.sym.getSystemInfo},
		{"retro_get_system_av_info", &c.sym.getSystemAVInfo},
		{"retro_set_environment", &c.sym.setEnvironment},
		{"retro_set_video_refresh", &c.sym.setVideoRefresh},
		{"retro_set_audio_sample", &c.sym.setAudioSample},
		{"retro_set_audio_sample_batch", &c.sym.setAudioSampleBatch},
		{"retro_set_input_poll", &c.sym.setInputPoll},
		{"retro_set_input_state", &c.sym.setInputState},
		{"retro_init", &c.sym.init},
		{"retro_deinit", &c.sym.deinit},
		{"retro_load_game", &c.sym.loadGame},
		{"retro_unload_game", &c.sym.unloadGame},
		{"retro_run", &c.sym.run},
		{"retro_reset", &c.sym.reset},
		{"retro_get_region", &c.sym.getRegion},
		{"retro_serialize_size", &c.sym.serializeSize},
		{"retro_serialize", &c.sym.serialize},
		{"retro_unserialize", &c.sym.unserialize},
		{"retro_set_controller_port_device", &c.sym.setControllerPortDevice},
	}
	for _, entry := range table {
		addr, err := purego.Dlsym(c.handle, entry.name)
		if err != nil {
			return fmt.Errorf("core %s is missing %s: %w", c.path, entry.name, err)
		}
		purego.RegisterFunc(entry.fn, addr)
	}
	return nil
}

// loaded fails once the library is closed. Callers hold mu.
func (c *Core) loaded(call string) error {
	if c.handle == 0 {
		return fmt.Errorf("%s: %w", call, ErrClosed)
	}
	return nil
}

func (c *Core) APIVersion() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == 0 {
		return 0
	}
	return uint(c.sym.apiVersion())
}

func (c *Core) SystemInfo() (coreif.SystemInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded("GetSystemInfo"); err != nil {
		return coreif.SystemInfo{}, err
	}
	return c.systemInfoLocked(), nil
}

func (c *Core) systemInfoLocked() coreif.SystemInfo {
	var raw libretro.SystemInfo
	c.sym.getSystemInfo(&raw)
	info := coreif.SystemInfo{
		Name:         libretro.GoString(raw.LibraryName),
		Version:      libretro.GoString(raw.LibraryVersion),
		Extensions:   coreif.ParseExtensions(libretro.GoString(raw.ValidExtensions)),
		SupportsVFS:  c.vfs.Load(),
		NeedFullPath: raw.NeedFullpath,
	}
	c.info = &info
	return info
}

// SetEnvironment installs fn and registers every core callback. libretro
// requires retro_set_environment to run before retro_init; the remaining
// setters follow it.
func (c *Core) SetEnvironment(fn coreif.EnvironmentFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == 0 {
		return
	}
	c.env = fn
	c.sym.setEnvironment(c.slot.environment)
	if !c.callsSet {
		c.sym.setVideoRefresh(c.slot.videoRefresh)
		c.sym.setAudioSample(c.slot.audioSample)
		c.sym.setAudioSampleBatch(c.slot.audioSampleBatch)
		c.sym.setInputPoll(c.slot.inputPoll)
		c.sym.setInputState(c.slot.inputState)
		c.callsSet = true
	}
}

func (c *Core) SetInputState(fn coreif.InputStateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = fn
}

func (c *Core) Init() error {
	return c.call("Init", func() error {
		c.sym.init()
		return nil
	})
}

func (c *Core) Deinit() error {
	return c.call("Deinit", func() error {
		c.sym.deinit()
		return nil
	})
}

// LoadGame hands content to the core. A GameInfo with neither path nor data
// loads no content. Content bytes are read here when the core does not need a
// full path, and stay pinned until UnloadGame.
func (c *Core) LoadGame(game coreif.GameInfo) error {
	return c.call("LoadGame", func() error {
		c.releaseGameLocked()

		if game.Path == "" && game.Data == nil {
			if !c.sym.loadGame(nil) {
				return coreif.Fail("LoadGame", coreif.StatusFailed)
			}
			return nil
		}

		info := c.info
		if info == nil {
			i := c.systemInfoLocked()
			info = &i
		}

		data := game.Data
		if data == nil && !info.NeedFullPath && game.Path != "" {
			var err error
			data, err = afero.ReadFile(c.fs, game.Path)
			if err != nil {
				return coreif.Failf("LoadGame", coreif.StatusInvalidParameters, "failed to read content: %v", err)
			}
		}

		raw := &libretro.GameInfo{Size: uintptr(len(data))}
		c.pinner.Pin(raw)
		if game.Path != "" {
			raw.Path = libretro.CString(game.Path)
			c.pinner.Pin(raw.Path)
		}
		if len(data) > 0 {
			c.pinner.Pin(&data[0])
			raw.Data = unsafe.Pointer(&data[0])
		}
		c.game = raw
		c.gameData = data

		if !c.sym.loadGame(raw) {
			c.releaseGameLocked()
			return coreif.Fail("LoadGame", coreif.StatusFailed)
		}
		return nil
	})
}

func (c *Core) UnloadGame() error {
	return c.call("UnloadGame", func() error {
		c.sym.unloadGame()
		c.releaseGameLocked()
		return nil
	})
}

func (c *Core) releaseGameLocked() {
	c.pinner.Unpin()
	c.game = nil
	c.gameData = nil
}

func (c *Core) Run() error {
	return c.call("Run", func() error {
		c.sym.run()
		return nil
	})
}

func (c *Core) Reset() error {
	return c.call("Reset", func() error {
		c.sym.reset()
		return nil
	})
}

func (c *Core) SystemAVInfo() (api.SystemAVInfo, error) {
	var out api.SystemAVInfo
	err := c.call("GetSystemAVInfo", func() error {
		var raw libretro.SystemAVInfo
		c.sym.getSystemAVInfo(&raw)
		out = raw.API()
		return nil
	})
	return out, err
}

func (c *Core) Region() (api.Region, error) {
	var region api.Region
	err := c.call("GetRegion", func() error {
		switch r := c.sym.getRegion(); r {
		case 0:
			region = api.RegionNTSC
		case 1:
			region = api.RegionPAL
		default:
			return coreif.Failf("GetRegion", coreif.StatusUnknown, "unknown region %d", r)
		}
		return nil
	})
	return region, err
}

func (c *Core) SerializeSize() (int, error) {
	var size int
	err := c.call("SerializeSize", func() error {
		size = int(c.sym.serializeSize())
		return nil
	})
	return size, err
}

func (c *Core) Serialize(dst []byte) error {
	return c.call("Serialize", func() error {
		if len(dst) == 0 {
			return coreif.Fail("Serialize", coreif.StatusInvalidParameters)
		}
		if !c.sym.serialize(unsafe.Pointer(&dst[0]), uintptr(len(dst))) {
			return coreif.Fail("Serialize", coreif.StatusFailed)
		}
		return nil
	})
}

func (c *Core) Unserialize(src []byte) error {
	return c.call("Unserialize", func() error {
		if len(src) == 0 {
			return coreif.Fail("Unserialize", coreif.StatusInvalidParameters)
		}
		if !c.sym.unserialize(unsafe.Pointer(&src[0]), uintptr(len(src))) {
			return coreif.Fail("Unserialize", coreif.StatusFailed)
		}
		return nil
	})
}

func (c *Core) SetControllerPortDevice(port uint, device coreif.Device) error {
	return c.call("SetControllerPortDevice", func() error {
		c.sym.setControllerPortDevice(uint32(port), uint32(device))
		return nil
	})
}

// Invoke calls a function pointer the core registered, passing integer
// arguments.
func (c *Core) Invoke(fn uintptr, args ...uintptr) (uintptr, error) {
	if fn == 0 {
		return 0, coreif.Fail("Invoke", coreif.StatusInvalidParameters)
	}
	var ret uintptr
	err := c.call("Invoke", func() error {
		ret, _, _ = purego.SyscallN(fn, args...)
		return nil
	})
	return ret, err
}

// BindServices routes the service trampolines of this core's slot to s.
func (c *Core) BindServices(s *libretro.Services) libretro.Trampolines {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil {
		return libretro.Trampolines{}
	}
	c.slot.services.Store(s)
	return c.slot.trampolines
}

// Stats returns what the core produced so far.
func (c *Core) Stats() Stats {
	return Stats{
		Frames:      c.frames.Load(),
		DupedFrames: c.dupedFrames.Load(),
		AudioFrames: c.audioFrames.Load(),
		InputPolls:  c.inputPolls.Load(),
	}
}

// Close releases the slot and unloads the library. Loaded content is
// released without calling into the core.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == 0 {
		return nil
	}

	c.releaseGameLocked()
	release(c.slot)
	c.slot = nil

	err := purego.Dlclose(c.handle)
	c.handle = 0
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", c.path, err)
	}
	c.log.Debug().Msg("closed core library")
	return nil
}

// call runs fn with the core locked, failing on a closed core. The lock is
// not reentrant: callbacks from the core never take it.
func (c *Core) call(name string, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(name); err != nil {
		return err
	}
	return fn()
}

// The methods below run on the core's thread from inside a retro_* call.

func (c *Core) onEnvironment(cmd uint32, data unsafe.Pointer) bool {
	if libretro.Command(cmd)&^libretro.Experimental == envGetVFSInterface {
		c.vfs.Store(true)
	}
	if c.env == nil {
		return false
	}
	return c.env(cmd, data)
}

func (c *Core) onVideoRefresh(data unsafe.Pointer, width, height uint32, pitch uintptr) {
	c.frames.Add(1)
	if data == nil {
		c.dupedFrames.Add(1)
	}
	if c.video != nil {
		c.video(data, uint(width), uint(height), pitch)
	}
}

func (c *Core) onAudioSample(left, right int16) {
	c.audioFrames.Add(1)
	if c.audio != nil {
		c.stereo = [2]int16{left, right}
		c.audio(c.stereo[:])
	}
}

func (c *Core) onAudioSampleBatch(data unsafe.Pointer, frames uintptr) uintptr {
	c.audioFrames.Add(uint64(frames))
	if c.audio != nil && data != nil && frames > 0 {
		c.audio(unsafe.Slice((*int16)(data), frames*2))
	}
	return frames
}

func (c *Core) onInputPoll() {
	c.inputPolls.Add(1)
}

func (c *Core) onInputState(port, device, index, id uint32) int16 {
	if c.input == nil {
		return 0
	}
	return c.input(uint(port), uint(device), uint(index), uint(id))
}
