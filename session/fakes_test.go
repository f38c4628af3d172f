package session

import (
	"encoding/binary"
	"errors"
	"strings"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
)

// fakeCore emulates a core whose whole state is a frame counter.
type fakeCore struct {
	apiVersion uint
	info       coreif.SystemInfo
	av         api.SystemAVInfo
	region     api.Region
	stateSize  int

	env        coreif.EnvironmentFunc
	inputState coreif.InputStateFunc

	// announceNoGame sends SET_SUPPORT_NO_GAME from SetEnvironment.
	announceNoGame bool
	// onInit and onRun run inside the corresponding calls.
	onInit func(c *fakeCore)
	onRun  func(c *fakeCore)

	errs   map[string]error
	panics map[string]any
	calls  []string

	frame   uint64
	game    coreif.GameInfo
	devices map[uint]coreif.Device
	closed  bool

	invokedAddr uintptr
	invokedArgs []uintptr
	invokeRet   uintptr
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		apiVersion: coreif.APIVersion,
		info: coreif.SystemInfo{
			Name:       "FakeNES",
			Version:    "1.2",
			Extensions: coreif.ParseExtensions("nes|unf"),
		},
		av: api.SystemAVInfo{
			Geometry: api.Geometry{BaseWidth: 256, BaseHeight: 240, MaxWidth: 256, MaxHeight: 240, AspectRatio: 4.0 / 3.0},
			Timing:   api.Timing{FPS: 60, SampleRate: 44100},
		},
		region:    api.RegionNTSC,
		stateSize: 8,
		errs:      map[string]error{},
		panics:    map[string]any{},
		devices:   map[uint]coreif.Device{},
	}
}

func (c *fakeCore) hook(name string) error {
	c.calls = append(c.calls, name)
	if v, ok := c.panics[name]; ok {
		panic(v)
	}
	return c.errs[name]
}

func (c *fakeCore) called(name string) int {
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *fakeCore) APIVersion() uint { return c.apiVersion }

func (c *fakeCore) SystemInfo() (coreif.SystemInfo, error) {
	return c.info, c.hook("SystemInfo")
}

func (c *fakeCore) SetEnvironment(fn coreif.EnvironmentFunc) {
	c.env = fn
	if c.announceNoGame {
		yes := true
		fn(uint32(libretro.EnvSetSupportNoGame), unsafe.Pointer(&yes))
	}
}

func (c *fakeCore) SetInputState(fn coreif.InputStateFunc) { c.inputState = fn }

func (c *fakeCore) Init() error {
	if err := c.hook("Init"); err != nil {
		return err
	}
	if c.onInit != nil {
		c.onInit(c)
	}
	return nil
}

func (c *fakeCore) Deinit() error { return c.hook("Deinit") }

func (c *fakeCore) LoadGame(game coreif.GameInfo) error {
	if err := c.hook("LoadGame"); err != nil {
		return err
	}
	c.game = game
	c.frame = 0
	return nil
}

func (c *fakeCore) UnloadGame() error { return c.hook("UnloadGame") }

func (c *fakeCore) Run() error {
	if err := c.hook("Run"); err != nil {
		return err
	}
	c.frame++
	if c.onRun != nil {
		c.onRun(c)
	}
	return nil
}

func (c *fakeCore) Reset() error {
	if err := c.hook("Reset"); err != nil {
		return err
	}
	c.frame = 0
	return nil
}

func (c *fakeCore) SystemAVInfo() (api.SystemAVInfo, error) {
	return c.av, c.hook("SystemAVInfo")
}

func (c *fakeCore) Region() (api.Region, error) {
	return c.region, c.hook("Region")
}

func (c *fakeCore) SerializeSize() (int, error) {
	return c.stateSize, c.hook("SerializeSize")
}

func (c *fakeCore) Serialize(dst []byte) error {
	if err := c.hook("Serialize"); err != nil {
		return err
	}
	if len(dst) < 8 {
		return coreif.Fail("Serialize", coreif.StatusInvalidParameters)
	}
	binary.LittleEndian.PutUint64(dst, c.frame)
	return nil
}

func (c *fakeCore) Unserialize(src []byte) error {
	if err := c.hook("Unserialize"); err != nil {
		return err
	}
	c.frame = binary.LittleEndian.Uint64(src)
	return nil
}

func (c *fakeCore) SetControllerPortDevice(port uint, device coreif.Device) error {
	if err := c.hook("SetControllerPortDevice"); err != nil {
		return err
	}
	c.devices[port] = device
	return nil
}

func (c *fakeCore) Close() error {
	c.closed = true
	return c.hook("Close")
}

func (c *fakeCore) Invoke(fn uintptr, args ...uintptr) (uintptr, error) {
	c.invokedAddr = fn
	c.invokedArgs = append([]uintptr(nil), args...)
	return c.invokeRet, c.hook("Invoke")
}

// sendAVInfo issues SET_SYSTEM_AV_INFO with the given frame rate.
func (c *fakeCore) sendAVInfo(fps float64) bool {
	info := libretro.SystemAVInfo{
		Geometry: libretro.GameGeometry{BaseWidth: 320, BaseHeight: 240, MaxWidth: 320, MaxHeight: 240},
		Timing:   libretro.SystemTiming{FPS: fps, SampleRate: 48000},
	}
	return c.env(uint32(libretro.EnvSetSystemAVInfo), unsafe.Pointer(&info))
}

// loaderFor returns a loader handing out cores in order.
func loaderFor(cores ...*fakeCore) coreif.Loader {
	return coreif.LoaderFunc(func(path string) (coreif.Core, error) {
		if len(cores) == 0 {
			return nil, errors.New("no such core")
		}
		c := cores[0]
		cores = cores[1:]
		return c, nil
	})
}

// stubFrontend accepts everything and answers with zero values.
type stubFrontend struct {
	rejectAV bool
}

func (f *stubFrontend) SetRotation(api.Rotation)                  {}
func (f *stubFrontend) Overscan() bool                            { return false }
func (f *stubFrontend) CanDupe() bool                             { return true }
func (f *stubFrontend) Notify(string, time.Duration)              {}
func (f *stubFrontend) Shutdown()                                 {}
func (f *stubFrontend) SetPerformanceLevel(uint)                  {}
func (f *stubFrontend) SystemDirectory() (string, bool)           { return "", false }
func (f *stubFrontend) ContentDirectory() (string, bool)          { return "", false }
func (f *stubFrontend) SaveDirectory() (string, bool)             { return "", false }
func (f *stubFrontend) LibretroPath() (string, bool)              { return "", false }
func (f *stubFrontend) SetPixelFormat(api.PixelFormat) bool       { return true }
func (f *stubFrontend) SetInputDescriptors([]api.InputDescriptor) {}
func (f *stubFrontend) Variable(string) (string, bool)            { return "", false }
func (f *stubFrontend) SetVariables([]api.Variable)               {}
func (f *stubFrontend) VariablesUpdated() bool                    { return false }
func (f *stubFrontend) SetSupportNoGame(bool)                     {}
func (f *stubFrontend) SetSystemAVInfo(api.SystemAVInfo) bool     { return !f.rejectAV }
func (f *stubFrontend) SetGeometry(api.Geometry)                  {}
func (f *stubFrontend) InputDeviceCapabilities() uint64           { return 0 }
func (f *stubFrontend) Username() (string, bool)                  { return "", false }

// stubResolver maps paths through a table and serves file contents from
// memory.
type stubResolver struct {
	paths map[string]string
	files map[string][]byte
	peek  map[string]bool
}

func (r *stubResolver) Resolve(path string, desc coreif.Descriptor) (string, error) {
	if p, ok := r.paths[path]; ok {
		return p, nil
	}
	return path, nil
}

func (r *stubResolver) Peek(path string, desc coreif.Descriptor) bool {
	return r.peek[path]
}

func (r *stubResolver) ReadFile(path string) ([]byte, error) {
	if data, ok := r.files[path]; ok {
		return data, nil
	}
	return nil, errors.New("not found: " + path)
}

func nesDescriptor() coreif.Descriptor {
	return coreif.Descriptor{
		ID:         "game.libretro.fakenes",
		Name:       "FakeNES",
		Author:     "Jane Doe",
		Path:       "/cores/fakenes.so",
		Extensions: coreif.ParseExtensions(".nes|.unf"),
	}
}

func rewindSettings(seconds int) StaticSettings {
	return StaticSettings{Enabled: true, Seconds: seconds}
}

// newTestSession builds a session around core with rewind enabled for
// seconds of play. Log output is written to logs when non-nil.
func newTestSession(core *fakeCore, settings Settings, logs *strings.Builder) *Session {
	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs)
	}
	return New(Config{
		Descriptor: nesDescriptor(),
		Loader:     loaderFor(core),
		Frontend:   &stubFrontend{},
		Settings:   settings,
		Logger:     logger,
	})
}
