// Package libretro translates the environment messages a libretro core sends
// into calls on the frontend API.
//
// Payloads are read in place through mirrors of the C structs. Nothing that
// points into core memory is kept past a Dispatch call; strings returned to
// the core live in StringBuffers owned by the Bridge.
package libretro

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
)

// DefaultNotificationDuration is used for core messages when the frame rate
// is not known yet.
const DefaultNotificationDuration = 3000 * time.Millisecond

// Routing selects which frontend accessor answers the content and save
// directory queries.
type Routing int

const (
	// RoutingLibretroPath answers both with the core binary path.
	RoutingLibretroPath Routing = iota
	// RoutingDistinct answers with the dedicated content and save
	// directories.
	RoutingDistinct
)

// ParseRouting parses a routing name from configuration.
func ParseRouting(s string) (Routing, error) {
	switch strings.ToLower(s) {
	case "", "libretro-path":
		return RoutingLibretroPath, nil
	case "distinct":
		return RoutingDistinct, nil
	}
	return RoutingLibretroPath, fmt.Errorf("unknown directory routing %q", s)
}

// String returns the configuration name of the routing.
func (r Routing) String() string {
	if r == RoutingDistinct {
		return "distinct"
	}
	return "libretro-path"
}

// Config configures a Bridge.
type Config struct {
	Frontend    api.Frontend
	Callbacks   *Callbacks
	Trampolines Trampolines
	Routing     Routing

	// NotificationDuration overrides DefaultNotificationDuration.
	NotificationDuration time.Duration

	// OnSystemAVInfo is called after the frontend accepts new AV info. It
	// runs on the core's thread inside the environment call.
	OnSystemAVInfo func(info api.SystemAVInfo)

	Logger zerolog.Logger
}

// Bridge dispatches environment messages for one session. It is not safe for
// concurrent use; all dispatches must come from the thread that called into
// the core.
type Bridge struct {
	frontend      api.Frontend
	callbacks     *Callbacks
	trampolines   Trampolines
	routing       Routing
	notifyDefault time.Duration
	onAVInfo      func(api.SystemAVInfo)
	log           zerolog.Logger

	fps      float64
	fpsKnown bool

	supportsNoGame bool
	pixelFormat    api.PixelFormat

	systemDir    StringBuffer
	contentDir   StringBuffer
	saveDir      StringBuffer
	libretroPath StringBuffer
	variable     StringBuffer
	username     StringBuffer

	pinner runtime.Pinner
}

// New returns a bridge bound to cfg.Frontend. The string buffers are pinned
// until Close.
func New(cfg Config) *Bridge {
	b := &Bridge{
		frontend:      cfg.Frontend,
		callbacks:     cfg.Callbacks,
		trampolines:   cfg.Trampolines,
		routing:       cfg.Routing,
		notifyDefault: cfg.NotificationDuration,
		onAVInfo:      cfg.OnSystemAVInfo,
		log:           cfg.Logger.With().Str("component", "bridge").Logger(),
		pixelFormat:   api.PixelFormat0RGB1555,
	}
	if b.notifyDefault <= 0 {
		b.notifyDefault = DefaultNotificationDuration
	}
	if b.callbacks == nil {
		b.callbacks = &Callbacks{}
	}
	for _, buf := range []*StringBuffer{&b.systemDir, &b.contentDir, &b.saveDir, &b.libretroPath, &b.variable, &b.username} {
		b.pinner.Pin(&buf.data[0])
	}
	return b
}

// Close releases the pinned buffers. Pointers previously handed to the core
// must no longer be used.
func (b *Bridge) Close() {
	b.pinner.Unpin()
}

// Environment returns the bridge as a core environment callback.
func (b *Bridge) Environment() coreif.EnvironmentFunc {
	return func(cmd uint32, data unsafe.Pointer) bool {
		return b.Dispatch(Command(cmd), data)
	}
}

// SetFrameRate records the frame rate used to convert message durations.
func (b *Bridge) SetFrameRate(fps float64) {
	b.fps = fps
	b.fpsKnown = fps > 0
}

// FrameRate returns the last known frame rate.
func (b *Bridge) FrameRate() (float64, bool) {
	return b.fps, b.fpsKnown
}

// SupportsNoGame reports what the core declared with SET_SUPPORT_NO_GAME.
func (b *Bridge) SupportsNoGame() bool {
	return b.supportsNoGame
}

// PixelFormat returns the last pixel format the frontend accepted.
func (b *Bridge) PixelFormat() api.PixelFormat {
	return b.pixelFormat
}

// Callbacks returns the table core callbacks are stored in.
func (b *Bridge) Callbacks() *Callbacks {
	return b.callbacks
}

// Dispatch handles one environment message. data is only read and written
// for the duration of the call. It returns false when no frontend is bound,
// and for SET_PIXEL_FORMAT and SET_SYSTEM_AV_INFO when the payload is missing
// or the frontend rejects it. Everything else, including unknown commands,
// reports true.
func (b *Bridge) Dispatch(cmd Command, data unsafe.Pointer) bool {
	if b.frontend == nil {
		return false
	}

	switch cmd {
	case EnvSetRotation:
		if data != nil {
			b.frontend.SetRotation(api.Rotation(*(*uint32)(data)))
		}

	case EnvGetOverscan:
		if data != nil {
			*(*bool)(data) = b.frontend.Overscan()
		}

	case EnvGetCanDupe:
		if data != nil {
			*(*bool)(data) = b.frontend.CanDupe()
		}

	case EnvSetMessage:
		if data != nil {
			b.setMessage((*Message)(data))
		}

	case EnvShutdown:
		b.frontend.Shutdown()

	case EnvSetPerformanceLevel:
		if data != nil {
			b.frontend.SetPerformanceLevel(uint(*(*uint32)(data)))
		}

	case EnvGetSystemDirectory:
		b.returnString(data, &b.systemDir, b.frontend.SystemDirectory)

	case EnvGetLibretroPath:
		b.returnString(data, &b.libretroPath, b.frontend.LibretroPath)

	case EnvGetContentDirectory:
		if b.routing == RoutingDistinct {
			b.returnString(data, &b.contentDir, b.frontend.ContentDirectory)
		} else {
			b.returnString(data, &b.contentDir, b.frontend.LibretroPath)
		}

	case EnvGetSaveDirectory:
		if b.routing == RoutingDistinct {
			b.returnString(data, &b.saveDir, b.frontend.SaveDirectory)
		} else {
			b.returnString(data, &b.saveDir, b.frontend.LibretroPath)
		}

	case EnvGetUsername:
		b.returnString(data, &b.username, b.frontend.Username)

	case EnvSetPixelFormat:
		if data == nil {
			return false
		}
		format := api.PixelFormat(*(*int32)(data))
		if !b.frontend.SetPixelFormat(format) {
			b.log.Warn().Stringer("format", format).Msg("pixel format rejected")
			return false
		}
		b.pixelFormat = format

	case EnvSetInputDescriptors:
		if data != nil {
			b.setInputDescriptors((*InputDescriptor)(data))
		}

	case EnvSetKeyboardCallback:
		if data != nil {
			b.callbacks.KeyboardEvent = (*KeyboardCallback)(data).Callback
		}

	case EnvSetDiskControlInterface:
		if data != nil {
			dc := (*DiskControlCallback)(data)
			b.callbacks.DiskSetEjectState = dc.SetEjectState
			b.callbacks.DiskGetEjectState = dc.GetEjectState
			b.callbacks.DiskGetImageIndex = dc.GetImageIndex
			b.callbacks.DiskSetImageIndex = dc.SetImageIndex
			b.callbacks.DiskGetNumImages = dc.GetNumImages
			b.callbacks.DiskReplaceImageIndex = dc.ReplaceImageIndex
			b.callbacks.DiskAddImageIndex = dc.AddImageIndex
		}

	case EnvSetHWRender:
		if data != nil {
			b.setHWRender((*HWRenderCallback)(data))
		}

	case EnvGetVariable:
		if data != nil {
			b.getVariable((*Variable)(data))
		}

	case EnvSetVariables:
		if data != nil {
			b.setVariables((*Variable)(data))
		}

	case EnvGetVariableUpdate:
		if data != nil {
			*(*bool)(data) = b.frontend.VariablesUpdated()
		}

	case EnvSetSupportNoGame:
		if data != nil {
			b.supportsNoGame = *(*bool)(data)
			b.frontend.SetSupportNoGame(b.supportsNoGame)
		}

	case EnvSetAudioCallback:
		if data != nil {
			ac := (*AudioCallback)(data)
			b.callbacks.Audio = ac.Callback
			b.callbacks.AudioSetState = ac.SetState
		}

	case EnvSetFrameTimeCallback:
		if data != nil {
			ft := (*FrameTimeCallback)(data)
			b.callbacks.FrameTime = ft.Callback
			if timer, ok := b.frontend.(api.FrameTimer); ok {
				timer.SetFrameTimeReference(time.Duration(ft.Reference) * time.Microsecond)
			}
		}

	case EnvGetRumbleInterface:
		if data != nil {
			assign(&(*RumbleInterface)(data).SetRumbleState, b.trampolines.RumbleSetState)
		}

	case EnvGetInputDeviceCapabilities:
		if data != nil {
			*(*uint64)(data) = b.frontend.InputDeviceCapabilities()
		}

	case EnvGetSensorInterface:
		if data != nil {
			si := (*SensorInterface)(data)
			assign(&si.SetSensorState, b.trampolines.SensorSetState)
			assign(&si.GetSensorInput, b.trampolines.SensorGetInput)
		}

	case EnvGetCameraInterface:
		if data != nil {
			b.setCamera((*CameraCallback)(data))
		}

	case EnvGetLogInterface:
		if data != nil {
			assign(&(*LogCallback)(data).Log, b.trampolines.Log)
		}

	case EnvGetPerfInterface:
		if data != nil {
			pc := (*PerfCallback)(data)
			assign(&pc.GetTimeUsec, b.trampolines.PerfGetTimeUsec)
			assign(&pc.GetCPUFeatures, b.trampolines.PerfGetCPUFeatures)
			assign(&pc.GetPerfCounter, b.trampolines.PerfGetCounter)
			assign(&pc.PerfRegister, b.trampolines.PerfRegister)
			assign(&pc.PerfStart, b.trampolines.PerfStart)
			assign(&pc.PerfStop, b.trampolines.PerfStop)
			assign(&pc.PerfLog, b.trampolines.PerfLog)
		}

	case EnvGetLocationInterface:
		if data != nil {
			lc := (*LocationCallback)(data)
			assign(&lc.Start, b.trampolines.LocationStart)
			assign(&lc.Stop, b.trampolines.LocationStop)
			assign(&lc.GetPosition, b.trampolines.LocationGetPosition)
			assign(&lc.SetInterval, b.trampolines.LocationSetInterval)
			b.callbacks.LocationInitialized = lc.Initialized
			b.callbacks.LocationDeinitialized = lc.Deinitialized
		}

	case EnvSetGeometry:
		if data != nil {
			b.frontend.SetGeometry(translateGeometry(*(*GameGeometry)(data)))
		}

	case EnvSetSystemAVInfo:
		if data == nil {
			return false
		}
		return b.setSystemAVInfo((*SystemAVInfo)(data))

	default:
		b.log.Debug().Uint32("cmd", uint32(cmd)).Msg("unhandled environment command")
	}

	return true
}

func (b *Bridge) setMessage(m *Message) {
	if m.Msg == nil {
		return
	}
	d := b.notifyDefault
	if b.fpsKnown {
		d = time.Duration(1000*float64(m.Frames)/b.fps) * time.Millisecond
	}
	b.frontend.Notify(GoString(m.Msg), d)
}

// returnString writes a pointer to buf, filled from get, into the char**
// payload, or nil when the frontend has no value.
func (b *Bridge) returnString(data unsafe.Pointer, buf *StringBuffer, get func() (string, bool)) {
	if data == nil {
		return
	}
	out := (**byte)(data)
	s, ok := get()
	if !ok {
		*out = nil
		return
	}
	if len(s) >= StringBufferSize {
		b.log.Warn().Int("length", len(s)).Msg("string truncated")
	}
	*out = buf.Set(s)
}

func (b *Bridge) setInputDescriptors(first *InputDescriptor) {
	count := 0
	for elementAt(first, count).Description != nil {
		count++
	}
	if count == 0 {
		return
	}

	descs := make([]api.InputDescriptor, count)
	for i := range descs {
		d := elementAt(first, i)
		descs[i] = api.InputDescriptor{
			Port:        uint(d.Port),
			Device:      uint(d.Device),
			Index:       uint(d.Index),
			ID:          uint(d.ID),
			Description: GoString(d.Description),
		}
	}
	b.frontend.SetInputDescriptors(descs)
}

func (b *Bridge) getVariable(v *Variable) {
	if v.Key == nil {
		return
	}
	value, ok := b.frontend.Variable(GoString(v.Key))
	if !ok {
		v.Value = nil
		return
	}
	v.Value = b.variable.Set(value)
}

func (b *Bridge) setVariables(first *Variable) {
	count := 0
	for {
		v := elementAt(first, count)
		if v.Key == nil || v.Value == nil {
			break
		}
		count++
	}
	if count == 0 {
		return
	}

	vars := make([]api.Variable, count)
	for i := range vars {
		v := elementAt(first, i)
		vars[i] = api.Variable{Key: GoString(v.Key), Value: GoString(v.Value)}
	}
	b.frontend.SetVariables(vars)
}

func (b *Bridge) setHWRender(hw *HWRenderCallback) {
	if renderer, ok := b.frontend.(api.HardwareRenderer); ok {
		renderer.SetHWInfo(api.HWInfo{
			ContextType:      api.HWContextType(hw.ContextType),
			Depth:            hw.Depth,
			Stencil:          hw.Stencil,
			BottomLeftOrigin: hw.BottomLeftOrigin,
			VersionMajor:     uint(hw.VersionMajor),
			VersionMinor:     uint(hw.VersionMinor),
			CacheContext:     hw.CacheContext,
			DebugContext:     hw.DebugContext,
		})
	}

	b.callbacks.HWContextReset = hw.ContextReset
	b.callbacks.HWContextDestroy = hw.ContextDestroy

	assign(&hw.GetCurrentFramebuffer, b.trampolines.HWGetCurrentFramebuffer)
	assign(&hw.GetProcAddress, b.trampolines.HWGetProcAddress)
}

func (b *Bridge) setCamera(cam *CameraCallback) {
	if driver, ok := b.frontend.(api.CameraDriver); ok {
		driver.SetCameraInfo(api.CameraInfo{
			Caps:   cam.Caps,
			Width:  uint(cam.Width),
			Height: uint(cam.Height),
		})
	}

	b.callbacks.CameraFrameRawFramebuffer = cam.FrameRawFramebuffer
	b.callbacks.CameraFrameOpenGLTexture = cam.FrameOpenGLTexture
	b.callbacks.CameraInitialized = cam.Initialized
	b.callbacks.CameraDeinitialized = cam.Deinitialized

	assign(&cam.Start, b.trampolines.CameraStart)
	assign(&cam.Stop, b.trampolines.CameraStop)
}

func (b *Bridge) setSystemAVInfo(info *SystemAVInfo) bool {
	translated := info.API()
	if !b.frontend.SetSystemAVInfo(translated) {
		b.log.Warn().Float64("fps", translated.Timing.FPS).Msg("av info rejected")
		return false
	}

	b.SetFrameRate(translated.Timing.FPS)
	if b.onAVInfo != nil {
		b.onAVInfo(translated)
	}
	return true
}

// API converts the C layout into the frontend type.
func (i *SystemAVInfo) API() api.SystemAVInfo {
	return api.SystemAVInfo{
		Geometry: translateGeometry(i.Geometry),
		Timing: api.Timing{
			FPS:        i.Timing.FPS,
			SampleRate: i.Timing.SampleRate,
		},
	}
}

func translateGeometry(g GameGeometry) api.Geometry {
	return api.Geometry{
		BaseWidth:   uint(g.BaseWidth),
		BaseHeight:  uint(g.BaseHeight),
		MaxWidth:    uint(g.MaxWidth),
		MaxHeight:   uint(g.MaxHeight),
		AspectRatio: g.AspectRatio,
	}
}
