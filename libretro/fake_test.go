package libretro

import (
	"time"

	"github.com/pixl-project/retroplayer/api"
)

// fakeFrontend records what the bridge forwards.
type fakeFrontend struct {
	calls int

	rotation     api.Rotation
	overscan     bool
	canDupe      bool
	notified     string
	notifyFor    time.Duration
	shutdown     bool
	perfLevel    uint
	dirs         map[string]string
	pixelFormat  api.PixelFormat
	rejectFormat bool
	descriptors  []api.InputDescriptor
	values       map[string]string
	variables    []api.Variable
	updated      bool
	noGame       bool
	avInfo       api.SystemAVInfo
	rejectAV     bool
	geometry     api.Geometry
	capabilities uint64
}

func newFakeFrontend() *fakeFrontend {
	return &fakeFrontend{
		dirs:   map[string]string{},
		values: map[string]string{},
	}
}

func (f *fakeFrontend) SetRotation(r api.Rotation) { f.calls++; f.rotation = r }
func (f *fakeFrontend) Overscan() bool             { f.calls++; return f.overscan }
func (f *fakeFrontend) CanDupe() bool              { f.calls++; return f.canDupe }
func (f *fakeFrontend) Shutdown()                  { f.calls++; f.shutdown = true }

func (f *fakeFrontend) Notify(msg string, d time.Duration) {
	f.calls++
	f.notified = msg
	f.notifyFor = d
}

func (f *fakeFrontend) SetPerformanceLevel(level uint) { f.calls++; f.perfLevel = level }

func (f *fakeFrontend) dir(name string) (string, bool) {
	f.calls++
	s, ok := f.dirs[name]
	return s, ok
}

func (f *fakeFrontend) SystemDirectory() (string, bool)  { return f.dir("system") }
func (f *fakeFrontend) ContentDirectory() (string, bool) { return f.dir("content") }
func (f *fakeFrontend) SaveDirectory() (string, bool)    { return f.dir("save") }
func (f *fakeFrontend) LibretroPath() (string, bool)     { return f.dir("libretro") }
func (f *fakeFrontend) Username() (string, bool)         { return f.dir("username") }

func (f *fakeFrontend) SetPixelFormat(p api.PixelFormat) bool {
	f.calls++
	if f.rejectFormat {
		return false
	}
	f.pixelFormat = p
	return true
}

func (f *fakeFrontend) SetInputDescriptors(descs []api.InputDescriptor) {
	f.calls++
	f.descriptors = append([]api.InputDescriptor(nil), descs...)
}

func (f *fakeFrontend) Variable(key string) (string, bool) {
	f.calls++
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeFrontend) SetVariables(vars []api.Variable) {
	f.calls++
	f.variables = append([]api.Variable(nil), vars...)
}

func (f *fakeFrontend) VariablesUpdated() bool     { f.calls++; return f.updated }
func (f *fakeFrontend) SetSupportNoGame(b bool)    { f.calls++; f.noGame = b }
func (f *fakeFrontend) SetGeometry(g api.Geometry) { f.calls++; f.geometry = g }
func (f *fakeFrontend) InputDeviceCapabilities() uint64 {
	f.calls++
	return f.capabilities
}

func (f *fakeFrontend) SetSystemAVInfo(info api.SystemAVInfo) bool {
	f.calls++
	if f.rejectAV {
		return false
	}
	f.avInfo = info
	return true
}

// fullFrontend adds every optional capability.
type fullFrontend struct {
	*fakeFrontend

	hwInfo     api.HWInfo
	camera     api.CameraInfo
	frameTime  time.Duration
	rumble     uint16
	sensorRate uint
	started    bool
	interval   time.Duration
}

func (f *fullFrontend) SetHWInfo(info api.HWInfo)      { f.calls++; f.hwInfo = info }
func (f *fullFrontend) CurrentFramebuffer() uintptr    { return 7 }
func (f *fullFrontend) ProcAddress(sym string) uintptr { return uintptr(len(sym)) }
func (f *fullFrontend) SetCameraInfo(info api.CameraInfo) {
	f.calls++
	f.camera = info
}
func (f *fullFrontend) StartCamera() bool { f.started = true; return true }
func (f *fullFrontend) StopCamera()       { f.started = false }

func (f *fullFrontend) SetFrameTimeReference(d time.Duration) { f.calls++; f.frameTime = d }

func (f *fullFrontend) SetRumbleState(port uint, effect api.RumbleEffect, strength uint16) bool {
	f.rumble = strength
	return true
}

func (f *fullFrontend) SetSensorState(port uint, action api.SensorAction, rate uint) bool {
	f.sensorRate = rate
	return true
}

func (f *fullFrontend) SensorInput(port, id uint) float32 { return float32(id) + 0.5 }

func (f *fullFrontend) StartLocation() bool { return true }
func (f *fullFrontend) StopLocation()       {}
func (f *fullFrontend) Position() (api.Position, bool) {
	return api.Position{Latitude: 1, Longitude: 2}, true
}
func (f *fullFrontend) SetLocationInterval(interval time.Duration, distance uint) {
	f.interval = interval
}
