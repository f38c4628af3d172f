package libretro

import "unsafe"

// Command is an environment message tag.
type Command uint32

// Experimental marks environment commands whose payload may still change.
const Experimental Command = 0x10000

// Environment commands handled by the bridge.
const (
	EnvSetRotation                Command = 1
	EnvGetOverscan                Command = 2
	EnvGetCanDupe                 Command = 3
	EnvSetMessage                 Command = 6
	EnvShutdown                   Command = 7
	EnvSetPerformanceLevel        Command = 8
	EnvGetSystemDirectory         Command = 9
	EnvSetPixelFormat             Command = 10
	EnvSetInputDescriptors        Command = 11
	EnvSetKeyboardCallback        Command = 12
	EnvSetDiskControlInterface    Command = 13
	EnvSetHWRender                Command = 14
	EnvGetVariable                Command = 15
	EnvSetVariables               Command = 16
	EnvGetVariableUpdate          Command = 17
	EnvSetSupportNoGame           Command = 18
	EnvGetLibretroPath            Command = 19
	EnvSetFrameTimeCallback       Command = 21
	EnvSetAudioCallback           Command = 22
	EnvGetRumbleInterface         Command = 23
	EnvGetInputDeviceCapabilities Command = 24
	EnvGetSensorInterface         Command = 25 | Experimental
	EnvGetCameraInterface         Command = 26 | Experimental
	EnvGetLogInterface            Command = 27
	EnvGetPerfInterface           Command = 28
	EnvGetLocationInterface       Command = 29
	EnvGetContentDirectory        Command = 30
	EnvGetSaveDirectory           Command = 31
	EnvSetSystemAVInfo            Command = 32
	EnvSetGeometry                Command = 37
	EnvGetUsername                Command = 38
)

var commandNames = map[Command]string{
	EnvSetRotation:                "SET_ROTATION",
	EnvGetOverscan:                "GET_OVERSCAN",
	EnvGetCanDupe:                 "GET_CAN_DUPE",
	EnvSetMessage:                 "SET_MESSAGE",
	EnvShutdown:                   "SHUTDOWN",
	EnvSetPerformanceLevel:        "SET_PERFORMANCE_LEVEL",
	EnvGetSystemDirectory:         "GET_SYSTEM_DIRECTORY",
	EnvSetPixelFormat:             "SET_PIXEL_FORMAT",
	EnvSetInputDescriptors:        "SET_INPUT_DESCRIPTORS",
	EnvSetKeyboardCallback:        "SET_KEYBOARD_CALLBACK",
	EnvSetDiskControlInterface:    "SET_DISK_CONTROL_INTERFACE",
	EnvSetHWRender:                "SET_HW_RENDER",
	EnvGetVariable:                "GET_VARIABLE",
	EnvSetVariables:               "SET_VARIABLES",
	EnvGetVariableUpdate:          "GET_VARIABLE_UPDATE",
	EnvSetSupportNoGame:           "SET_SUPPORT_NO_GAME",
	EnvGetLibretroPath:            "GET_LIBRETRO_PATH",
	EnvSetFrameTimeCallback:       "SET_FRAME_TIME_CALLBACK",
	EnvSetAudioCallback:           "SET_AUDIO_CALLBACK",
	EnvGetRumbleInterface:         "GET_RUMBLE_INTERFACE",
	EnvGetInputDeviceCapabilities: "GET_INPUT_DEVICE_CAPABILITIES",
	EnvGetSensorInterface:         "GET_SENSOR_INTERFACE",
	EnvGetCameraInterface:         "GET_CAMERA_INTERFACE",
	EnvGetLogInterface:            "GET_LOG_INTERFACE",
	EnvGetPerfInterface:           "GET_PERF_INTERFACE",
	EnvGetLocationInterface:       "GET_LOCATION_INTERFACE",
	EnvGetContentDirectory:        "GET_CONTENT_DIRECTORY",
	EnvGetSaveDirectory:           "GET_SAVE_DIRECTORY",
	EnvSetSystemAVInfo:            "SET_SYSTEM_AV_INFO",
	EnvSetGeometry:                "SET_GEOMETRY",
	EnvGetUsername:                "GET_USERNAME",
}

// String returns the libretro name of the command without its prefix.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// LogLevel is a core log severity.
type LogLevel int32

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// The types below mirror the C structs of libretro.h field for field so a
// payload pointer received from a core can be read in place.

// Message mirrors struct retro_message.
type Message struct {
	Msg    *byte
	Frames uint32
}

// InputDescriptor mirrors struct retro_input_descriptor. Arrays end with an
// entry whose Description is nil.
type InputDescriptor struct {
	Port        uint32
	Device      uint32
	Index       uint32
	ID          uint32
	Description *byte
}

// Variable mirrors struct retro_variable. Arrays end with an entry whose Key
// is nil.
type Variable struct {
	Key   *byte
	Value *byte
}

// KeyboardCallback mirrors struct retro_keyboard_callback.
type KeyboardCallback struct {
	Callback uintptr
}

// DiskControlCallback mirrors struct retro_disk_control_callback.
type DiskControlCallback struct {
	SetEjectState     uintptr
	GetEjectState     uintptr
	GetImageIndex     uintptr
	SetImageIndex     uintptr
	GetNumImages      uintptr
	ReplaceImageIndex uintptr
	AddImageIndex     uintptr
}

// HWRenderCallback mirrors struct retro_hw_render_callback.
type HWRenderCallback struct {
	ContextType           int32
	ContextReset          uintptr
	GetCurrentFramebuffer uintptr
	GetProcAddress        uintptr
	Depth                 bool
	Stencil               bool
	BottomLeftOrigin      bool
	VersionMajor          uint32
	VersionMinor          uint32
	CacheContext          bool
	ContextDestroy        uintptr
	DebugContext          bool
}

// AudioCallback mirrors struct retro_audio_callback.
type AudioCallback struct {
	Callback uintptr
	SetState uintptr
}

// FrameTimeCallback mirrors struct retro_frame_time_callback. Reference is
// the ideal frame time in microseconds.
type FrameTimeCallback struct {
	Callback  uintptr
	Reference int64
}

// RumbleInterface mirrors struct retro_rumble_interface.
type RumbleInterface struct {
	SetRumbleState uintptr
}

// SensorInterface mirrors struct retro_sensor_interface.
type SensorInterface struct {
	SetSensorState uintptr
	GetSensorInput uintptr
}

// CameraCallback mirrors struct retro_camera_callback.
type CameraCallback struct {
	Caps                uint64
	Width               uint32
	Height              uint32
	Start               uintptr
	Stop                uintptr
	FrameRawFramebuffer uintptr
	FrameOpenGLTexture  uintptr
	Initialized         uintptr
	Deinitialized       uintptr
}

// LogCallback mirrors struct retro_log_callback.
type LogCallback struct {
	Log uintptr
}

// PerfCallback mirrors struct retro_perf_callback.
type PerfCallback struct {
	GetTimeUsec    uintptr
	GetCPUFeatures uintptr
	GetPerfCounter uintptr
	PerfRegister   uintptr
	PerfStart      uintptr
	PerfStop       uintptr
	PerfLog        uintptr
}

// PerfCounter mirrors struct retro_perf_counter.
type PerfCounter struct {
	Ident      *byte
	Start      uint64
	Total      uint64
	CallCount  uint64
	Registered bool
}

// LocationCallback mirrors struct retro_location_callback.
type LocationCallback struct {
	Start         uintptr
	Stop          uintptr
	GetPosition   uintptr
	SetInterval   uintptr
	Initialized   uintptr
	Deinitialized uintptr
}

// GameGeometry mirrors struct retro_game_geometry.
type GameGeometry struct {
	BaseWidth   uint32
	BaseHeight  uint32
	MaxWidth    uint32
	MaxHeight   uint32
	AspectRatio float32
}

// SystemTiming mirrors struct retro_system_timing.
type SystemTiming struct {
	FPS        float64
	SampleRate float64
}

// SystemAVInfo mirrors struct retro_system_av_info.
type SystemAVInfo struct {
	Geometry GameGeometry
	Timing   SystemTiming
}

// SystemInfo mirrors struct retro_system_info.
type SystemInfo struct {
	LibraryName     *byte
	LibraryVersion  *byte
	ValidExtensions *byte
	NeedFullpath    bool
	BlockExtract    bool
}

// GameInfo mirrors struct retro_game_info.
type GameInfo struct {
	Path *byte
	Data unsafe.Pointer
	Size uintptr
	Meta *byte
}

// elementAt returns a pointer to the i-th element of a C array starting at
// base.
func elementAt[T any](base *T, i int) *T {
	var zero T
	return (*T)(unsafe.Add(unsafe.Pointer(base), uintptr(i)*unsafe.Sizeof(zero)))
}
