package api

import "fmt"

// Version is the version of the frontend API exposed to cores through the
// bridge. It changes independently of the core ABI version.
const Version = "1.0.0"

// Rotation is a counter-clockwise screen rotation in 90 degree steps.
type Rotation uint

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Degrees returns the rotation angle. Values outside 0-3 wrap.
func (r Rotation) Degrees() int {
	return int(r%4) * 90
}

// PixelFormat is the framebuffer layout a core renders in.
type PixelFormat int

const (
	PixelFormat0RGB1555 PixelFormat = iota
	PixelFormatXRGB8888
	PixelFormatRGB565
)

// String returns the name used in log output.
func (p PixelFormat) String() string {
	switch p {
	case PixelFormat0RGB1555:
		return "0RGB1555"
	case PixelFormatXRGB8888:
		return "XRGB8888"
	case PixelFormatRGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

// BytesPerPixel returns the storage size of a single pixel, or 0 for an
// unknown format.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormat0RGB1555, PixelFormatRGB565:
		return 2
	case PixelFormatXRGB8888:
		return 4
	default:
		return 0
	}
}

// Geometry describes the video output dimensions of a core.
type Geometry struct {
	BaseWidth   uint
	BaseHeight  uint
	MaxWidth    uint
	MaxHeight   uint
	AspectRatio float32
}

// DisplayAspectRatio returns the aspect ratio to present the frame at.
// A non-positive AspectRatio means width/height of the base geometry.
func (g Geometry) DisplayAspectRatio() float64 {
	if g.AspectRatio > 0 {
		return float64(g.AspectRatio)
	}
	if g.BaseHeight == 0 {
		return 0
	}
	return float64(g.BaseWidth) / float64(g.BaseHeight)
}

// SystemAVInfo pairs the geometry and timing a core reports after loading
// content.
type SystemAVInfo struct {
	Geometry Geometry
	Timing   Timing
}

// InputDescriptor names a single input a core exposes.
type InputDescriptor struct {
	Port        uint
	Device      uint
	Index       uint
	ID          uint
	Description string
}

// Variable is a core configuration key and its value. When declared by a
// core the value has the form "Description; option1|option2".
type Variable struct {
	Key   string
	Value string
}

// HWContextType is the graphics API a core asks the frontend to create.
type HWContextType int

const (
	HWContextNone HWContextType = iota
	HWContextOpenGL
	HWContextOpenGLES2
	HWContextOpenGLCore
	HWContextOpenGLES3
	HWContextOpenGLESVersion
	HWContextVulkan
)

var hwContextNames = map[HWContextType]string{
	HWContextNone:            "none",
	HWContextOpenGL:          "opengl",
	HWContextOpenGLES2:       "opengles2",
	HWContextOpenGLCore:      "opengl-core",
	HWContextOpenGLES3:       "opengles3",
	HWContextOpenGLESVersion: "opengles-version",
	HWContextVulkan:          "vulkan",
}

// String returns the context name.
func (c HWContextType) String() string {
	if name, ok := hwContextNames[c]; ok {
		return name
	}
	return "unknown"
}

// HWInfo describes a hardware rendering context requested by a core.
type HWInfo struct {
	ContextType      HWContextType
	Depth            bool
	Stencil          bool
	BottomLeftOrigin bool
	VersionMajor     uint
	VersionMinor     uint
	CacheContext     bool
	DebugContext     bool
}

// CameraBuffer flags advertise which frame delivery paths a core supports.
const (
	CameraBufferOpenGLTexture uint64 = 1 << iota
	CameraBufferRawFramebuffer
)

// CameraInfo describes the camera stream a core wants.
type CameraInfo struct {
	Caps   uint64
	Width  uint
	Height uint
}

// RumbleEffect selects one of the two rumble motors.
type RumbleEffect int

const (
	RumbleStrong RumbleEffect = iota
	RumbleWeak
)

// SensorAction enables or disables a sensor.
type SensorAction int

const (
	SensorAccelerometerEnable SensorAction = iota
	SensorAccelerometerDisable
)

// Accelerometer axes for SensorReader.SensorInput.
const (
	SensorAccelerometerX uint = iota
	SensorAccelerometerY
	SensorAccelerometerZ
)

// Position is a location fix.
type Position struct {
	Latitude           float64
	Longitude          float64
	HorizontalAccuracy float64
	VerticalAccuracy   float64
}
