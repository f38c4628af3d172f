package api

import "time"

// Frontend is the host side of the bridge. Every core negotiation message
// that needs a host decision is forwarded to one of these methods.
//
// String results are copied by the bridge into storage it owns before the
// pointer is handed to the core, so implementations may return transient
// values.
type Frontend interface {
	// SetRotation applies a screen rotation.
	SetRotation(r Rotation)

	// Overscan reports whether the core should render overscan.
	Overscan() bool

	// CanDupe reports whether the frontend accepts repeated frames.
	CanDupe() bool

	// Notify shows a user-facing message for the given duration.
	Notify(msg string, d time.Duration)

	// Shutdown is called when the core requests the frontend to stop.
	Shutdown()

	// SetPerformanceLevel records how demanding the core is.
	SetPerformanceLevel(level uint)

	// SystemDirectory returns the BIOS/system directory.
	SystemDirectory() (string, bool)

	// ContentDirectory returns the core's asset directory.
	ContentDirectory() (string, bool)

	// SaveDirectory returns the directory for save files.
	SaveDirectory() (string, bool)

	// LibretroPath returns the path of the loaded core binary.
	LibretroPath() (string, bool)

	// SetPixelFormat returns false if the format is not supported.
	SetPixelFormat(f PixelFormat) bool

	// SetInputDescriptors receives the translated descriptors. The slice is
	// only valid for the duration of the call.
	SetInputDescriptors(descs []InputDescriptor)

	// Variable returns the current value of a core option.
	Variable(key string) (string, bool)

	// SetVariables receives the options a core declares. The slice is only
	// valid for the duration of the call.
	SetVariables(vars []Variable)

	// VariablesUpdated reports whether any option changed since the last
	// call.
	VariablesUpdated() bool

	// SetSupportNoGame records whether the core runs without content.
	SetSupportNoGame(supported bool)

	// SetSystemAVInfo applies new geometry and timing. Returning false
	// rejects the change.
	SetSystemAVInfo(info SystemAVInfo) bool

	// SetGeometry applies a geometry change that keeps timing intact.
	SetGeometry(g Geometry)

	// InputDeviceCapabilities returns a bitmask of supported device types.
	InputDeviceCapabilities() uint64

	// Username returns the player name.
	Username() (string, bool)
}

// HardwareRenderer is implemented by frontends that can host a hardware
// rendering context.
type HardwareRenderer interface {
	SetHWInfo(info HWInfo)
	CurrentFramebuffer() uintptr
	ProcAddress(sym string) uintptr
}

// Rumbler is implemented by frontends with force feedback.
type Rumbler interface {
	SetRumbleState(port uint, effect RumbleEffect, strength uint16) bool
}

// SensorReader is implemented by frontends with motion sensors.
type SensorReader interface {
	SetSensorState(port uint, action SensorAction, rate uint) bool
	SensorInput(port uint, id uint) float32
}

// CameraDriver is implemented by frontends with camera access.
type CameraDriver interface {
	SetCameraInfo(info CameraInfo)
	StartCamera() bool
	StopCamera()
}

// LocationDriver is implemented by frontends with location services.
type LocationDriver interface {
	StartLocation() bool
	StopLocation()
	Position() (Position, bool)
	SetLocationInterval(interval time.Duration, distance uint)
}

// FrameTimer is implemented by frontends that pace cores using the frame
// time callback.
type FrameTimer interface {
	// SetFrameTimeReference receives the ideal frame duration.
	SetFrameTimeReference(reference time.Duration)
}
