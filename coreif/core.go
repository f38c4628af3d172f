// Package coreif describes a loaded libretro core as a capability-based
// interface. A platform specific Loader produces Core values; everything
// above this package only sees the entry point set defined here.
package coreif

import (
	"unsafe"

	"github.com/pixl-project/retroplayer/api"
)

// APIVersion is the libretro ABI version this frontend speaks.
const APIVersion = 1

// EnvironmentFunc receives environment messages from a core. data is only
// valid for the duration of the call.
type EnvironmentFunc func(cmd uint32, data unsafe.Pointer) bool

// InputStateFunc answers input queries issued by a core while it runs a frame.
type InputStateFunc func(port, device, index, id uint) int16

// SystemInfo is what a core reports about itself.
type SystemInfo struct {
	Name           string
	Version        string
	Extensions     ExtensionSet
	SupportsVFS    bool
	SupportsNoGame bool
	NeedFullPath   bool
}

// GameInfo identifies the content passed to LoadGame.
type GameInfo struct {
	Path string
	Data []byte
}

// Core is the entry point set of a loaded core. Every method maps to a single
// foreign call and reports a non-success result as an error, usually a
// *CallError.
type Core interface {
	// APIVersion returns the ABI version the core was built against.
	APIVersion() uint

	// SystemInfo returns the core's self-reported identity.
	SystemInfo() (SystemInfo, error)

	// SetEnvironment installs the environment callback. It is called once,
	// before Init.
	SetEnvironment(fn EnvironmentFunc)

	// SetInputState installs the input query callback.
	SetInputState(fn InputStateFunc)

	Init() error
	Deinit() error

	LoadGame(game GameInfo) error
	UnloadGame() error

	// Run advances emulation by one frame.
	Run() error
	Reset() error

	SystemAVInfo() (api.SystemAVInfo, error)
	Region() (api.Region, error)

	// SerializeSize returns 0 if the core cannot serialize.
	SerializeSize() (int, error)
	Serialize(dst []byte) error
	Unserialize(src []byte) error

	SetControllerPortDevice(port uint, device Device) error

	// Close unloads the core binary. The Core must not be used afterwards.
	Close() error
}

// Invoker is implemented by cores that can call back into function pointers
// the core registered during environment negotiation.
type Invoker interface {
	Invoke(fn uintptr, args ...uintptr) (uintptr, error)
}

// Loader opens a core binary.
type Loader interface {
	Load(path string) (Core, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Core, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (Core, error) {
	return f(path)
}
