// Package dynlib loads libretro cores from shared libraries without cgo.
//
// Every loaded core owns one slot of C-callable trampolines for the core
// callbacks and the service interfaces. Trampolines are created once per slot
// and reused, so the number of cores open at the same time is bounded by
// MaxOpen.
package dynlib

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
)

// MaxOpen is the number of cores that can be loaded at the same time.
const MaxOpen = 16

var (
	ErrUnsupportedPlatform = errors.New("dynamic core loading is not supported on this platform")
	ErrTooManyCores        = fmt.Errorf("more than %d cores loaded", MaxOpen)
	ErrClosed              = errors.New("core is closed")
)

// VideoFunc receives each frame a core presents. data is nil for a repeated
// frame and is only valid for the duration of the call.
type VideoFunc func(data unsafe.Pointer, width, height uint, pitch uintptr)

// AudioFunc receives interleaved stereo samples. The slice is only valid for
// the duration of the call.
type AudioFunc func(samples []int16)

// Options configures a Loader.
type Options struct {
	// Fs is used to read content for cores that want it in memory.
	// Defaults to the OS filesystem.
	Fs afero.Fs

	Video VideoFunc
	Audio AudioFunc

	Logger zerolog.Logger
}

// Stats counts what a core produced.
type Stats struct {
	Frames      uint64
	DupedFrames uint64
	AudioFrames uint64
	InputPolls  uint64
}

// StatsReporter is implemented by cores returned from a Loader.
type StatsReporter interface {
	Stats() Stats
}

// Loader opens core binaries. It implements coreif.Loader.
type Loader struct {
	fs    afero.Fs
	video VideoFunc
	audio AudioFunc
	log   zerolog.Logger
}

// NewLoader returns a Loader configured by opts.
func NewLoader(opts Options) *Loader {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{
		fs:    fs,
		video: opts.Video,
		audio: opts.Audio,
		log:   opts.Logger.With().Str("component", "dynlib").Logger(),
	}
}

// Load opens the core at path.
func (l *Loader) Load(path string) (coreif.Core, error) {
	core, err := l.open(path)
	if err != nil {
		return nil, err
	}
	return core, nil
}

// envGetVFSInterface is RETRO_ENVIRONMENT_GET_VFS_INTERFACE without the
// experimental bit. A core asking for it reads content through the frontend.
const envGetVFSInterface = 45

// Describe loads the core at path just long enough to build a descriptor from
// what it reports. The core is not initialized.
func (l *Loader) Describe(path string) (coreif.Descriptor, error) {
	core, err := l.Load(path)
	if err != nil {
		return coreif.Descriptor{}, err
	}
	defer core.Close()

	if v := core.APIVersion(); v != coreif.APIVersion {
		return coreif.Descriptor{}, fmt.Errorf("core %s uses API version %d, want %d", path, v, coreif.APIVersion)
	}

	noGame := false
	core.SetEnvironment(func(cmd uint32, data unsafe.Pointer) bool {
		if libretro.Command(cmd) == libretro.EnvSetSupportNoGame && data != nil {
			noGame = *(*bool)(data)
			return true
		}
		return false
	})

	info, err := core.SystemInfo()
	if err != nil {
		return coreif.Descriptor{}, err
	}
	return coreif.Descriptor{
		ID:             IDFromPath(path),
		Name:           info.Name,
		Version:        info.Version,
		Path:           path,
		Extensions:     info.Extensions,
		SupportsVFS:    info.SupportsVFS,
		SupportsNoGame: info.SupportsNoGame || noGame,
	}, nil
}

// IDFromPath derives a core id from its file name:
// /cores/snes9x_libretro.so becomes game.libretro.snes9x.
func IDFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimSuffix(name, "_libretro")
	name = strings.TrimPrefix(name, "lib")
	return "game.libretro." + strings.ToLower(name)
}
