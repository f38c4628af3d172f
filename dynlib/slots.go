//go:build darwin || linux || freebsd

package dynlib

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/libretro"
)

// slot is a fixed set of trampolines. purego never frees a callback, so
// slots are built on first use and handed from core to core.
type slot struct {
	index int

	owner    atomic.Pointer[Core]
	services atomic.Pointer[libretro.Services]

	built sync.Once

	environment      uintptr
	videoRefresh     uintptr
	audioSample      uintptr
	audioSampleBatch uintptr
	inputPoll        uintptr
	inputState       uintptr

	trampolines libretro.Trampolines
}

var (
	slotsMu sync.Mutex
	slots   [MaxOpen]slot
	inUse   [MaxOpen]bool
)

func acquire(c *Core) (*slot, error) {
	slotsMu.Lock()
	defer slotsMu.Unlock()
	for i := range slots {
		if inUse[i] {
			continue
		}
		s := &slots[i]
		s.index = i
		s.built.Do(s.build)
		s.services.Store(nil)
		s.owner.Store(c)
		inUse[i] = true
		return s, nil
	}
	return nil, ErrTooManyCores
}

func release(s *slot) {
	if s == nil {
		return
	}
	slotsMu.Lock()
	defer slotsMu.Unlock()
	s.owner.Store(nil)
	s.services.Store(nil)
	inUse[s.index] = false
}

// recover logs a panic raised while serving a callback. Unwinding through
// foreign frames is not possible.
func (s *slot) recover(name string) {
	if r := recover(); r != nil {
		if c := s.owner.Load(); c != nil {
			c.log.Error().Interface("panic", r).Str("callback", name).Msg("recovered panic in core callback")
		}
	}
}

func (s *slot) build() {
	s.environment = purego.NewCallback(func(cmd uint32, data unsafe.Pointer) bool {
		defer s.recover("environment")
		if c := s.owner.Load(); c != nil {
			return c.onEnvironment(cmd, data)
		}
		return false
	})
	s.videoRefresh = purego.NewCallback(func(data unsafe.Pointer, width, height uint32, pitch uintptr) {
		defer s.recover("video_refresh")
		if c := s.owner.Load(); c != nil {
			c.onVideoRefresh(data, width, height, pitch)
		}
	})
	s.audioSample = purego.NewCallback(func(left, right int16) {
		defer s.recover("audio_sample")
		if c := s.owner.Load(); c != nil {
			c.onAudioSample(left, right)
		}
	})
	s.audioSampleBatch = purego.NewCallback(func(data unsafe.Pointer, frames uintptr) uintptr {
		defer s.recover("audio_sample_batch")
		if c := s.owner.Load(); c != nil {
			return c.onAudioSampleBatch(data, frames)
		}
		return frames
	})
	s.inputPoll = purego.NewCallback(func() {
		defer s.recover("input_poll")
		if c := s.owner.Load(); c != nil {
			c.onInputPoll()
		}
	})
	s.inputState = purego.NewCallback(func(port, device, index, id uint32) int16 {
		defer s.recover("input_state")
		if c := s.owner.Load(); c != nil {
			return c.onInputState(port, device, index, id)
		}
		return 0
	})

	s.buildServices()
}

func (s *slot) buildServices() {
	t := &s.trampolines

	t.HWGetCurrentFramebuffer = purego.NewCallback(func() uintptr {
		defer s.recover("get_current_framebuffer")
		if svc := s.services.Load(); svc != nil {
			return svc.CurrentFramebuffer()
		}
		return 0
	})
	t.HWGetProcAddress = purego.NewCallback(func(sym *byte) uintptr {
		defer s.recover("get_proc_address")
		if svc := s.services.Load(); svc != nil {
			return svc.ProcAddress(libretro.GoString(sym))
		}
		return 0
	})

	t.RumbleSetState = purego.NewCallback(func(port uint32, effect int32, strength uint16) bool {
		defer s.recover("set_rumble_state")
		if svc := s.services.Load(); svc != nil {
			return svc.RumbleSetState(uint(port), api.RumbleEffect(effect), strength)
		}
		return false
	})

	t.SensorSetState = purego.NewCallback(func(port uint32, action int32, rate uint32) bool {
		defer s.recover("set_sensor_state")
		if svc := s.services.Load(); svc != nil {
			return svc.SensorSetState(uint(port), api.SensorAction(action), uint(rate))
		}
		return false
	})
	t.SensorGetInput = purego.NewCallback(func(port, id uint32) float32 {
		defer s.recover("get_sensor_input")
		if svc := s.services.Load(); svc != nil {
			return svc.SensorGetInput(uint(port), uint(id))
		}
		return 0
	})

	t.CameraStart = purego.NewCallback(func() bool {
		defer s.recover("camera_start")
		if svc := s.services.Load(); svc != nil {
			return svc.CameraStart()
		}
		return false
	})
	t.CameraStop = purego.NewCallback(func() {
		defer s.recover("camera_stop")
		if svc := s.services.Load(); svc != nil {
			svc.CameraStop()
		}
	})

	t.Log = purego.NewCallback(func(level int32, format *byte, a1, a2, a3, a4 uintptr) {
		defer s.recover("log")
		svc := s.services.Load()
		if svc == nil {
			return
		}
		var args []uintptr
		if variadicInRegisters {
			args = []uintptr{a1, a2, a3, a4}
		}
		svc.Log(libretro.LogLevel(level), formatC(libretro.GoString(format), args, cString))
	})

	t.PerfGetTimeUsec = purego.NewCallback(func() int64 {
		defer s.recover("get_time_usec")
		if svc := s.services.Load(); svc != nil {
			return svc.TimeUsec()
		}
		return 0
	})
	t.PerfGetCPUFeatures = purego.NewCallback(func() uint64 {
		defer s.recover("get_cpu_features")
		if svc := s.services.Load(); svc != nil {
			return svc.CPUFeatures()
		}
		return 0
	})
	t.PerfGetCounter = purego.NewCallback(func() uint64 {
		defer s.recover("get_perf_counter")
		if svc := s.services.Load(); svc != nil {
			return svc.PerfCounterTicks()
		}
		return 0
	})
	t.PerfRegister = purego.NewCallback(func(counter *libretro.PerfCounter) {
		defer s.recover("perf_register")
		if svc := s.services.Load(); svc != nil {
			svc.PerfRegister(counter)
		}
	})
	t.PerfStart = purego.NewCallback(func(counter *libretro.PerfCounter) {
		defer s.recover("perf_start")
		if svc := s.services.Load(); svc != nil {
			svc.PerfStart(counter)
		}
	})
	t.PerfStop = purego.NewCallback(func(counter *libretro.PerfCounter) {
		defer s.recover("perf_stop")
		if svc := s.services.Load(); svc != nil {
			svc.PerfStop(counter)
		}
	})
	t.PerfLog = purego.NewCallback(func() {
		defer s.recover("perf_log")
		if svc := s.services.Load(); svc != nil {
			svc.PerfLog()
		}
	})

	t.LocationStart = purego.NewCallback(func() bool {
		defer s.recover("location_start")
		if svc := s.services.Load(); svc != nil {
			return svc.LocationStart()
		}
		return false
	})
	t.LocationStop = purego.NewCallback(func() {
		defer s.recover("location_stop")
		if svc := s.services.Load(); svc != nil {
			svc.LocationStop()
		}
	})
	t.LocationGetPosition = purego.NewCallback(func(lat, lon, horiz, vert *float64) bool {
		defer s.recover("location_get_position")
		svc := s.services.Load()
		if svc == nil {
			return false
		}
		pos, ok := svc.LocationPosition()
		if !ok {
			return false
		}
		store := func(dst *float64, v float64) {
			if dst != nil {
				*dst = v
			}
		}
		store(lat, pos.Latitude)
		store(lon, pos.Longitude)
		store(horiz, pos.HorizontalAccuracy)
		store(vert, pos.VerticalAccuracy)
		return true
	})
	t.LocationSetInterval = purego.NewCallback(func(intervalMs, distance uint32) {
		defer s.recover("location_set_interval")
		if svc := s.services.Load(); svc != nil {
			svc.LocationSetInterval(uint(intervalMs), uint(distance))
		}
	})
}

// variadicInRegisters reports whether the first variadic integer arguments
// of a C call arrive in the same registers as named ones. Apple arm64 passes
// them on the stack, where a callback cannot reach them.
var variadicInRegisters = !(runtime.GOOS == "darwin" && runtime.GOARCH == "arm64")

func cString(p uintptr) string {
	if p == 0 {
		return "(null)"
	}
	return libretro.GoString((*byte)(unsafe.Pointer(p)))
}
