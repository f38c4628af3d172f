package libretro

import (
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/cpu"

	"github.com/pixl-project/retroplayer/api"
)

// SIMD feature flags reported by CPUFeatures.
const (
	SIMDSSE    uint64 = 1 << 0
	SIMDSSE2   uint64 = 1 << 1
	SIMDAVX    uint64 = 1 << 4
	SIMDNEON   uint64 = 1 << 5
	SIMDSSE3   uint64 = 1 << 6
	SIMDSSSE3  uint64 = 1 << 7
	SIMDSSE4   uint64 = 1 << 10
	SIMDSSE42  uint64 = 1 << 11
	SIMDAVX2   uint64 = 1 << 12
	SIMDAES    uint64 = 1 << 15
	SIMDPOPCNT uint64 = 1 << 18
)

// Services implements the frontend side of every service interface a core
// can request. The platform loader exposes these methods to the core through
// the addresses in Trampolines. Capabilities the frontend lacks answer with
// neutral values.
type Services struct {
	frontend api.Frontend
	log      zerolog.Logger
	epoch    time.Time

	mu       sync.Mutex
	counters []*PerfCounter
}

// NewServices returns services backed by frontend. Core log output goes to
// log.
func NewServices(frontend api.Frontend, log zerolog.Logger) *Services {
	return &Services{
		frontend: frontend,
		log:      log.With().Str("component", "core").Logger(),
		epoch:    time.Now(),
	}
}

// RumbleSetState drives a rumble motor.
func (s *Services) RumbleSetState(port uint, effect api.RumbleEffect, strength uint16) bool {
	if r, ok := s.frontend.(api.Rumbler); ok {
		return r.SetRumbleState(port, effect, strength)
	}
	return false
}

// SensorSetState enables or disables a sensor.
func (s *Services) SensorSetState(port uint, action api.SensorAction, rate uint) bool {
	if r, ok := s.frontend.(api.SensorReader); ok {
		return r.SetSensorState(port, action, rate)
	}
	return false
}

// SensorGetInput reads a sensor axis.
func (s *Services) SensorGetInput(port, id uint) float32 {
	if r, ok := s.frontend.(api.SensorReader); ok {
		return r.SensorInput(port, id)
	}
	return 0
}

// CameraStart starts the camera stream.
func (s *Services) CameraStart() bool {
	if c, ok := s.frontend.(api.CameraDriver); ok {
		return c.StartCamera()
	}
	return false
}

// CameraStop stops the camera stream.
func (s *Services) CameraStop() {
	if c, ok := s.frontend.(api.CameraDriver); ok {
		c.StopCamera()
	}
}

// LocationStart starts location updates.
func (s *Services) LocationStart() bool {
	if l, ok := s.frontend.(api.LocationDriver); ok {
		return l.StartLocation()
	}
	return false
}

// LocationStop stops location updates.
func (s *Services) LocationStop() {
	if l, ok := s.frontend.(api.LocationDriver); ok {
		l.StopLocation()
	}
}

// LocationPosition returns the latest fix.
func (s *Services) LocationPosition() (api.Position, bool) {
	if l, ok := s.frontend.(api.LocationDriver); ok {
		return l.Position()
	}
	return api.Position{}, false
}

// LocationSetInterval sets the update interval in milliseconds and the
// minimum distance in meters.
func (s *Services) LocationSetInterval(intervalMs, distance uint) {
	if l, ok := s.frontend.(api.LocationDriver); ok {
		l.SetLocationInterval(time.Duration(intervalMs)*time.Millisecond, distance)
	}
}

// CurrentFramebuffer returns the framebuffer object the core renders into.
func (s *Services) CurrentFramebuffer() uintptr {
	if r, ok := s.frontend.(api.HardwareRenderer); ok {
		return r.CurrentFramebuffer()
	}
	return 0
}

// ProcAddress resolves a graphics API symbol.
func (s *Services) ProcAddress(sym string) uintptr {
	if r, ok := s.frontend.(api.HardwareRenderer); ok {
		return r.ProcAddress(sym)
	}
	return 0
}

// Log writes a core log line.
func (s *Services) Log(level LogLevel, msg string) {
	msg = strings.TrimRight(msg, "\r\n")
	switch level {
	case LogDebug:
		s.log.Debug().Msg(msg)
	case LogInfo:
		s.log.Info().Msg(msg)
	case LogWarn:
		s.log.Warn().Msg(msg)
	case LogError:
		s.log.Error().Msg(msg)
	default:
		s.log.Log().Msg(msg)
	}
}

// TimeUsec returns microseconds since the services were created.
func (s *Services) TimeUsec() int64 {
	return time.Since(s.epoch).Microseconds()
}

// PerfCounterTicks returns a monotonic tick count in nanoseconds.
func (s *Services) PerfCounterTicks() uint64 {
	return uint64(time.Since(s.epoch).Nanoseconds())
}

// CPUFeatures returns the SIMD flags of the host CPU.
func (s *Services) CPUFeatures() uint64 {
	var f uint64
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE2 {
			f |= SIMDSSE | SIMDSSE2
		}
		if cpu.X86.HasSSE3 {
			f |= SIMDSSE3
		}
		if cpu.X86.HasSSSE3 {
			f |= SIMDSSSE3
		}
		if cpu.X86.HasSSE41 {
			f |= SIMDSSE4
		}
		if cpu.X86.HasSSE42 {
			f |= SIMDSSE42
		}
		if cpu.X86.HasAVX {
			f |= SIMDAVX
		}
		if cpu.X86.HasAVX2 {
			f |= SIMDAVX2
		}
		if cpu.X86.HasAES {
			f |= SIMDAES
		}
		if cpu.X86.HasPOPCNT {
			f |= SIMDPOPCNT
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			f |= SIMDNEON
		}
		if cpu.ARM64.HasAES {
			f |= SIMDAES
		}
	}
	return f
}

// PerfRegister records a counter so PerfLog can report it. Registering the
// same counter twice is a no-op.
func (s *Services) PerfRegister(c *PerfCounter) {
	if c == nil || c.Registered {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Registered = true
	s.counters = append(s.counters, c)
}

// PerfStart marks the beginning of a measured section.
func (s *Services) PerfStart(c *PerfCounter) {
	if c == nil || !c.Registered {
		return
	}
	c.CallCount++
	c.Start = s.PerfCounterTicks()
}

// PerfStop adds the time since PerfStart to the counter total.
func (s *Services) PerfStop(c *PerfCounter) {
	if c == nil || !c.Registered {
		return
	}
	c.Total += s.PerfCounterTicks() - c.Start
}

// PerfLog writes every registered counter to the log.
func (s *Services) PerfLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.counters {
		s.log.Info().
			Str("ident", GoString(c.Ident)).
			Uint64("total_ns", c.Total).
			Uint64("calls", c.CallCount).
			Msg("perf counter")
	}
}

// Forget drops all registered counters. Called when the core is unloaded,
// since the counters live in its memory.
func (s *Services) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = nil
}
