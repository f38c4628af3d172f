package session

import (
	"runtime"
	"unsafe"

	"github.com/pixl-project/retroplayer/coreif"
)

// invoke calls a callback the core registered during negotiation.
func (s *Session) invoke(call string, fn func(*Session) uintptr, args ...uintptr) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated && s.state != StatePlaying {
		return 0, ErrNotReady
	}
	addr := fn(s)
	if addr == 0 {
		return 0, ErrUnsupported
	}
	invoker, ok := s.core.(coreif.Invoker)
	if !ok {
		return 0, ErrUnsupported
	}
	return guard(s, call, func() (uintptr, error) {
		return invoker.Invoke(addr, args...)
	})
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// KeyboardEvent forwards a key press or release to the core.
func (s *Session) KeyboardEvent(down bool, keycode, character uint32, modifiers uint16) error {
	_, err := s.invoke("KeyboardEvent", func(s *Session) uintptr { return s.callbacks.KeyboardEvent },
		boolArg(down), uintptr(keycode), uintptr(character), uintptr(modifiers))
	return err
}

// HasDiskControl reports whether the core exposes disk swapping.
func (s *Session) HasDiskControl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks.HasDiskControl()
}

// SetDiskEjected opens or closes the virtual disk tray.
func (s *Session) SetDiskEjected(ejected bool) error {
	ret, err := s.invoke("DiskSetEjectState", func(s *Session) uintptr { return s.callbacks.DiskSetEjectState }, boolArg(ejected))
	if err == nil && ret&0xff == 0 {
		return coreif.Fail("DiskSetEjectState", coreif.StatusRejected)
	}
	return err
}

// DiskEjected reports whether the disk tray is open.
func (s *Session) DiskEjected() (bool, error) {
	ret, err := s.invoke("DiskGetEjectState", func(s *Session) uintptr { return s.callbacks.DiskGetEjectState })
	return ret&0xff != 0, err
}

// DiskCount returns the number of disk images.
func (s *Session) DiskCount() (uint, error) {
	ret, err := s.invoke("DiskGetNumImages", func(s *Session) uintptr { return s.callbacks.DiskGetNumImages })
	return uint(uint32(ret)), err
}

// DiskIndex returns the index of the inserted disk image.
func (s *Session) DiskIndex() (uint, error) {
	ret, err := s.invoke("DiskGetImageIndex", func(s *Session) uintptr { return s.callbacks.DiskGetImageIndex })
	return uint(uint32(ret)), err
}

// SetDiskIndex selects the disk image to insert. The tray must be open.
func (s *Session) SetDiskIndex(index uint) error {
	ret, err := s.invoke("DiskSetImageIndex", func(s *Session) uintptr { return s.callbacks.DiskSetImageIndex }, uintptr(index))
	if err == nil && ret&0xff == 0 {
		return coreif.Fail("DiskSetImageIndex", coreif.StatusRejected)
	}
	return err
}

// AddDiskImage appends an empty disk image slot.
func (s *Session) AddDiskImage() error {
	ret, err := s.invoke("DiskAddImageIndex", func(s *Session) uintptr { return s.callbacks.DiskAddImageIndex })
	if err == nil && ret&0xff == 0 {
		return coreif.Fail("DiskAddImageIndex", coreif.StatusRejected)
	}
	return err
}

// FrameTime reports the time elapsed since the previous frame, in
// microseconds.
func (s *Session) FrameTime(usec int64) error {
	_, err := s.invoke("FrameTime", func(s *Session) uintptr { return s.callbacks.FrameTime }, uintptr(usec))
	return err
}

// HasAudioCallback reports whether the core drives audio from its own
// callback.
func (s *Session) HasAudioCallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks.Audio != 0
}

// RunAudio asks the core to render audio.
func (s *Session) RunAudio() error {
	_, err := s.invoke("AudioCallback", func(s *Session) uintptr { return s.callbacks.Audio })
	return err
}

// SetAudioEnabled tells the core whether audio callbacks will be made.
func (s *Session) SetAudioEnabled(enabled bool) error {
	_, err := s.invoke("AudioSetState", func(s *Session) uintptr { return s.callbacks.AudioSetState }, boolArg(enabled))
	return err
}

// ResetHWContext notifies the core that its hardware context was created.
func (s *Session) ResetHWContext() error {
	_, err := s.invoke("HWContextReset", func(s *Session) uintptr { return s.callbacks.HWContextReset })
	return err
}

// DestroyHWContext notifies the core that its hardware context is going
// away.
func (s *Session) DestroyHWContext() error {
	_, err := s.invoke("HWContextDestroy", func(s *Session) uintptr { return s.callbacks.HWContextDestroy })
	return err
}

// CameraFrame delivers a raw XRGB8888 camera frame. pitch is in bytes.
func (s *Session) CameraFrame(pixels []uint32, width, height, pitch uint) error {
	if len(pixels) == 0 {
		return nil
	}
	_, err := s.invoke("CameraFrameRawBuffer", func(s *Session) uintptr { return s.callbacks.CameraFrameRawFramebuffer },
		uintptr(unsafe.Pointer(&pixels[0])), uintptr(width), uintptr(height), uintptr(pitch))
	runtime.KeepAlive(pixels)
	return err
}

// CameraInitialized notifies the core that the camera driver is ready.
func (s *Session) CameraInitialized() error {
	_, err := s.invoke("CameraInitialized", func(s *Session) uintptr { return s.callbacks.CameraInitialized })
	return err
}

// CameraDeinitialized notifies the core that the camera driver stopped.
func (s *Session) CameraDeinitialized() error {
	_, err := s.invoke("CameraDeinitialized", func(s *Session) uintptr { return s.callbacks.CameraDeinitialized })
	return err
}

// LocationInitialized notifies the core that location services are ready.
func (s *Session) LocationInitialized() error {
	_, err := s.invoke("LocationInitialized", func(s *Session) uintptr { return s.callbacks.LocationInitialized })
	return err
}

// LocationDeinitialized notifies the core that location services stopped.
func (s *Session) LocationDeinitialized() error {
	_, err := s.invoke("LocationDeinitialized", func(s *Session) uintptr { return s.callbacks.LocationDeinitialized })
	return err
}
