package session

import "github.com/pixl-project/retroplayer/api"

// ContentPath returns the resolved path of the loaded content.
func (s *Session) ContentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentPath
}

// FrameRate returns the content frame rate scaled by the correction factor.
func (s *Session) FrameRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameRate * s.correction
}

// SampleRate returns the audio sample rate reported by the core.
func (s *Session) SampleRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Region returns the video region of the loaded content.
func (s *Session) Region() api.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// Geometry returns the current video geometry.
func (s *Session) Geometry() api.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// PixelFormat returns the format the core negotiated.
func (s *Session) PixelFormat() api.PixelFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bridge == nil {
		return api.PixelFormat0RGB1555
	}
	return s.bridge.PixelFormat()
}

// SerializeSize returns the save state size, or 0 when the core cannot
// serialize.
func (s *Session) SerializeSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serializeSize
}

// RewindEnabled reports whether frames are being recorded.
func (s *Session) RewindEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewindEnabled
}

// FramesAvailable returns how many frames can be rewound.
func (s *Session) FramesAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewind.FramesAvailable()
}

// RewindCapacity returns the rewind history length in frames.
func (s *Session) RewindCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewind.Capacity()
}
