package session

import (
	"fmt"

	"github.com/pixl-project/retroplayer/api"
	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/input"
	"github.com/pixl-project/retroplayer/rewind"
)

// CanOpen reports whether this core can open path. requested, when set,
// names the only core allowed to open it.
func (s *Session) CanOpen(path, requested string) bool {
	if requested != "" && requested != s.desc.ID {
		s.log.Error().
			Str("path", path).
			Str("requested", requested).
			Msg("content requested another core")
		return false
	}
	if s.desc.Extensions.AcceptsPath(path) {
		return true
	}
	return s.resolver != nil && s.resolver.Peek(path, s.desc)
}

// OpenContent loads path into the core. An empty path starts the core
// without content, which requires no-game support. Any content already
// loaded is closed first. On failure the session is left without content.
func (s *Session) OpenContent(path string) error {
	return s.OpenContentFor(path, "")
}

// OpenContentFor is OpenContent for content that names the core it must be
// opened with.
func (s *Session) OpenContentFor(path, requested string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated && s.state != StatePlaying {
		return ErrNotReady
	}
	if requested != "" && requested != s.desc.ID {
		s.log.Error().
			Str("requested", requested).
			Msg("content's core property doesn't match this core")
		return fmt.Errorf("%w: %s", ErrWrongCore, requested)
	}

	s.closeContentLocked()

	game, err := s.gameInfo(path)
	if err != nil {
		return err
	}

	if err := guardErr(s, "LoadGame", func() error { return s.core.LoadGame(game) }); err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	if err := s.loadGameInfo(game.Path); err != nil {
		_ = guardErr(s, "UnloadGame", s.core.UnloadGame)
		return err
	}

	s.contentPath = game.Path
	s.state = StatePlaying
	s.initSerialization()

	// Cores don't report their port count; start with a joypad on port 0.
	s.setControllerDeviceLocked(0, coreif.DeviceJoypad)

	return nil
}

func (s *Session) gameInfo(path string) (coreif.GameInfo, error) {
	if path == "" {
		if !s.info.SupportsNoGame {
			return coreif.GameInfo{}, ErrNoGame
		}
		return coreif.GameInfo{}, nil
	}

	resolved := path
	if s.resolver != nil {
		r, err := s.resolver.Resolve(path, s.desc)
		if err != nil {
			return coreif.GameInfo{}, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		resolved = r
	}

	game := coreif.GameInfo{Path: resolved}
	if !s.info.NeedFullPath && s.resolver != nil {
		data, err := s.resolver.ReadFile(resolved)
		if err != nil {
			return coreif.GameInfo{}, fmt.Errorf("failed to read %s: %w", resolved, err)
		}
		game.Data = data
	}
	return game, nil
}

func (s *Session) loadGameInfo(path string) error {
	av, err := guard(s, "GetSystemAVInfo", s.core.SystemAVInfo)
	if err != nil {
		return fmt.Errorf("failed to query av info: %w", err)
	}
	region, err := guard(s, "GetRegion", s.core.Region)
	if err != nil {
		return fmt.Errorf("failed to query region: %w", err)
	}

	s.log.Info().
		Str("path", path).
		Uint("base_width", av.Geometry.BaseWidth).
		Uint("base_height", av.Geometry.BaseHeight).
		Uint("max_width", av.Geometry.MaxWidth).
		Uint("max_height", av.Geometry.MaxHeight).
		Float32("aspect_ratio", av.Geometry.AspectRatio).
		Float64("fps", av.Timing.FPS).
		Float64("sample_rate", av.Timing.SampleRate).
		Stringer("region", region).
		Msg("opened content")

	s.geometry = av.Geometry
	s.frameRate = av.Timing.FPS
	s.sampleRate = av.Timing.SampleRate
	s.region = region
	s.bridge.SetFrameRate(av.Timing.FPS)
	return nil
}

// onSystemAVInfo runs inside a core call, with mu already held.
func (s *Session) onSystemAVInfo(info api.SystemAVInfo) {
	s.geometry = info.Geometry
	s.frameRate = info.Timing.FPS
	s.sampleRate = info.Timing.SampleRate
	if s.rewindEnabled {
		s.rewind.SetMaxFrames(s.historyFrames())
	}
}

func (s *Session) historyFrames() int {
	return rewind.HistoryFrames(
		s.settings.RewindSeconds(),
		s.frameRate*s.correction,
		s.serializeSize,
		s.settings.RewindMaxBytes(),
	)
}

// initSerialization checks for save state support and primes the rewind
// buffer with a baseline state.
func (s *Session) initSerialization() {
	size, err := guard(s, "SerializeSize", s.core.SerializeSize)
	if err != nil {
		return
	}
	if size <= 0 {
		s.log.Info().Msg("serialization not supported, continuing without save or rewind")
		return
	}

	s.serializeSize = size
	s.rewindEnabled = s.settings.RewindEnabled()
	if !s.rewindEnabled {
		return
	}

	s.rewind.Init(size, s.historyFrames())
	if err := guardErr(s, "Serialize", func() error { return s.core.Serialize(s.rewind.GetState()) }); err != nil {
		s.serializeSize = 0
		s.disableRewind()
		s.log.Error().Msg("unable to serialize state, proceeding without save or rewind")
	}
}

func (s *Session) disableRewind() {
	s.rewindEnabled = false
	s.rewind.Reset()
}

// CloseContent unloads the content. The session returns to created even if
// the core fails to unload.
func (s *Session) CloseContent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeContentLocked()
}

func (s *Session) closeContentLocked() {
	if s.state != StatePlaying {
		return
	}
	_ = guardErr(s, "UnloadGame", s.core.UnloadGame)

	s.state = StateCreated
	s.contentPath = ""
	s.serializeSize = 0
	s.disableRewind()
	s.services.Forget()
	s.input.Reset()
}

// RunFrame advances emulation by one frame and records it for rewind. A
// failure to record disables rewind but does not fail the frame.
func (s *Session) RunFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return ErrNotPlaying
	}
	if err := guardErr(s, "Run", s.core.Run); err != nil {
		return err
	}

	if s.rewindEnabled {
		err := guardErr(s, "Serialize", func() error { return s.core.Serialize(s.rewind.GetNextState()) })
		if err != nil {
			s.log.Warn().Msg("rewind disabled after serialization failure")
			s.disableRewind()
			return nil
		}
		s.rewind.AdvanceFrame()
	}
	return nil
}

// RewindFrames steps back up to n frames and restores the resulting state.
// It returns the number of frames rewound.
func (s *Session) RewindFrames(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying || !s.rewindEnabled {
		return 0
	}
	rewound := s.rewind.RewindFrames(n)
	if rewound > 0 {
		_ = guardErr(s, "Deserialize", func() error { return s.core.Unserialize(s.rewind.GetState()) })
	}
	return rewound
}

// Reset restarts the content and takes a new rewind baseline. Cores may
// reset controller port devices as a side effect.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return ErrNotPlaying
	}
	err := guardErr(s, "Reset", s.core.Reset)

	if s.rewindEnabled {
		s.rewind.ReInit()
		if serr := guardErr(s, "Serialize", func() error { return s.core.Serialize(s.rewind.GetState()) }); serr != nil {
			s.disableRewind()
		}
	}
	return err
}

// SetControllerDevice connects device to port. Out of range ports and
// unknown devices are ignored.
func (s *Session) SetControllerDevice(port uint, device coreif.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setControllerDeviceLocked(port, device)
}

func (s *Session) setControllerDeviceLocked(port uint, device coreif.Device) error {
	if s.state != StatePlaying || port >= input.MaxPorts || !device.Valid() {
		return nil
	}
	return guardErr(s, "SetControllerPortDevice", func() error {
		return s.core.SetControllerPortDevice(port, device)
	})
}

// SetFrameRateCorrection scales the reported frame rate, for instance when
// the display runs at a slightly different rate. 0 is ignored.
func (s *Session) SetFrameRateCorrection(factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if factor != 0 {
		s.correction = factor
	}
	if s.rewindEnabled {
		s.rewind.SetMaxFrames(s.historyFrames())
	}
}

// ApplySettings re-reads the rewind settings while content is loaded.
func (s *Session) ApplySettings() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying || s.serializeSize == 0 {
		return
	}

	enabled := s.settings.RewindEnabled()
	switch {
	case enabled && !s.rewindEnabled:
		s.rewindEnabled = true
		s.rewind.Init(s.serializeSize, s.historyFrames())
		if err := guardErr(s, "Serialize", func() error { return s.core.Serialize(s.rewind.GetState()) }); err != nil {
			s.disableRewind()
		}
	case !enabled && s.rewindEnabled:
		s.disableRewind()
	case enabled:
		s.rewind.SetMaxFrames(s.historyFrames())
	}
}
