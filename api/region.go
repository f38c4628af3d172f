package api

// Region represents the video region a core reports for loaded content.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// String returns the display name of the region.
func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "NTSC"
	case RegionPAL:
		return "PAL"
	default:
		return "Unknown"
	}
}

// Timing holds the frame and audio rates reported by a core.
type Timing struct {
	FPS        float64
	SampleRate float64
}

// Known reports whether the frame rate has been established.
func (t Timing) Known() bool {
	return t.FPS > 0
}
