// Package rewind keeps a bounded history of serialized core states so play
// can be stepped backwards frame by frame.
package rewind

// Buffer is a ring of fixed-size state slots. One slot always holds the
// current state; up to capacity slots behind it hold the history that can be
// rewound into.
//
// The per-frame sequence is: serialize into GetNextState, then AdvanceFrame.
// Only AdvanceFrame changes what counts as available, so a failed or partial
// write never becomes visible.
type Buffer struct {
	buffer    [][]byte // capacity+1 slots of frameSize bytes
	head      int      // slot holding the current state
	count     int      // history frames behind head
	capacity  int      // max history frames
	frameSize int
}

// New returns a buffer for states of frameSize bytes keeping up to
// maxFrames frames of history.
func New(frameSize, maxFrames int) *Buffer {
	b := &Buffer{}
	b.Init(frameSize, maxFrames)
	return b
}

// Init allocates storage and discards any history. Negative arguments are
// treated as zero.
func (b *Buffer) Init(frameSize, maxFrames int) {
	if frameSize < 0 {
		frameSize = 0
	}
	if maxFrames < 0 {
		maxFrames = 0
	}
	b.frameSize = frameSize
	b.capacity = maxFrames
	b.buffer = allocSlots(maxFrames+1, frameSize)
	b.head = 0
	b.count = 0
}

// ReInit discards history but keeps the allocation.
func (b *Buffer) ReInit() {
	b.head = 0
	b.count = 0
	for _, slot := range b.buffer {
		clear(slot)
	}
}

// Reset frees storage. The buffer must be re-initialized before use.
func (b *Buffer) Reset() {
	b.buffer = nil
	b.head = 0
	b.count = 0
	b.capacity = 0
	b.frameSize = 0
}

// GetState returns the slot holding the current state. It receives the
// baseline snapshot at session start and after reset, and holds the state to
// restore after RewindFrames.
func (b *Buffer) GetState() []byte {
	if len(b.buffer) == 0 {
		return nil
	}
	return b.buffer[b.head]
}

// GetNextState returns the slot the next frame's state should be written to.
func (b *Buffer) GetNextState() []byte {
	if len(b.buffer) == 0 {
		return nil
	}
	return b.buffer[b.next(b.head)]
}

// AdvanceFrame commits the slot returned by GetNextState. When the history
// is full the oldest frame is dropped.
func (b *Buffer) AdvanceFrame() {
	if len(b.buffer) == 0 {
		return
	}
	b.head = b.next(b.head)
	if b.count < b.capacity {
		b.count++
	}
}

// RewindFrames moves the current state back by up to n frames and returns
// the number of frames actually rewound. Frames walked past stay in place
// until forward play overwrites them.
func (b *Buffer) RewindFrames(n int) int {
	if n <= 0 || b.count == 0 {
		return 0
	}
	if n > b.count {
		n = b.count
	}
	slots := len(b.buffer)
	b.head = (b.head - n + slots) % slots
	b.count -= n
	return n
}

// SetMaxFrames changes the history capacity, keeping the current state and
// the most recent frames that still fit.
func (b *Buffer) SetMaxFrames(maxFrames int) {
	if maxFrames < 0 {
		maxFrames = 0
	}
	if maxFrames == b.capacity {
		return
	}
	if len(b.buffer) == 0 {
		b.capacity = maxFrames
		return
	}

	keep := b.count
	if keep > maxFrames {
		keep = maxFrames
	}

	slots := allocSlots(maxFrames+1, b.frameSize)
	oldSlots := len(b.buffer)
	// Oldest kept frame first; the current state lands at index keep.
	for i := 0; i <= keep; i++ {
		src := (b.head - keep + i + oldSlots) % oldSlots
		copy(slots[i], b.buffer[src])
	}

	b.buffer = slots
	b.head = keep
	b.count = keep
	b.capacity = maxFrames
}

// FramesAvailable returns the number of frames that can be rewound.
func (b *Buffer) FramesAvailable() int {
	return b.count
}

// Capacity returns the maximum number of history frames.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// FrameSize returns the size of each state slot in bytes.
func (b *Buffer) FrameSize() int {
	return b.frameSize
}

func (b *Buffer) next(i int) int {
	return (i + 1) % len(b.buffer)
}

func allocSlots(n, frameSize int) [][]byte {
	backing := make([]byte, n*frameSize)
	slots := make([][]byte, n)
	for i := range slots {
		slots[i] = backing[i*frameSize : (i+1)*frameSize : (i+1)*frameSize]
	}
	return slots
}

// HistoryFrames returns the number of frames covering seconds of play at fps,
// capped so the slots fit in maxBytes. A maxBytes of 0 means no cap.
func HistoryFrames(seconds int, fps float64, frameSize int, maxBytes int64) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	frames := int(float64(seconds) * fps)
	if maxBytes > 0 && frameSize > 0 {
		// One extra slot holds the current state.
		limit := maxBytes/int64(frameSize) - 1
		if limit < 0 {
			limit = 0
		}
		if int64(frames) > limit {
			frames = int(limit)
		}
	}
	return frames
}
