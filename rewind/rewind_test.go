package rewind

import "testing"

// push writes marker into the next slot and commits it.
func push(b *Buffer, marker byte) {
	b.GetNextState()[0] = marker
	b.AdvanceFrame()
}

func TestNewBuffer(t *testing.T) {
	b := New(100, 10)
	if b.Capacity() != 10 {
		t.Errorf("capacity = %d, want 10", b.Capacity())
	}
	if b.FramesAvailable() != 0 {
		t.Errorf("count = %d, want 0", b.FramesAvailable())
	}
	if len(b.GetState()) != 100 || len(b.GetNextState()) != 100 {
		t.Errorf("slot sizes = %d/%d, want 100", len(b.GetState()), len(b.GetNextState()))
	}
	if cap(b.GetState()) != 100 {
		t.Errorf("slot cap = %d, want 100", cap(b.GetState()))
	}
}

func TestBufferNegativeArgs(t *testing.T) {
	b := New(-1, -5)
	if b.Capacity() != 0 || b.FrameSize() != 0 {
		t.Errorf("capacity/frameSize = %d/%d, want 0/0", b.Capacity(), b.FrameSize())
	}
}

func TestBufferAdvanceAndRewind(t *testing.T) {
	b := New(4, 10)
	for i := byte(1); i <= 3; i++ {
		push(b, i)
	}
	if b.FramesAvailable() != 3 {
		t.Fatalf("count = %d, want 3", b.FramesAvailable())
	}
	if b.GetState()[0] != 3 {
		t.Errorf("current = %d, want 3", b.GetState()[0])
	}

	if n := b.RewindFrames(2); n != 2 {
		t.Errorf("RewindFrames(2) = %d, want 2", n)
	}
	if b.GetState()[0] != 1 {
		t.Errorf("after rewind current = %d, want 1", b.GetState()[0])
	}

	if n := b.RewindFrames(10); n != 1 {
		t.Errorf("RewindFrames(10) = %d, want 1", n)
	}
	if b.GetState()[0] != 0 {
		t.Errorf("baseline = %d, want 0", b.GetState()[0])
	}
	if n := b.RewindFrames(1); n != 0 {
		t.Errorf("RewindFrames on empty history = %d, want 0", n)
	}
	if n := b.RewindFrames(-3); n != 0 {
		t.Errorf("RewindFrames(-3) = %d, want 0", n)
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	b := New(1, 3)
	for i := byte(1); i <= 5; i++ {
		push(b, i)
	}
	if b.FramesAvailable() != 3 {
		t.Fatalf("count = %d, want 3", b.FramesAvailable())
	}
	if n := b.RewindFrames(3); n != 3 {
		t.Fatalf("RewindFrames(3) = %d, want 3", n)
	}
	if b.GetState()[0] != 2 {
		t.Errorf("oldest reachable = %d, want 2", b.GetState()[0])
	}
}

func TestBufferRewindThenPlayForward(t *testing.T) {
	b := New(1, 5)
	for i := byte(1); i <= 4; i++ {
		push(b, i)
	}
	b.RewindFrames(2)
	push(b, 9)

	if b.FramesAvailable() != 3 {
		t.Fatalf("count = %d, want 3", b.FramesAvailable())
	}
	want := []byte{9, 2, 1, 0}
	for i, w := range want {
		if got := b.GetState()[0]; got != w {
			t.Errorf("step %d: state = %d, want %d", i, got, w)
		}
		b.RewindFrames(1)
	}
}

func TestBufferSetMaxFramesShrink(t *testing.T) {
	b := New(1, 5)
	for i := byte(1); i <= 5; i++ {
		push(b, i)
	}
	b.SetMaxFrames(2)

	if b.Capacity() != 2 {
		t.Errorf("capacity = %d, want 2", b.Capacity())
	}
	if b.FramesAvailable() > b.Capacity() {
		t.Fatalf("count %d exceeds capacity %d", b.FramesAvailable(), b.Capacity())
	}
	if b.GetState()[0] != 5 {
		t.Errorf("current = %d, want 5", b.GetState()[0])
	}
	if n := b.RewindFrames(5); n != 2 {
		t.Errorf("RewindFrames(5) = %d, want 2", n)
	}
	if b.GetState()[0] != 3 {
		t.Errorf("oldest kept = %d, want 3", b.GetState()[0])
	}
}

func TestBufferSetMaxFramesGrow(t *testing.T) {
	b := New(1, 2)
	for i := byte(1); i <= 3; i++ {
		push(b, i)
	}
	b.SetMaxFrames(10)

	if b.FramesAvailable() != 2 {
		t.Errorf("count = %d, want 2", b.FramesAvailable())
	}
	for i := byte(4); i <= 6; i++ {
		push(b, i)
	}
	if b.FramesAvailable() != 5 {
		t.Errorf("count = %d, want 5", b.FramesAvailable())
	}
	b.RewindFrames(5)
	if b.GetState()[0] != 1 {
		t.Errorf("oldest = %d, want 1", b.GetState()[0])
	}
}

func TestBufferSetMaxFramesZero(t *testing.T) {
	b := New(1, 4)
	push(b, 7)
	b.SetMaxFrames(0)
	if b.FramesAvailable() != 0 {
		t.Errorf("count = %d, want 0", b.FramesAvailable())
	}
	if b.GetState()[0] != 7 {
		t.Errorf("current = %d, want 7", b.GetState()[0])
	}
	push(b, 8)
	if b.FramesAvailable() != 0 {
		t.Errorf("count after push = %d, want 0", b.FramesAvailable())
	}
	if b.GetState()[0] != 8 {
		t.Errorf("current = %d, want 8", b.GetState()[0])
	}
}

func TestBufferReInit(t *testing.T) {
	b := New(2, 4)
	push(b, 1)
	push(b, 2)
	b.ReInit()

	if b.FramesAvailable() != 0 {
		t.Errorf("count = %d, want 0", b.FramesAvailable())
	}
	if b.Capacity() != 4 {
		t.Errorf("capacity = %d, want 4", b.Capacity())
	}
	if b.GetState()[0] != 0 {
		t.Errorf("slot not cleared: %d", b.GetState()[0])
	}
}

func TestBufferReset(t *testing.T) {
	b := New(2, 4)
	push(b, 1)
	b.Reset()

	if b.GetState() != nil || b.GetNextState() != nil {
		t.Error("expected nil slots after Reset")
	}
	if b.RewindFrames(1) != 0 {
		t.Error("expected no frames after Reset")
	}
	// Must not panic.
	b.AdvanceFrame()
	b.SetMaxFrames(3)
	if b.Capacity() != 3 {
		t.Errorf("capacity = %d, want 3", b.Capacity())
	}
}

func TestHistoryFrames(t *testing.T) {
	tests := []struct {
		name      string
		seconds   int
		fps       float64
		frameSize int
		maxBytes  int64
		want      int
	}{
		{"uncapped", 60, 60, 100, 0, 3600},
		{"fractional fps", 10, 59.94, 100, 0, 599},
		{"byte cap", 60, 60, 1000, 1024 * 1024, 1047},
		{"cap below one slot", 60, 60, 1000, 500, 0},
		{"no seconds", 0, 60, 100, 0, 0},
		{"unknown fps", 60, 0, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HistoryFrames(tt.seconds, tt.fps, tt.frameSize, tt.maxBytes)
			if got != tt.want {
				t.Errorf("HistoryFrames() = %d, want %d", got, tt.want)
			}
		})
	}
}
