package stream

import (
	"sync"

	"safesite-worker-go/internal/models"
)

// FrameBuffer is a bounded, most-recent-wins buffer of encoded frames for one
// channel. Single writer (the capture loop), multiple readers; readers get
// copies and never hold references into the live buffer.
type FrameBuffer struct {
	mu       sync.RWMutex
	frames   []*models.Frame
	capacity int
}

// NewFrameBuffer creates a buffer holding at most capacity frames.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameBuffer{
		frames:   make([]*models.Frame, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a frame, evicting the oldest when full.
func (b *FrameBuffer) Push(frame *models.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == b.capacity {
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:len(b.frames)-1]
	}
	b.frames = append(b.frames, frame)
}

// Latest returns a copy of the most recent frame, or nil when empty.
func (b *FrameBuffer) Latest() *models.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1].Clone()
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}
