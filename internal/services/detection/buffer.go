package detection

import (
	"sync"

	"drishti-worker-go/internal/models"
)

// SlidingBuffer keeps the most recent frames per camera. Each camera has its
// own lock so cameras never wait on each other.
type SlidingBuffer struct {
	capacity int

	mu      sync.RWMutex
	cameras map[string]*cameraBuffer
}

type cameraBuffer struct {
	mu     sync.Mutex
	frames []models.Frame
	keys   []string
}

func NewSlidingBuffer(capacity int) *SlidingBuffer {
	if capacity <= 0 {
		capacity = 10
	}
	return &SlidingBuffer{
		capacity: capacity,
		cameras:  make(map[string]*cameraBuffer),
	}
}

func (b *SlidingBuffer) camera(id string) *cameraBuffer {
	b.mu.RLock()
	cb, ok := b.cameras[id]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.cameras[id]; !ok {
		cb = &cameraBuffer{}
		b.cameras[id] = cb
	}
	return cb
}

// Append adds f to its camera's window, evicting the oldest frame when full.
// A frame already in the window is not added again; Append reports whether
// the frame was added.
func (b *SlidingBuffer) Append(f models.Frame) bool {
	key := f.Key()
	cb := b.camera(f.CameraID)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	for _, k := range cb.keys {
		if k == key {
			return false
		}
	}

	cb.frames = append(cb.frames, f)
	cb.keys = append(cb.keys, key)
	if over := len(cb.frames) - b.capacity; over > 0 {
		cb.frames = append([]models.Frame(nil), cb.frames[over:]...)
		cb.keys = append([]string(nil), cb.keys[over:]...)
	}
	return true
}

// Snapshot returns the camera's frames, oldest first
func (b *SlidingBuffer) Snapshot(cameraID string) []models.Frame {
	b.mu.RLock()
	cb, ok := b.cameras[cameraID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]models.Frame(nil), cb.frames...)
}

func (b *SlidingBuffer) Len(cameraID string) int {
	return len(b.Snapshot(cameraID))
}

func (b *SlidingBuffer) Capacity() int { return b.capacity }

// Cameras returns the number of cameras with a window
func (b *SlidingBuffer) Cameras() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cameras)
}
