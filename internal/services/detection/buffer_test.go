package detection

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"drishti-worker-go/internal/models"
)

func testFrame(camera string, seq int64, data string) models.Frame {
	return models.Frame{
		Data:       []byte(data),
		CameraID:   camera,
		Location:   "Main Stage",
		ZoneID:     "Z2",
		Sequence:   seq,
		CapturedAt: time.Date(2025, 7, 1, 12, 0, int(seq), 0, time.UTC),
	}
}

func TestSlidingBufferEvictsOldest(t *testing.T) {
	const capacity = 10
	b := NewSlidingBuffer(capacity)

	for i := int64(0); i <= capacity; i++ {
		b.Append(testFrame("CAM_01", i, fmt.Sprintf("frame-%d", i)))
	}

	got := b.Snapshot("CAM_01")
	if len(got) != capacity {
		t.Fatalf("buffer holds %d frames, want %d", len(got), capacity)
	}
	for i, f := range got {
		if f.Sequence != int64(i+1) {
			t.Fatalf("position %d holds sequence %d, want %d", i, f.Sequence, i+1)
		}
	}
}

func TestSlidingBufferIgnoresDuplicates(t *testing.T) {
	b := NewSlidingBuffer(3)
	f := testFrame("CAM_01", 1, "a")

	if !b.Append(f) {
		t.Fatal("first append should add the frame")
	}
	if b.Append(f) {
		t.Fatal("second append of the same frame should be ignored")
	}
	if b.Len("CAM_01") != 1 {
		t.Fatalf("expected 1 frame, got %d", b.Len("CAM_01"))
	}
}

func TestSlidingBufferIsPerCamera(t *testing.T) {
	b := NewSlidingBuffer(2)
	b.Append(testFrame("CAM_01", 1, "a"))
	b.Append(testFrame("CAM_02", 1, "b"))
	b.Append(testFrame("CAM_02", 2, "c"))
	b.Append(testFrame("CAM_02", 3, "d"))

	if b.Len("CAM_01") != 1 || b.Len("CAM_02") != 2 {
		t.Fatalf("unexpected lengths: CAM_01=%d CAM_02=%d", b.Len("CAM_01"), b.Len("CAM_02"))
	}
	if b.Cameras() != 2 {
		t.Fatalf("expected 2 cameras, got %d", b.Cameras())
	}
	if b.Snapshot("CAM_03") != nil {
		t.Fatal("unknown camera should have no frames")
	}
}

func TestSlidingBufferConcurrentAppend(t *testing.T) {
	b := NewSlidingBuffer(5)
	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		camera := fmt.Sprintf("CAM_%02d", c)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Append(testFrame(camera, int64(i), fmt.Sprintf("%s-%d", camera, i)))
			}()
		}
	}
	wg.Wait()

	for c := 0; c < 4; c++ {
		if n := b.Len(fmt.Sprintf("CAM_%02d", c)); n != 5 {
			t.Errorf("camera %d holds %d frames, want 5", c, n)
		}
	}
}
