package ingest

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/frameselect"
	"drishti-worker-go/internal/services/media"
)

type sliceSource struct {
	frames []frameselect.RawFrame
	err    error
}

func (s sliceSource) Frames(context.Context, string) iter.Seq2[frameselect.RawFrame, error] {
	if s.err != nil {
		return func(yield func(frameselect.RawFrame, error) bool) {
			for _, f := range s.frames {
				if !yield(f, nil) {
					return
				}
			}
			yield(frameselect.RawFrame{}, &frameselect.DecodeError{Index: len(s.frames), Err: s.err})
		}
	}
	return frameselect.FromSlice(s.frames)
}

type publishedFrame struct {
	topic string
	msg   models.FrameMessage
}

type recordingPublisher struct {
	mu     sync.Mutex
	frames []publishedFrame
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, publishedFrame{topic, v.(models.FrameMessage)})
	return nil
}

func (p *recordingPublisher) topicOf(seq int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		if f.msg.Sequence == seq {
			return f.topic
		}
	}
	return ""
}

// flickerFrames alternates black and white 2x2 frames so every frame is selected
func flickerFrames(n int) []frameselect.RawFrame {
	frames := make([]frameselect.RawFrame, n)
	for i := range frames {
		var v byte
		if i%2 == 1 {
			v = 255
		}
		frames[i] = frameselect.RawFrame{
			Index:  i,
			Width:  2,
			Height: 2,
			Luma:   []byte{v, v, v, v},
			Image:  []byte{byte(i)},
		}
	}
	return frames
}

// planeChanged scores any luminance change as full motion
func planeChanged(prev, cur frameselect.RawFrame) float64 {
	if bytes.Equal(prev.Luma, cur.Luma) {
		return 0
	}
	return 1
}

func newTestService(t *testing.T, source FrameSource, pub *recordingPublisher, store media.Store) *Service {
	t.Helper()
	cfg := Config{
		BottleneckTopic: "bottleneck-frames",
		AnomalyTopic:    "anomaly-frames",
		TempDir:         t.TempDir(),
	}
	selector := frameselect.New(frameselect.DefaultThreshold, planeChanged)
	return NewService(cfg, config.DefaultRegistry(), store, source, selector, pub, zerolog.Nop())
}

func video() *bytes.Reader { return bytes.NewReader([]byte("fake mp4 payload")) }

func TestRouteSplitsHalfAndHalf(t *testing.T) {
	s := newTestService(t, sliceSource{}, &recordingPublisher{}, nil)

	tests := []struct {
		i, n int
		want string
	}{
		{0, 1, "anomaly-frames"},
		{0, 2, "bottleneck-frames"},
		{1, 2, "anomaly-frames"},
		{1, 5, "bottleneck-frames"},
		{2, 5, "anomaly-frames"},
		{4, 5, "anomaly-frames"},
	}
	for _, tt := range tests {
		if got := s.Route(tt.i, tt.n); got != tt.want {
			t.Errorf("Route(%d, %d) = %s, want %s", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestIngestPublishesSelectedFrames(t *testing.T) {
	pub := &recordingPublisher{}
	store, err := media.NewFilesystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	s := newTestService(t, sliceSource{frames: flickerFrames(5)}, pub, store)

	resp, err := s.Ingest(context.Background(), Request{CameraID: "CAM_01", Filename: "clip.mp4", Video: video()})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Status != StatusDispatched || resp.FramesSelected != 5 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.BottleneckFrames != 2 || resp.AnomalyFrames != 3 {
		t.Fatalf("split = %d/%d, want 2/3", resp.BottleneckFrames, resp.AnomalyFrames)
	}
	if resp.Location != "Gate 1 - North Wing" || resp.ZoneID != "Z1" {
		t.Fatalf("camera metadata not filled in: %+v", resp)
	}
	if resp.VideoURL == "" {
		t.Fatal("video should be stored")
	}

	if len(pub.frames) != 5 {
		t.Fatalf("expected 5 published frames, got %d", len(pub.frames))
	}
	for seq, want := range []string{"bottleneck-frames", "bottleneck-frames", "anomaly-frames", "anomaly-frames", "anomaly-frames"} {
		if got := pub.topicOf(int64(seq)); got != want {
			t.Errorf("frame %d went to %s, want %s", seq, got, want)
		}
	}
	for _, f := range pub.frames {
		if f.msg.BatchID != resp.BatchID || f.msg.CameraID != "CAM_01" || f.msg.Location != "Gate 1 - North Wing" {
			t.Fatalf("frame message missing metadata: %+v", f.msg)
		}
		if err := f.msg.Validate(); err != nil {
			t.Fatalf("published frame is invalid: %v", err)
		}
	}
}

func TestIngestKeepsExplicitLocation(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(t, sliceSource{frames: flickerFrames(2)}, pub, nil)

	resp, err := s.Ingest(context.Background(), Request{CameraID: "CAM_02", Location: "Backstage", Video: video()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Location != "Backstage" || resp.ZoneID != "Z2" {
		t.Fatalf("unexpected metadata %+v", resp)
	}
}

func TestIngestUnknownCamera(t *testing.T) {
	s := newTestService(t, sliceSource{frames: flickerFrames(1)}, &recordingPublisher{}, nil)

	resp, err := s.Ingest(context.Background(), Request{CameraID: "CAM_99", Video: video()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Location != "" || resp.AnomalyFrames != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(t, sliceSource{frames: flickerFrames(2)}, pub, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing camera", Request{Video: video()}},
		{"missing video", Request{CameraID: "CAM_01"}},
		{"empty video", Request{CameraID: "CAM_01", Video: strings.NewReader("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Ingest(context.Background(), tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if len(pub.frames) != 0 {
		t.Fatal("invalid requests must not publish")
	}
}

func TestIngestDecodeFailurePublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(t, sliceSource{frames: flickerFrames(3), err: errors.New("corrupt packet")}, pub, nil)

	_, err := s.Ingest(context.Background(), Request{CameraID: "CAM_01", Video: video()})
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
	var de *frameselect.DecodeError
	if !errors.As(err, &de) || de.Index != 3 {
		t.Fatalf("decode error should carry the frame index: %v", err)
	}
	if len(pub.frames) != 0 {
		t.Fatal("no frame may be published when decoding fails")
	}
}

func TestIngestEmptyVideo(t *testing.T) {
	s := newTestService(t, sliceSource{}, &recordingPublisher{}, nil)

	if _, err := s.Ingest(context.Background(), Request{CameraID: "CAM_01", Video: video()}); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
}

func TestIngestPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := newTestService(t, sliceSource{frames: flickerFrames(4)}, pub, nil)

	_, err := s.Ingest(context.Background(), Request{CameraID: "CAM_01", Video: video()})
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if s.Stats().Videos != 0 {
		t.Fatal("failed ingest should not count")
	}
}
