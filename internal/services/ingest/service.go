// Package ingest is the ingestion boundary: it stores an uploaded video,
// selects the frames worth analysing and fans them out to the detection topics.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/frameselect"
	"drishti-worker-go/internal/services/media"
	"drishti-worker-go/internal/services/messaging"
)

const StatusDispatched = "Frames dispatched"

var (
	// ErrInvalidInput is returned for requests missing required fields
	ErrInvalidInput = errors.New("invalid ingest request")
	// ErrUndecodable is returned when the video yields no usable frames
	ErrUndecodable = errors.New("video could not be decoded")
)

// FrameSource decodes the video file at path into raw frames
type FrameSource interface {
	Frames(ctx context.Context, path string) iter.Seq2[frameselect.RawFrame, error]
}

// Request is one uploaded video
type Request struct {
	CameraID    string
	Location    string
	ZoneID      string
	Filename    string
	ContentType string
	Video       io.Reader
}

// Response describes where the frames of a video went
type Response struct {
	Status           string `json:"status"`
	BatchID          string `json:"batch_id"`
	CameraID         string `json:"camera_id"`
	Location         string `json:"location"`
	ZoneID           string `json:"zone_id"`
	VideoURL         string `json:"video_url,omitempty"`
	FramesSelected   int    `json:"frames_selected"`
	BottleneckFrames int    `json:"bottleneck_frames"`
	AnomalyFrames    int    `json:"anomaly_frames"`
}

type Config struct {
	BottleneckTopic string
	AnomalyTopic    string
	// PublishConcurrency bounds in-flight publishes per request
	PublishConcurrency int
	TempDir            string
}

// Service runs the ingestion pipeline
type Service struct {
	cfg       Config
	cameras   map[string]config.CameraInfo
	media     media.Store
	source    FrameSource
	selector  *frameselect.Selector
	publisher messaging.Publisher
	logger    zerolog.Logger
	now       func() time.Time

	videos    atomic.Int64
	published atomic.Int64
}

// NewService builds the ingestion service. mediaStore may be nil, in which
// case videos are decoded but not kept.
func NewService(cfg Config, registry *config.Registry, mediaStore media.Store, source FrameSource, selector *frameselect.Selector, publisher messaging.Publisher, logger zerolog.Logger) *Service {
	if cfg.PublishConcurrency <= 0 {
		cfg.PublishConcurrency = 16
	}
	cameras := map[string]config.CameraInfo{}
	if registry != nil {
		cameras = registry.Cameras
	}
	return &Service{
		cfg:       cfg,
		cameras:   cameras,
		media:     mediaStore,
		source:    source,
		selector:  selector,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Route returns the topic frame i of n goes to: the first half feeds the
// bottleneck agent, the rest the anomaly agent.
func (s *Service) Route(i, n int) string {
	if i >= n/2 {
		return s.cfg.AnomalyTopic
	}
	return s.cfg.BottleneckTopic
}

// Ingest stores the video, selects frames and publishes every selected frame.
// A failed publish fails the whole request.
func (s *Service) Ingest(ctx context.Context, req Request) (Response, error) {
	if req.CameraID == "" {
		return Response{}, fmt.Errorf("%w: camera_id is required", ErrInvalidInput)
	}
	if req.Video == nil {
		return Response{}, fmt.Errorf("%w: video file is required", ErrInvalidInput)
	}

	if info, ok := s.cameras[req.CameraID]; ok {
		if req.Location == "" {
			req.Location = info.Location
		}
		if req.ZoneID == "" {
			req.ZoneID = info.ZoneID
		}
	}

	startTime := s.now()
	batchID := uuid.NewString()
	logger := s.logger.With().Str("camera_id", req.CameraID).Str("batch_id", batchID).Logger()

	tmp, err := os.CreateTemp(s.cfg.TempDir, "drishti-ingest-*")
	if err != nil {
		return Response{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, req.Video)
	if err != nil {
		return Response{}, fmt.Errorf("buffer upload: %w", err)
	}
	if size == 0 {
		return Response{}, fmt.Errorf("%w: video file is empty", ErrInvalidInput)
	}

	resp := Response{
		Status:   StatusDispatched,
		BatchID:  batchID,
		CameraID: req.CameraID,
		Location: req.Location,
		ZoneID:   req.ZoneID,
	}

	if s.media != nil {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return Response{}, fmt.Errorf("rewind upload: %w", err)
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ref, err := s.media.Save(ctx, media.VideoKey(req.CameraID, req.Filename, startTime), contentType, tmp)
		if err != nil {
			return Response{}, fmt.Errorf("store video: %w", err)
		}
		resp.VideoURL = ref
	}
	if err := tmp.Sync(); err != nil {
		return Response{}, fmt.Errorf("flush upload: %w", err)
	}

	frames, err := s.selector.Collect(s.source.Frames(ctx, tmp.Name()))
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if len(frames) == 0 {
		return Response{}, fmt.Errorf("%w: no frames", ErrUndecodable)
	}

	bottleneck, anomaly, err := s.publish(ctx, req, batchID, startTime, frames)
	if err != nil {
		return Response{}, err
	}

	resp.FramesSelected = len(frames)
	resp.BottleneckFrames = bottleneck
	resp.AnomalyFrames = anomaly

	s.videos.Add(1)
	s.published.Add(int64(len(frames)))
	logger.Info().
		Int64("bytes", size).
		Int("frames_selected", len(frames)).
		Int("bottleneck_frames", bottleneck).
		Int("anomaly_frames", anomaly).
		Dur("duration", time.Since(startTime)).
		Msg("📤 Frames dispatched")

	return resp, nil
}

func (s *Service) publish(ctx context.Context, req Request, batchID string, base time.Time, frames []frameselect.RawFrame) (int, int, error) {
	n := len(frames)
	bottleneck := 0
	for i := range frames {
		if s.Route(i, n) == s.cfg.BottleneckTopic {
			bottleneck++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.PublishConcurrency)
	for i, raw := range frames {
		captured := raw.Timestamp
		if captured.IsZero() {
			captured = base.Add(raw.Offset)
		}
		msg := models.FrameMessage{
			BatchID:    batchID,
			Frame:      raw.Image,
			CameraID:   req.CameraID,
			Location:   req.Location,
			ZoneID:     req.ZoneID,
			Sequence:   int64(raw.Index),
			CapturedAt: captured,
			Width:      raw.Width,
			Height:     raw.Height,
		}
		topic := s.Route(i, n)
		g.Go(func() error {
			if err := s.publisher.Publish(gctx, topic, msg); err != nil {
				return fmt.Errorf("publish frame %d to %s: %w", msg.Sequence, topic, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return bottleneck, n - bottleneck, nil
}

// Stats describes ingestion activity
type Stats struct {
	Videos          int64 `json:"videos"`
	FramesPublished int64 `json:"frames_published"`
}

func (s *Service) Stats() Stats {
	return Stats{Videos: s.videos.Load(), FramesPublished: s.published.Load()}
}
