// Package detection implements the frame-consuming agents that score frames
// with an analyzer and raise DetectionEvents.
package detection

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/analyzer"
	"drishti-worker-go/internal/services/media"
	"drishti-worker-go/internal/services/messaging"
	"drishti-worker-go/internal/services/storage"
	"drishti-worker-go/internal/worker"
)

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("drishti/detection-events"))

// EventID derives the id of the event raised by source for frame. The same
// frame always maps to the same id, which makes redelivery safe.
func EventID(source models.AgentSource, frame models.Frame) string {
	return uuid.NewSHA1(eventNamespace, []byte(string(source)+"|"+frame.Key())).String()
}

// BufferedEventID derives the id of a buffered event found while re-scanning
// after the alert triggerID.
func BufferedEventID(triggerID string, frame models.Frame) string {
	return uuid.NewSHA1(eventNamespace, []byte("buffered|"+triggerID+"|"+frame.Key())).String()
}

// Config parametrizes an Agent
type Config struct {
	Source         models.AgentSource
	Analyzer       analyzer.Analyzer
	Policy         AlertPolicy
	RescanBuffer   bool
	BufferCapacity int
	// RescanParallelism bounds concurrent analyzer calls during a re-scan
	RescanParallelism int

	SummaryTopic        string
	DispatchTopic       string
	DispatchMinSeverity models.Severity
}

// Agent consumes frame messages for one detection role
type Agent struct {
	cfg       Config
	store     storage.Store
	media     media.Store
	publisher messaging.Publisher
	buffer    *SlidingBuffer
	logger    zerolog.Logger

	framesSeen     atomic.Int64
	alertsRaised   atomic.Int64
	bufferedAlerts atomic.Int64
}

// NewAgent builds an agent. mediaStore may be nil, in which case alerting
// frames are not stored.
func NewAgent(cfg Config, store storage.Store, mediaStore media.Store, publisher messaging.Publisher, logger zerolog.Logger) (*Agent, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("detection agent %s: analyzer is required", cfg.Source)
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("detection agent %s: alert policy is required", cfg.Source)
	}
	if store == nil || publisher == nil {
		return nil, fmt.Errorf("detection agent %s: store and publisher are required", cfg.Source)
	}
	if cfg.RescanParallelism <= 0 {
		cfg.RescanParallelism = 4
	}
	if cfg.DispatchMinSeverity == "" {
		cfg.DispatchMinSeverity = models.SeverityHigh
	}

	return &Agent{
		cfg:       cfg,
		store:     store,
		media:     mediaStore,
		publisher: publisher,
		buffer:    NewSlidingBuffer(cfg.BufferCapacity),
		logger:    logger,
	}, nil
}

// Handle is the worker.Handler for frame messages
func (a *Agent) Handle(ctx context.Context, d messaging.Delivery) error {
	var msg models.FrameMessage
	if err := d.Decode(&msg); err != nil {
		return worker.Permanent(fmt.Errorf("decode frame message: %w", err))
	}
	if err := msg.Validate(); err != nil {
		return worker.Permanent(err)
	}

	_, err := a.Process(ctx, msg.ToFrame())
	return err
}

// Process runs one frame through buffer, analyzer, classification,
// persistence and publication. It returns the events the frame produced,
// whether or not they were already stored by an earlier delivery.
func (a *Agent) Process(ctx context.Context, frame models.Frame) ([]models.DetectionEvent, error) {
	a.framesSeen.Add(1)
	logger := logging.WithCamera(a.logger, frame.CameraID)

	a.buffer.Append(frame)

	res, err := a.cfg.Analyzer.Analyze(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("analyze frame %d: %w", frame.Sequence, err)
	}

	decision := a.cfg.Policy.Classify(res)
	if !decision.ShouldAlert {
		logger.Debug().
			Int64("sequence", frame.Sequence).
			Float64("score", decision.Score).
			Msg("No alert for frame")
		return nil, nil
	}

	event := a.newEvent(frame, decision, res)
	event.ID = EventID(a.cfg.Source, frame)
	created, err := a.persist(ctx, &event, frame)
	if err != nil {
		return nil, err
	}
	if created {
		a.alertsRaised.Add(1)
	}

	eventLogger := logging.WithEvent(logger, event.ID)
	eventLogger.Info().
		Str("type", event.Type).
		Str("severity", string(event.Severity)).
		Float64("score", event.Score).
		Msg("🚨 " + event.Message)

	events := []models.DetectionEvent{event}
	var related []string

	if a.cfg.RescanBuffer {
		buffered, err := a.rescan(ctx, event)
		if err != nil {
			return nil, err
		}
		for _, be := range buffered {
			related = append(related, be.ID)
		}
		events = append(events, buffered...)
	}

	if err := a.publisher.Publish(ctx, a.cfg.SummaryTopic, event.Alert(related)); err != nil {
		return nil, fmt.Errorf("publish alert %s: %w", event.ID, err)
	}

	if a.cfg.DispatchTopic != "" && event.Severity.AtLeast(a.cfg.DispatchMinSeverity) {
		if err := a.publisher.Publish(ctx, a.cfg.DispatchTopic, event.Critical()); err != nil {
			return nil, fmt.Errorf("publish critical event %s: %w", event.ID, err)
		}
		eventLogger.Info().Msg("Critical event promoted for dispatch")
	}

	return events, nil
}

// rescan re-analyzes every frame in the camera's window and stores one
// buffered event per frame that also alerts
func (a *Agent) rescan(ctx context.Context, trigger models.DetectionEvent) ([]models.DetectionEvent, error) {
	frames := a.buffer.Snapshot(trigger.CameraID)
	decisions := make([]Decision, len(frames))
	results := make([]analyzer.Result, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.RescanParallelism)
	for i := range frames {
		g.Go(func() error {
			res, err := a.cfg.Analyzer.Analyze(gctx, frames[i])
			if err != nil {
				return fmt.Errorf("re-analyze buffered frame %d: %w", frames[i].Sequence, err)
			}
			results[i] = res
			decisions[i] = a.cfg.Policy.Classify(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var events []models.DetectionEvent
	for i, frame := range frames {
		if !decisions[i].ShouldAlert {
			continue
		}
		be := a.newEvent(frame, decisions[i], results[i])
		be.ID = BufferedEventID(trigger.ID, frame)
		be.Message = decisions[i].BufferedMessage
		be.Buffered = true
		be.TriggerID = trigger.ID
		created, err := a.persist(ctx, &be, frame)
		if err != nil {
			return nil, err
		}
		if created {
			a.bufferedAlerts.Add(1)
		}
		events = append(events, be)
	}

	a.logger.Debug().
		Str("camera_id", trigger.CameraID).
		Str("trigger_id", trigger.ID).
		Int("buffered_frames", len(frames)).
		Int("buffered_events", len(events)).
		Msg("Buffer re-scan complete")
	return events, nil
}

func (a *Agent) newEvent(frame models.Frame, d Decision, res analyzer.Result) models.DetectionEvent {
	ts := frame.CapturedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return models.DetectionEvent{
		Source:        a.cfg.Source,
		CameraID:      frame.CameraID,
		Location:      frame.Location,
		ZoneID:        frame.ZoneID,
		Type:          d.Type,
		Status:        "alert",
		Score:         d.Score,
		Labels:        res.Labels,
		Confidence:    d.Confidence,
		Severity:      d.Severity,
		Message:       d.Message,
		Timestamp:     ts,
		FrameSequence: frame.Sequence,
	}
}

// persist stores the frame image and the event. The event is written with
// create-if-absent semantics; an existing record is left untouched.
func (a *Agent) persist(ctx context.Context, event *models.DetectionEvent, frame models.Frame) (bool, error) {
	if a.media != nil && len(frame.Data) > 0 {
		ref, err := a.media.Save(ctx, media.FrameKey(frame.CameraID, event.ID), "image/jpeg", bytes.NewReader(frame.Data))
		if err != nil {
			return false, fmt.Errorf("store frame for event %s: %w", event.ID, err)
		}
		event.MediaRef = ref
	}

	created, err := storage.CreateJSON(ctx, a.store, storage.PrefixDetections+event.ID, event)
	if err != nil {
		return false, fmt.Errorf("persist event %s: %w", event.ID, err)
	}
	if !created {
		a.logger.Debug().Str("event_id", event.ID).Msg("Event already stored, skipping duplicate")
	}
	return created, nil
}

// Stats describes the agent's activity
type Stats struct {
	Source         models.AgentSource `json:"source"`
	FramesSeen     int64              `json:"frames_seen"`
	AlertsRaised   int64              `json:"alerts_raised"`
	BufferedAlerts int64              `json:"buffered_alerts"`
	Cameras        int                `json:"cameras"`
}

func (a *Agent) Stats() Stats {
	return Stats{
		Source:         a.cfg.Source,
		FramesSeen:     a.framesSeen.Load(),
		AlertsRaised:   a.alertsRaised.Load(),
		BufferedAlerts: a.bufferedAlerts.Load(),
		Cameras:        a.buffer.Cameras(),
	}
}
