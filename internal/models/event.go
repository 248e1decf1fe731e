package models

import (
	"strings"
	"time"
)

// AgentSource names the detection agent that produced an event
type AgentSource string

const (
	SourceBottleneck AgentSource = "bottleneck"
	SourceAnomaly    AgentSource = "anomaly"
)

// Severity represents the severity level of a detection
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as min
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() > 0 && s.Rank() >= min.Rank()
}

// ParseSeverity normalizes a free-form severity string
func ParseSeverity(s string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(s)))
}

// DetectionEvent is an immutable log entry created by a detection agent
type DetectionEvent struct {
	ID            string      `json:"id" msgpack:"id"`
	Source        AgentSource `json:"source" msgpack:"source"`
	CameraID      string      `json:"camera_id" msgpack:"camera_id"`
	Location      string      `json:"location" msgpack:"location"`
	ZoneID        string      `json:"zone_id" msgpack:"zone_id"`
	Type          string      `json:"type" msgpack:"type"`
	Status        string      `json:"status" msgpack:"status"`
	Score         float64     `json:"score" msgpack:"score"`
	Labels        []string    `json:"labels,omitempty" msgpack:"labels,omitempty"`
	Confidence    float64     `json:"confidence" msgpack:"confidence"`
	Severity      Severity    `json:"severity" msgpack:"severity"`
	Message       string      `json:"message" msgpack:"message"`
	Timestamp     time.Time   `json:"timestamp" msgpack:"timestamp"`
	MediaRef      string      `json:"file_url,omitempty" msgpack:"file_url,omitempty"`
	FrameSequence int64       `json:"frame_sequence" msgpack:"frame_sequence"`
	Buffered      bool        `json:"buffered,omitempty" msgpack:"buffered,omitempty"`
	TriggerID     string      `json:"trigger_id,omitempty" msgpack:"trigger_id,omitempty"`
}

// AlertMessage is the normalized alert published to the summary topic
type AlertMessage struct {
	EventID         string      `json:"event_id" msgpack:"event_id"`
	Source          AgentSource `json:"source" msgpack:"source"`
	CameraID        string      `json:"camera_id" msgpack:"camera_id"`
	Location        string      `json:"location" msgpack:"location"`
	ZoneID          string      `json:"zone_id" msgpack:"zone_id"`
	Type            string      `json:"type" msgpack:"type"`
	Severity        Severity    `json:"severity" msgpack:"severity"`
	Message         string      `json:"message" msgpack:"message"`
	Labels          []string    `json:"labels,omitempty" msgpack:"labels,omitempty"`
	Score           float64     `json:"score" msgpack:"score"`
	Confidence      float64     `json:"confidence" msgpack:"confidence"`
	Timestamp       time.Time   `json:"timestamp" msgpack:"timestamp"`
	MediaRef        string      `json:"file_url,omitempty" msgpack:"file_url,omitempty"`
	RelatedEventIDs []string    `json:"related_event_ids,omitempty" msgpack:"related_event_ids,omitempty"`
}

// Alert builds the summary-topic message for an event
func (e DetectionEvent) Alert(related []string) AlertMessage {
	return AlertMessage{
		EventID:         e.ID,
		Source:          e.Source,
		CameraID:        e.CameraID,
		Location:        e.Location,
		ZoneID:          e.ZoneID,
		Type:            e.Type,
		Severity:        e.Severity,
		Message:         e.Message,
		Labels:          e.Labels,
		Score:           e.Score,
		Confidence:      e.Confidence,
		Timestamp:       e.Timestamp,
		MediaRef:        e.MediaRef,
		RelatedEventIDs: related,
	}
}

// CriticalEvent is a detection promoted for field dispatch
type CriticalEvent struct {
	EventID   string    `json:"eventId" msgpack:"eventId" binding:"required"`
	Type      string    `json:"type" msgpack:"type" binding:"required"`
	Severity  Severity  `json:"severity" msgpack:"severity" binding:"required"`
	Location  string    `json:"location" msgpack:"location"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	CameraID  string    `json:"camera_id,omitempty" msgpack:"camera_id,omitempty"`
	ZoneID    string    `json:"zone_id,omitempty" msgpack:"zone_id,omitempty"`
}

// Critical promotes the event for dispatch
func (e DetectionEvent) Critical() CriticalEvent {
	return CriticalEvent{
		EventID:   e.ID,
		Type:      e.Type,
		Severity:  e.Severity,
		Location:  e.Location,
		Timestamp: e.Timestamp,
		CameraID:  e.CameraID,
		ZoneID:    e.ZoneID,
	}
}
