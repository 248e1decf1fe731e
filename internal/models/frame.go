package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Frame is a single selected image tagged with its source metadata.
// Frames are immutable once created.
type Frame struct {
	Data       []byte
	CameraID   string
	Location   string
	ZoneID     string
	Sequence   int64
	CapturedAt time.Time
	Width      int
	Height     int
}

// Key identifies a frame by camera, capture sequence, capture time and content.
// Redelivered copies of the same frame message produce the same key.
func (f Frame) Key() string {
	sum := sha256.Sum256(f.Data)
	return f.CameraID + "|" +
		strconv.FormatInt(f.Sequence, 10) + "|" +
		strconv.FormatInt(f.CapturedAt.UnixNano(), 10) + "|" +
		hex.EncodeToString(sum[:8])
}

// FrameMessage is the payload published on the bottleneck and anomaly topics
type FrameMessage struct {
	BatchID    string    `json:"batch_id" msgpack:"batch_id"`
	Frame      []byte    `json:"frame" msgpack:"frame"`
	CameraID   string    `json:"camera_id" msgpack:"camera_id"`
	Location   string    `json:"location" msgpack:"location"`
	ZoneID     string    `json:"zone_id" msgpack:"zone_id"`
	Sequence   int64     `json:"sequence" msgpack:"sequence"`
	CapturedAt time.Time `json:"captured_at" msgpack:"captured_at"`
	Width      int       `json:"width,omitempty" msgpack:"width,omitempty"`
	Height     int       `json:"height,omitempty" msgpack:"height,omitempty"`
}

// NewFrameMessage wraps a frame for publishing
func NewFrameMessage(batchID string, f Frame) FrameMessage {
	return FrameMessage{
		BatchID:    batchID,
		Frame:      f.Data,
		CameraID:   f.CameraID,
		Location:   f.Location,
		ZoneID:     f.ZoneID,
		Sequence:   f.Sequence,
		CapturedAt: f.CapturedAt,
		Width:      f.Width,
		Height:     f.Height,
	}
}

// Validate checks the fields every detection agent relies on
func (m FrameMessage) Validate() error {
	if m.CameraID == "" {
		return errors.New("frame message missing camera_id")
	}
	if len(m.Frame) == 0 {
		return errors.New("frame message missing frame data")
	}
	return nil
}

// ToFrame converts the wire message back into a Frame
func (m FrameMessage) ToFrame() Frame {
	return Frame{
		Data:       m.Frame,
		CameraID:   m.CameraID,
		Location:   m.Location,
		ZoneID:     m.ZoneID,
		Sequence:   m.Sequence,
		CapturedAt: m.CapturedAt,
		Width:      m.Width,
		Height:     m.Height,
	}
}
