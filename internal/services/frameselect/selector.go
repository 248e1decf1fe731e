// Package frameselect picks the frames of a video worth analysing by
// scoring each frame against the frame immediately before it.
package frameselect

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// DefaultThreshold is the mean absolute luminance change (0..1) a frame must exceed
const DefaultThreshold = 0.1

var errBadPlane = errors.New("luminance plane does not match frame dimensions")

// RawFrame is one decoded video frame
type RawFrame struct {
	Index     int
	Offset    time.Duration
	Width     int
	Height    int
	Luma      []byte // Width*Height 8-bit luminance samples
	Image     []byte // encoded JPEG
	Timestamp time.Time
}

// DecodeError reports a frame that could not be decoded
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Scorer rates the change between two frames of equal dimensions, 0..1
type Scorer func(prev, cur RawFrame) float64

type Selector struct {
	Threshold float64
	Score     Scorer
}

func New(threshold float64, score Scorer) *Selector {
	return &Selector{Threshold: threshold, Score: score}
}

func (s *Selector) score(prev, cur RawFrame) float64 {
	if prev.Width != cur.Width || prev.Height != cur.Height {
		return 1.0
	}
	return s.Score(prev, cur)
}

// Select lazily filters src in one pass. The first frame is always selected;
// later frames are selected when their score against the previous raw frame
// is strictly above the threshold. The sequence ends at the first error.
func (s *Selector) Select(src iter.Seq2[RawFrame, error]) iter.Seq2[RawFrame, error] {
	return func(yield func(RawFrame, error) bool) {
		var (
			prev    RawFrame
			hasPrev bool
			index   int
		)

		for frame, err := range src {
			if err == nil && len(frame.Luma) != frame.Width*frame.Height {
				err = errBadPlane
			}
			if err != nil {
				var de *DecodeError
				if !errors.As(err, &de) {
					err = &DecodeError{Index: index, Err: err}
				}
				yield(RawFrame{}, err)
				return
			}

			selected := !hasPrev || s.score(prev, frame) > s.Threshold
			prev, hasPrev = frame, true
			index++

			if selected && !yield(frame, nil) {
				return
			}
		}
	}
}

// Collect drains Select. On any error no frames are returned.
func (s *Selector) Collect(src iter.Seq2[RawFrame, error]) ([]RawFrame, error) {
	var out []RawFrame
	for frame, err := range s.Select(src) {
		if err != nil {
			return nil, err
		}
		out = append(out, frame)
	}
	return out, nil
}

// FromSlice adapts an in-memory frame list to a source sequence
func FromSlice(frames []RawFrame) iter.Seq2[RawFrame, error] {
	return func(yield func(RawFrame, error) bool) {
		for _, f := range frames {
			if !yield(f, nil) {
				return
			}
		}
	}
}
