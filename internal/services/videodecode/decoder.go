// Package videodecode turns an uploaded video file into a sequence of
// sampled frames for the frame selector.
package videodecode

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"drishti-worker-go/internal/services/frameselect"
)

var ErrNoFrames = errors.New("video contains no decodable frames")

// Decoder samples a video file at TargetFPS using OpenCV's FFmpeg backend
type Decoder struct {
	TargetFPS   float64
	JPEGQuality int
}

func NewDecoder(targetFPS float64) *Decoder {
	return &Decoder{TargetFPS: targetFPS, JPEGQuality: 90}
}

// Frames lazily decodes the file at path. Frames are read only as the
// sequence is consumed; the capture is released when iteration stops.
func (d *Decoder) Frames(ctx context.Context, path string) iter.Seq2[frameselect.RawFrame, error] {
	return func(yield func(frameselect.RawFrame, error) bool) {
		vc, err := gocv.OpenVideoCaptureWithAPI(path, gocv.VideoCaptureFFmpeg)
		if err != nil {
			yield(frameselect.RawFrame{}, &frameselect.DecodeError{Index: 0, Err: fmt.Errorf("open video: %w", err)})
			return
		}
		defer vc.Close()

		if !vc.IsOpened() {
			yield(frameselect.RawFrame{}, &frameselect.DecodeError{Index: 0, Err: errors.New("video capture is not opened")})
			return
		}

		sourceFPS := vc.Get(gocv.VideoCaptureFPS)
		if sourceFPS <= 0 || math.IsNaN(sourceFPS) {
			sourceFPS = 25
		}
		step := 1
		if d.TargetFPS > 0 && sourceFPS > d.TargetFPS {
			step = int(math.Round(sourceFPS / d.TargetFPS))
		}

		log.Debug().
			Str("path", path).
			Float64("source_fps", sourceFPS).
			Float64("target_fps", d.TargetFPS).
			Int("step", step).
			Msg("Decoding video")

		img := gocv.NewMat()
		defer img.Close()
		gray := gocv.NewMat()
		defer gray.Close()

		sampled := 0
		for frameNo := 0; ; frameNo++ {
			select {
			case <-ctx.Done():
				yield(frameselect.RawFrame{}, ctx.Err())
				return
			default:
			}

			if ok := vc.Read(&img); !ok || img.Empty() {
				if frameNo == 0 {
					yield(frameselect.RawFrame{}, &frameselect.DecodeError{Index: 0, Err: ErrNoFrames})
				}
				return
			}
			if frameNo%step != 0 {
				continue
			}

			frame, err := d.convert(img, &gray, sampled, frameNo, sourceFPS)
			if err != nil {
				yield(frameselect.RawFrame{}, &frameselect.DecodeError{Index: sampled, Err: err})
				return
			}
			sampled++
			if !yield(frame, nil) {
				return
			}
		}
	}
}

func (d *Decoder) convert(img gocv.Mat, gray *gocv.Mat, index, frameNo int, fps float64) (frameselect.RawFrame, error) {
	if err := gocv.CvtColor(img, gray, gocv.ColorBGRToGray); err != nil {
		return frameselect.RawFrame{}, fmt.Errorf("convert to gray: %w", err)
	}

	quality := d.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return frameselect.RawFrame{}, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return frameselect.RawFrame{
		Index:  index,
		Offset: time.Duration(float64(frameNo) / fps * float64(time.Second)),
		Width:  img.Cols(),
		Height: img.Rows(),
		Luma:   gray.ToBytes(),
		Image:  append([]byte(nil), buf.GetBytes()...),
	}, nil
}

// MotionScore is the mean absolute difference of two gray planes, normalised
// to 0..1. Planes that cannot be wrapped as Mats score 1.
func MotionScore(prev, cur frameselect.RawFrame) float64 {
	a, err := gocv.NewMatFromBytes(prev.Height, prev.Width, gocv.MatTypeCV8U, prev.Luma)
	if err != nil {
		return 1.0
	}
	defer a.Close()
	b, err := gocv.NewMatFromBytes(cur.Height, cur.Width, gocv.MatTypeCV8U, cur.Luma)
	if err != nil {
		return 1.0
	}
	defer b.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(a, b, &diff); err != nil {
		return 1.0
	}
	return diff.Mean().Val1 / 255.0
}
