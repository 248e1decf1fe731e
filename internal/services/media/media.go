// Package media stores uploaded videos and alerting frames and returns a
// reference that can be attached to events.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"drishti-worker-go/internal/config"
)

// Store persists binary objects
type Store interface {
	// Save writes body under key and returns a reference to the stored object.
	Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error)
}

// New builds the backend selected by cfg.MediaBackend
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MediaBackend {
	case "", "filesystem":
		return NewFilesystemStore(cfg.MediaDir, cfg.MediaBaseURL)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// VideoKey is the object key for an uploaded video
func VideoKey(cameraID, filename string, at time.Time) string {
	return path.Join("videos", sanitize(cameraID), at.UTC().Format("20060102T150405.000Z")+"_"+sanitize(path.Base(filename)))
}

// FrameKey is the object key for a frame attached to a detection event
func FrameKey(cameraID, eventID string) string {
	return path.Join("frames", sanitize(cameraID), sanitize(eventID)+".jpg")
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" || s == "." {
		return "unnamed"
	}
	return s
}
