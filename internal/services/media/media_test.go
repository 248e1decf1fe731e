package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFilesystemStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	key := FrameKey("CAM_01", "evt-1")
	ref, err := store.Save(context.Background(), key, "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(ref, "file://") {
		t.Errorf("unexpected ref %s", ref)
	}

	got, err := os.ReadFile(filepath.Join(dir, "frames", "CAM_01", "evt-1.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "jpeg-bytes" {
		t.Errorf("stored %q", got)
	}
}

func TestFilesystemStoreBaseURL(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "http://media.local/")
	if err != nil {
		t.Fatal(err)
	}
	ref, err := store.Save(context.Background(), "videos/a.mp4", "video/mp4", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "http://media.local/videos/a.mp4" {
		t.Errorf("ref = %s", ref)
	}
}

func TestKeysAreSanitized(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	key := VideoKey("CAM/../01", "../../etc/passwd", at)
	if strings.Contains(key, "..") {
		t.Fatalf("key escapes media root: %s", key)
	}
	if !strings.HasPrefix(key, "videos/") {
		t.Fatalf("unexpected key %s", key)
	}
}
