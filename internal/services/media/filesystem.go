package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FilesystemStore writes objects below a root directory
type FilesystemStore struct {
	root    string
	baseURL string
}

func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", abs).Msg("Media store initialized (filesystem)")
	return &FilesystemStore{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FilesystemStore) Save(ctx context.Context, key, _ string, body io.ReadSeeker) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	// write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", key, err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return "file://" + filepath.ToSlash(dst), nil
}
