package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	logger "batchingest/internal/shared/log"
)

const maxFilenameLength = 255

// stagingArea holds local copies of fetched objects until they are released.
type stagingArea struct {
	dir string
}

func newStagingArea(dir string) (*stagingArea, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "batch_files")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	return &stagingArea{dir: dir}, nil
}

// stage copies r into a uniquely named local file and returns its path and
// contents.
func (s *stagingArea) stage(objectName string, r io.Reader) (string, []byte, error) {
	path := filepath.Join(s.dir, uuid.NewString()[:8]+"_"+sanitizeFilename(objectName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	var buf bytes.Buffer
	_, copyErr := io.Copy(io.MultiWriter(f, &buf), r)
	closeErr := f.Close()
	if copyErr != nil {
		return path, nil, fmt.Errorf("failed to download object: %w", copyErr)
	}
	if closeErr != nil {
		return path, nil, fmt.Errorf("failed to write staging file: %w", closeErr)
	}
	return path, buf.Bytes(), nil
}

func (s *stagingArea) release(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged file %s: %w", path, err)
	}
	return nil
}

func (s *stagingArea) cleanup(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read staging dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	logger.Infof(ctx, "Staging cleanup removed %d files from %s", removed, s.dir)
	return nil
}

// sanitizeFilename flattens an object key into a safe local file name.
func sanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)

	var b strings.Builder
	for _, r := range name {
		if r < 128 && (r == '.' || r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')) {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if safe == "" || strings.Trim(safe, ".") == "" {
		safe = "downloaded_file"
	}
	if len(safe) > maxFilenameLength {
		ext := filepath.Ext(safe)
		if len(ext) > 10 {
			ext = ""
		}
		safe = safe[:maxFilenameLength-len(ext)-5] + ext
	}
	return safe
}
