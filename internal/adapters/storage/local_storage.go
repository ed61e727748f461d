package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
)

// LocalStorage implements ports.BlobStore over a directory tree. The bucket
// of a FileRef is a sub directory of root; files are read in place so
// nothing needs releasing.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &LocalStorage{root: abs}, nil
}

func (s *LocalStorage) resolve(ref ports.FileRef) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(ref.Bucket), filepath.FromSlash(ref.Object))
	if path != s.root && !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", appError.NewFileAccessError(ref.String(), fmt.Errorf("%w: path escapes storage root", appError.ErrObjectUnreadable))
	}
	return path, nil
}

func (s *LocalStorage) Metadata(ctx context.Context, ref ports.FileRef) (*ports.ObjectMetadata, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appError.NewFileAccessError(ref.String(), appError.ErrObjectNotFound)
		}
		return nil, appError.NewFileAccessError(ref.String(), fmt.Errorf("%w: %v", appError.ErrObjectUnreadable, err))
	}
	if info.IsDir() {
		return nil, appError.NewFileAccessError(ref.String(), appError.ErrObjectNotFound)
	}

	meta := &ports.ObjectMetadata{
		Name:         ref.Object,
		Bucket:       ref.Bucket,
		Size:         info.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		LastModified: info.ModTime(),
	}
	// Same value MinIO reports as the ETag of a single part upload.
	if data, err := os.ReadFile(path); err == nil {
		sum := md5.Sum(data)
		meta.ETag = hex.EncodeToString(sum[:])
		meta.Checksum = meta.ETag
	}
	return meta, nil
}

func (s *LocalStorage) Fetch(ctx context.Context, ref ports.FileRef) (*ports.StagedObject, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appError.NewFileAccessError(ref.String(), appError.ErrObjectNotFound)
		}
		return nil, appError.NewFileAccessError(ref.String(), fmt.Errorf("%w: %v", appError.ErrObjectUnreadable, err))
	}
	return &ports.StagedObject{Ref: ref, Data: data}, nil
}

func (s *LocalStorage) Release(ctx context.Context, obj *ports.StagedObject) error {
	return nil
}

func (s *LocalStorage) CleanupStaging(ctx context.Context) error {
	return nil
}
