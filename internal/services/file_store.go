package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// FileStore keeps uploaded photos and rendered documents under one directory
type FileStore interface {
	Write(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	Path(name string) (string, error)
}

// LocalFileStore is a FileStore on the local filesystem
type LocalFileStore struct {
	root   string
	logger *observability.Logger
}

// NewLocalFileStore creates root if needed
func NewLocalFileStore(root string, logger *observability.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStorage, contextutils.SeverityError,
			"failed to create storage directory", root, err)
	}
	return &LocalFileStore{root: root, logger: logger}, nil
}

// Path resolves name inside the store. Names containing separators are rejected.
func (s *LocalFileStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid file name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// Write stores data under name atomically: a temp file in the same directory is renamed into place
func (s *LocalFileStore) Write(ctx context.Context, name string, data []byte) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "write_file", attribute.String("file.name", name), attribute.Int("file.size", len(data)))
	defer observability.FinishSpan(span, &err)

	target, err := s.Path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return storageError("failed to create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageError("failed to write file", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return storageError("failed to sync file", err)
	}
	if err = tmp.Close(); err != nil {
		return storageError("failed to close file", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return storageError("failed to set file mode", err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return storageError("failed to move file into place", err)
	}
	return nil
}

// Open returns a reader for name. A missing file is ErrRecordNotFound.
func (s *LocalFileStore) Open(ctx context.Context, name string) (result0 io.ReadCloser, err error) {
	_, span := observability.TraceStorageFunction(ctx, "open_file", attribute.String("file.name", name))
	defer observability.FinishSpan(span, &err)

	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "file %s not found", name)
	}
	if err != nil {
		return nil, storageError("failed to open file", err)
	}
	return f, nil
}

// Remove deletes name. Removing a missing file is not an error.
func (s *LocalFileStore) Remove(ctx context.Context, name string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "remove_file", attribute.String("file.name", name))
	defer observability.FinishSpan(span, &err)

	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageError("failed to remove file", err)
	}
	return nil
}

// removeFiles deletes stored files after their rows are gone, logging failures
func removeFiles(ctx context.Context, store FileStore, logger *observability.Logger, names []string) {
	if store == nil {
		return
	}
	for _, name := range names {
		if err := store.Remove(ctx, name); err != nil {
			logger.Warn(ctx, "Failed to remove stored file", map[string]interface{}{"file": name, "error": err.Error()})
		}
	}
}

func storageError(msg string, cause error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStorage, contextutils.SeverityError, msg, fmt.Sprint(cause), cause)
}
