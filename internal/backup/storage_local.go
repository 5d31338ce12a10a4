package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage stores backup artifacts as files in a directory.
type LocalStorage struct {
	directory string
}

// NewLocalStorage creates the directory if needed and returns the adapter.
func NewLocalStorage(directory string) (*LocalStorage, error) {
	if directory == "" {
		return nil, NewValidationError("local storage directory is required", nil)
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, NewStorageError(
			fmt.Sprintf("failed to create storage directory %s", directory), err)
	}
	return &LocalStorage{directory: directory}, nil
}

func (s *LocalStorage) Name() string { return "local" }

func (s *LocalStorage) Root() string { return s.directory }

// Write creates or truncates the target file, so a filename collision
// within one timestamp window resolves as last-write-wins.
func (s *LocalStorage) Write(ctx context.Context, r io.ReadSeeker, filename string) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("storage write canceled", err)
	}

	target := filepath.Join(s.directory, filename)
	f, err := os.Create(target)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to create %s", target), err)
	}

	if _, err := io.CopyBuffer(f, r, make([]byte, copyBufferSize)); err != nil {
		f.Close()
		os.Remove(target)
		return NewStorageError(fmt.Sprintf("failed to write %s", target), err)
	}
	if err := f.Close(); err != nil {
		return NewStorageError(fmt.Sprintf("failed to close %s", target), err)
	}
	return nil
}

func (s *LocalStorage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("storage list canceled", err)
	}

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, NewStorageError(
			fmt.Sprintf("failed to list storage directory %s", s.directory), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *LocalStorage) Delete(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("storage delete canceled", err)
	}

	target := filepath.Join(s.directory, filename)
	if err := os.Remove(target); err != nil {
		return NewStorageError(fmt.Sprintf("failed to delete %s", target), err)
	}
	return nil
}
