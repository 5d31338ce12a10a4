package backup

import (
	"io"
	"os"
)

// copyBufferSize bounds the memory used while moving dump data between
// stages and into storage.
const copyBufferSize = 64 * 1024

// Artifact is a backup in flight: a temp-file backed byte stream plus the
// filename it will carry into storage. The stream is seekable from the
// start, which storage adapters rely on to re-read from offset zero.
//
// Ownership is exclusive: each transform stage consumes its input artifact
// and returns a fresh one. Close releases the temp file on every exit
// path, success or failure.
type Artifact struct {
	// Filename is the storage name the artifact will be written under.
	// Transform stages append their suffix to it.
	Filename string

	file   *os.File
	closed bool
}

// NewArtifact creates an empty artifact backed by a fresh temp file.
func NewArtifact(filename string) (*Artifact, error) {
	file, err := os.CreateTemp("", "dbbackup-*")
	if err != nil {
		return nil, NewTransformError("failed to create temp file for backup artifact", err)
	}
	return &Artifact{Filename: filename, file: file}, nil
}

// Write appends data to the artifact stream.
func (a *Artifact) Write(p []byte) (int, error) {
	return a.file.Write(p)
}

// Read reads from the artifact stream at its current offset.
func (a *Artifact) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

// Seek repositions the artifact stream.
func (a *Artifact) Seek(offset int64, whence int) (int64, error) {
	return a.file.Seek(offset, whence)
}

// Rewind repositions the stream at offset zero, readying it for a full
// re-read by the next stage or by a storage adapter.
func (a *Artifact) Rewind() error {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return NewTransformError("failed to rewind backup artifact", err)
	}
	return nil
}

// Path returns the location of the backing temp file.
func (a *Artifact) Path() string {
	return a.file.Name()
}

// Size returns the current length of the artifact stream in bytes.
func (a *Artifact) Size() (int64, error) {
	info, err := a.file.Stat()
	if err != nil {
		return 0, NewTransformError("failed to stat backup artifact", err)
	}
	return info.Size(), nil
}

// Close closes and removes the backing temp file. It is idempotent so
// deferred cleanup can coexist with explicit cleanup on error paths.
func (a *Artifact) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	name := a.file.Name()
	closeErr := a.file.Close()
	removeErr := os.Remove(name)
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}
