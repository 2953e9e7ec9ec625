// Package blobstore implements a content-addressed, write-once blob
// store: temp-file staging, fsync, and hard-link into place under the
// blob's internal hash.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"stronglink/slnerr"
)

// Store roots temp and committed blobs under a single repository path:
//
//	<root>/tmp/<uuid>               in-flight submissions
//	<root>/blobs/<h[0:2]>/<h[2:4]>/<h>  committed blobs, fan-out by hash prefix
type Store struct {
	root string
}

// New returns a Store rooted at root. root's tmp/ and blobs/ subdirectories
// are created lazily, on demand, rather than eagerly provisioning a layout.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) tmpDir() string   { return filepath.Join(s.root, "tmp") }
func (s *Store) blobsDir() string { return filepath.Join(s.root, "blobs") }

// InternalPath returns the deterministic on-disk path for a committed
// blob named by its internal hash, under the store's hash-prefix
// fan-out layout.
func (s *Store) InternalPath(internalHash string) string {
	if len(internalHash) < 4 {
		return filepath.Join(s.blobsDir(), internalHash)
	}
	return filepath.Join(s.blobsDir(), internalHash[0:2], internalHash[2:4], internalHash)
}

// NewTemp creates a fresh, exclusively-owned temp file and returns its
// path and an open, write-only handle. The parent directory is created
// and the open retried exactly once on ENOENT.
func (s *Store) NewTemp() (string, *os.File, error) {
	path := filepath.Join(s.tmpDir(), uuid.NewString())
	f, err := openExclusive(path)
	if errors.Is(err, os.ErrNotExist) {
		if mkErr := os.MkdirAll(s.tmpDir(), 0700); mkErr != nil {
			return "", nil, fmt.Errorf("blobstore: mkdir %s: %w: %w", s.tmpDir(), mkErr, slnerr.ErrIO)
		}
		f, err = openExclusive(path)
	}
	if err != nil {
		return "", nil, fmt.Errorf("blobstore: create temp %s: %w: %w", path, err, slnerr.ErrIO)
	}
	return path, f, nil
}

func openExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_TRUNC|os.O_WRONLY, 0400)
}

// Sync fsyncs and closes an open temp file. Callers that write directly
// against the handle returned by NewTemp (rather than going through the
// submission pipeline, which performs this step itself as part of End)
// must call Sync before Commit: a blob must be fsynced and linked before
// any index entry is allowed to reference it.
func (s *Store) Sync(f *os.File) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("blobstore: fsync: %w: %w", err, slnerr.ErrIO)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("blobstore: close: %w: %w", err, slnerr.ErrIO)
	}
	return nil
}

// Commit hard-links an already-fsynced, closed temp file into its
// canonical internal path. EEXIST at the destination is treated as
// success (dedup: some other submission of identical content already
// won the race). After a successful link the temp file is unlinked.
func (s *Store) Commit(tmpPath string, internalHash string) error {
	dest := s.InternalPath(internalHash)
	err := os.Link(tmpPath, dest)
	if err != nil && !errors.Is(err, os.ErrExist) {
		if errors.Is(err, os.ErrNotExist) {
			if mkErr := os.MkdirAll(filepath.Dir(dest), 0700); mkErr != nil {
				return fmt.Errorf("blobstore: mkdir %s: %w: %w", filepath.Dir(dest), mkErr, slnerr.ErrIO)
			}
			err = os.Link(tmpPath, dest)
		}
	}
	if err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("blobstore: link %s -> %s: %w: %w", tmpPath, dest, err, slnerr.ErrIO)
	}

	if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return fmt.Errorf("blobstore: unlink temp %s: %w: %w", tmpPath, rmErr, slnerr.ErrIO)
	}
	return nil
}

// Abort unconditionally unlinks the temp file at path. Missing files are
// not an error: Abort is also called from release paths that may run
// after a file has already been committed or removed.
func (s *Store) Abort(tmpPath string) error {
	if tmpPath == "" {
		return nil
	}
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blobstore: abort unlink %s: %w: %w", tmpPath, err, slnerr.ErrIO)
	}
	return nil
}

// Open opens a committed blob for reading by its internal hash.
func (s *Store) Open(internalHash string) (io.ReadCloser, error) {
	f, err := os.Open(s.InternalPath(internalHash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blobstore: %s: %w", internalHash, slnerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w: %w", internalHash, err, slnerr.ErrIO)
	}
	return f, nil
}
