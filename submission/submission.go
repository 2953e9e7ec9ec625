// Package submission orchestrates one ingest: it fans bytes out to the
// blob store, the hasher, and the meta extractor simultaneously, and
// carries the Open -> Ended -> Filed -> Stored state machine that
// governs when a submission's blob and index records become durable.
package submission

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"stronglink/blobstore"
	"stronglink/extractor"
	"stronglink/hasher"
	"stronglink/slnerr"
)

// State is a submission's position in its one-way lifecycle.
type State int

const (
	// Open accepts Write calls; the only state Write and End are valid in.
	Open State = iota
	// Ended means End has run: the hasher and extractor are finalized and
	// the temp file is closed but not yet linked into the blob store.
	Ended
	// Filed means AddFile has run: the blob is committed on disk.
	Filed
	// Stored names the state after the index writer has committed this
	// submission's records. Nothing in this module sets it: Submission
	// has no transition into Stored, and index.Writer.StoreBatch leaves
	// the submissions it commits in Filed.
	Stored
)

// Submission is a single ingest in flight. It owns its temp file, hasher,
// and extractor exclusively; Release tears all three down in reverse
// order. A Submission is not safe for concurrent use.
type Submission struct {
	blobs *blobstore.Store
	log   *zap.SugaredLogger

	Type     string
	UserID   uint64
	state    State

	tmpPath string
	tmpFile *os.File
	size    uint64

	hash *hasher.Hasher
	ext  *extractor.Extractor

	uris         []string
	internalHash string
}

// Begin allocates a temp file, a hasher, and an extractor for a new
// submission of the declared type. title, if non-empty, is passed to the
// extractor out-of-band, independent of the submitted bytes.
func Begin(blobs *blobstore.Store, log *zap.SugaredLogger, userID uint64, typ, title string) (*Submission, error) {
	if typ == "" {
		return nil, fmt.Errorf("submission: begin: %w", slnerr.ErrInvalidArgument)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tmpPath, f, err := blobs.NewTemp()
	if err != nil {
		return nil, err
	}
	return &Submission{
		blobs:   blobs,
		log:     log,
		Type:    typ,
		UserID:  userID,
		state:   Open,
		tmpPath: tmpPath,
		tmpFile: f,
		hash:    hasher.New(typ),
		ext:     extractor.New(typ, title),
	}, nil
}

// State returns the submission's current lifecycle state.
func (s *Submission) State() State { return s.state }

// Write appends buf to the temp file at the current size offset and
// fans it out to the hasher and extractor. Valid only in Open.
func (s *Submission) Write(buf []byte) error {
	if s.state != Open {
		return fmt.Errorf("submission: write: not open: %w", slnerr.ErrInvalidArgument)
	}
	n, err := s.tmpFile.Write(buf)
	if err != nil {
		return fmt.Errorf("submission: write: %w: %w", err, slnerr.ErrIO)
	}
	if n != len(buf) {
		return fmt.Errorf("submission: short write (%d of %d): %w", n, len(buf), slnerr.ErrIO)
	}
	s.size += uint64(n)
	s.hash.Write(buf)
	s.ext.Write(buf)
	return nil
}

// End finalizes the hasher (capturing the URI list and internal hash)
// and the extractor, then fsyncs and closes the temp file. Valid only
// in Open; afterward the submission is immutable but not yet on disk
// at its canonical path.
func (s *Submission) End() error {
	if s.state != Open {
		return fmt.Errorf("submission: end: not open: %w", slnerr.ErrInvalidArgument)
	}
	s.uris = s.hash.End()
	s.internalHash = s.hash.InternalHash()

	if err := s.tmpFile.Sync(); err != nil {
		return fmt.Errorf("submission: end: fsync: %w: %w", err, slnerr.ErrIO)
	}
	if err := s.tmpFile.Close(); err != nil {
		return fmt.Errorf("submission: end: close: %w: %w", err, slnerr.ErrIO)
	}
	s.state = Ended
	return nil
}

// AddFile hard-links the temp blob into its canonical path. Valid only
// in Ended.
func (s *Submission) AddFile() error {
	if s.state != Ended {
		return fmt.Errorf("submission: addFile: not ended: %w", slnerr.ErrInvalidArgument)
	}
	// End already fsynced and closed the temp file, so Commit only needs
	// to link it into place.
	if err := s.blobs.Commit(s.tmpPath, s.internalHash); err != nil {
		return err
	}
	s.tmpPath = ""
	s.state = Filed
	return nil
}

// WriteFrom is a pull loop: it repeatedly reads from r and writes to the
// submission until io.EOF, then calls End automatically.
func (s *Submission) WriteFrom(r io.Reader) error {
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := s.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("submission: writeFrom: read: %w: %w", err, slnerr.ErrIO)
		}
	}
	return s.End()
}

// PrimaryURI returns the first content URI. Valid only after End.
func (s *Submission) PrimaryURI() string {
	if len(s.uris) == 0 {
		return ""
	}
	return s.uris[0]
}

// URIs returns the full content URI list. Valid only after End.
func (s *Submission) URIs() []string { return s.uris }

// InternalHash returns the canonical digest naming this blob. Valid only
// after End.
func (s *Submission) InternalHash() string { return s.internalHash }

// Size returns the number of bytes written so far.
func (s *Submission) Size() uint64 { return s.size }

// MetaBody returns the extractor's finalized field map, or nil if the
// declared type produced none. Valid only after End.
func (s *Submission) MetaBody() *extractor.Body {
	return s.ext.End()
}

// Release unconditionally tears the submission down: the temp file is
// unlinked if still present (no-op once AddFile has run), and all
// buffers are dropped. It is always safe to call, including after a
// successful AddFile.
func (s *Submission) Release() {
	if s.tmpPath != "" {
		if err := s.blobs.Abort(s.tmpPath); err != nil {
			s.log.Warnw("submission release: abort failed", "path", s.tmpPath, "error", err)
		}
		s.tmpPath = ""
	}
	if s.tmpFile != nil {
		s.tmpFile.Close()
		s.tmpFile = nil
	}
	s.hash = nil
	s.ext = nil
}
