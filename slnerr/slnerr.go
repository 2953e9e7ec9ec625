// Package slnerr defines the sentinel error kinds shared across the
// submission and indexing pipeline.
package slnerr

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", Err...) for
// context; callers match with errors.Is.
var (
	// ErrInvalidArgument covers a null session, missing type, or an
	// out-of-range username/password.
	ErrInvalidArgument = errors.New("sln: invalid argument")

	// ErrIO covers filesystem failures: temp-file creation after one
	// mkdir retry, short writes, fsync/close failures.
	ErrIO = errors.New("sln: io error")

	// ErrDuplicate covers a no-overwrite insert collision that is not
	// locally recoverable (e.g. a duplicate username).
	ErrDuplicate = errors.New("sln: duplicate")

	// ErrTransaction covers a KV begin/commit failure.
	ErrTransaction = errors.New("sln: transaction error")

	// ErrNotFound covers a URI lookup with no matching file.
	ErrNotFound = errors.New("sln: not found")

	// ErrCapabilityDenied covers a session mode lacking a required bit.
	ErrCapabilityDenied = errors.New("sln: capability denied")

	// ErrLimitExceeded covers a submission input exceeding a hard byte
	// cap enforced at the ingest boundary (request body or header size),
	// as distinct from the extractor's FTSMax buffer, which truncates
	// silently rather than erroring.
	ErrLimitExceeded = errors.New("sln: limit exceeded")
)
