// Package repo is the top-level registry tying together the blob store,
// the KV index, the session cache, and the submission notifier for one
// on-disk repository.
package repo

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"stronglink/blobstore"
	"stronglink/index"
	"stronglink/kvstore"
	"stronglink/notify"
	"stronglink/session"
	"stronglink/submission"
)

// Repo owns every durable and in-memory collaborator for one repository
// root: the blob store, the KV database, the session cache, and the
// index writer's submission notifier.
type Repo struct {
	log *zap.SugaredLogger

	blobs            *blobstore.Store
	db               *kvstore.DB
	registrationMode session.Mode
	cache            *session.Cache
	index            *index.Writer
	hwm              notify.HighWaterMark
}

// Open constructs a Repo rooted at opts.DataDir, opening (or creating)
// its KV database and wiring the blob store, session cache, and index
// writer around it.
func Open(opts Options, log *zap.SugaredLogger) (*Repo, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.DataDir == "" {
		return nil, fmt.Errorf("repo: open: empty data dir")
	}

	db, err := kvstore.Open(filepath.Join(opts.DataDir, "index"), log)
	if err != nil {
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	blobs := blobstore.New(filepath.Join(opts.DataDir, "blobs"))

	r := &Repo{
		log:              log,
		blobs:            blobs,
		db:               db,
		registrationMode: opts.RegistrationMode,
		index:            index.New(db, blobs, log),
	}
	cache, err := session.NewCache(r, opts.sessionCacheSize())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Close releases the underlying KV database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

// DB returns the KV database handle, satisfying session.Backend.
func (r *Repo) DB() *kvstore.DB { return r.db }

// RegistrationMode returns the mode granted to newly created accounts,
// satisfying session.Backend. A zero mode means registration is closed.
func (r *Repo) RegistrationMode() session.Mode { return r.registrationMode }

// InternalPath returns the on-disk path of a committed blob named by its
// internal hash, satisfying session.Backend.
func (r *Repo) InternalPath(internalHash string) string {
	return r.blobs.InternalPath(internalHash)
}

// Blobs returns the repo's blob store, for beginning new submissions.
func (r *Repo) Blobs() *blobstore.Store { return r.blobs }

// Cache returns the repo's session cache.
func (r *Repo) Cache() *session.Cache { return r.cache }

// StoreBatch commits subs through the index writer and advances the
// submission notifier's high-water mark to the batch's result, so any
// caller blocked in WaitForSortID observes the new submissions.
func (r *Repo) StoreBatch(subs []*submission.Submission) (uint64, error) {
	sortID, err := r.index.StoreBatch(subs)
	if err != nil {
		return 0, err
	}
	r.hwm.Advance(sortID)
	return sortID, nil
}

// SubmissionEmit re-publishes sortID to the notifier directly, for
// callers that commit a batch through some other index.Writer and only
// need this Repo's notifier updated to match.
func (r *Repo) SubmissionEmit(sortID uint64) {
	r.hwm.Advance(sortID)
}

// WaitForSortID blocks until the notifier's high-water mark exceeds
// after, or ctx ends.
func (r *Repo) WaitForSortID(ctx context.Context, after uint64) (uint64, error) {
	return r.hwm.Wait(ctx, after)
}
