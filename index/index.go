// Package index implements the transactional index writer: one
// read-write KV transaction per batch, writing file records, URI
// forward/reverse indexes, and meta-file entries.
package index

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"stronglink/blobstore"
	"stronglink/extractor"
	"stronglink/kvstore"
	"stronglink/slnerr"
	"stronglink/submission"
)

// Writer commits batches of finalized submissions against one DB.
type Writer struct {
	db    *kvstore.DB
	blobs *blobstore.Store
	log   *zap.SugaredLogger
}

// New constructs a Writer over db. blobs is needed to read back a
// committed meta-type submission's body so its target URI and fields can
// be parsed out of it.
func New(db *kvstore.DB, blobs *blobstore.Store, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Writer{db: db, blobs: blobs, log: log}
}

// StoreBatch commits every submission in subs within a single read-write
// transaction, in input order. All submissions must already be Filed
// (AddFile has run). On any per-submission error the whole transaction
// is aborted and no partial state is observable; subs are left Filed
// (their blobs remain on disk, which is safe since they are
// content-addressed and an unreferenced blob is just garbage).
//
// StoreBatch returns the highest meta-file id touched in the batch,
// which the caller publishes to the repo's notifier as the new
// high-water mark.
func (w *Writer) StoreBatch(subs []*submission.Submission) (uint64, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	for _, s := range subs {
		if s.State() != submission.Filed {
			return 0, fmt.Errorf("index: storeBatch: submission not filed: %w", slnerr.ErrInvalidArgument)
		}
	}

	var sortID uint64
	err := w.db.Update(func(txn *kvstore.Txn) error {
		for _, s := range subs {
			metaFileID, err := w.storeOne(txn, s)
			if err != nil {
				return err
			}
			if metaFileID > sortID {
				sortID = metaFileID
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("index: storeBatch: %w: %w", err, slnerr.ErrTransaction)
	}
	return sortID, nil
}

// storeOne performs the per-submission writes: file record, URI index,
// and, if the submission itself is a meta-file (its declared type is the
// reserved meta type), the meta-file commit.
func (w *Writer) storeOne(txn *kvstore.Txn, s *submission.Submission) (uint64, error) {
	fileID, err := w.storeFile(txn, s)
	if err != nil {
		return 0, err
	}
	if err := w.storeURIs(txn, fileID, s.URIs()); err != nil {
		return 0, err
	}

	if !extractor.IsMetaType(s.Type) {
		return 0, nil
	}
	return w.storeCommittedMetaFile(txn, s)
}

// storeCommittedMetaFile reads back s's own committed blob (s is itself a
// meta-file submission), parses its target URI and field map out of the
// wire body, and indexes them. This is the meta-file commit step: a
// meta-file's whole purpose is to attach fields to some other URI, so the
// index target comes from parsing the body, never from s's own primary
// URI.
func (w *Writer) storeCommittedMetaFile(txn *kvstore.Txn, s *submission.Submission) (uint64, error) {
	rc, err := w.blobs.Open(s.InternalHash())
	if err != nil {
		return 0, fmt.Errorf("index: open meta blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("index: read meta blob: %w", err)
	}

	targetURI, fields, err := extractor.ParseMetaBody(data)
	if err != nil {
		return 0, fmt.Errorf("index: parse meta body: %w", err)
	}
	return w.storeMetaFile(txn, targetURI, fields)
}

// storeFile allocates a candidate fileID, attempts a no-overwrite insert
// of (internalHash,type)->fileID, and reuses the winner's fileID on a
// collision so that identical content always resolves to one file record.
func (w *Writer) storeFile(txn *kvstore.Txn, s *submission.Submission) (uint64, error) {
	candidate, err := w.db.NextID(kvstore.TagFileByID)
	if err != nil {
		return 0, fmt.Errorf("index: next fileID: %w", err)
	}

	infoKey := kvstore.KeyFileIDByInfo(s.InternalHash(), s.Type)
	err = txn.Put(infoKey, kvstore.ValFileID(candidate), true)
	switch {
	case err == nil:
		fileKey := kvstore.KeyFileByID(candidate)
		fileVal := kvstore.ValFile(s.InternalHash(), s.Type, s.Size())
		if err := txn.Put(fileKey, fileVal, false); err != nil {
			return 0, fmt.Errorf("index: put file record: %w", err)
		}
		return candidate, nil
	case errors.Is(err, kvstore.ErrKeyExists):
		val, found, getErr := txn.Get(infoKey)
		if getErr != nil {
			return 0, getErr
		}
		if !found {
			return 0, fmt.Errorf("index: file info key vanished mid-transaction")
		}
		return kvstore.ParseValFileID(val), nil
	default:
		return 0, fmt.Errorf("index: file info insert: %w", err)
	}
}

// storeURIs idempotently inserts both directions of the URI<->file index.
func (w *Writer) storeURIs(txn *kvstore.Txn, fileID uint64, uris []string) error {
	for _, uri := range uris {
		fwd := kvstore.KeyFileIDAndURI(fileID, uri)
		if err := txn.Put(fwd, nil, true); err != nil && !errors.Is(err, kvstore.ErrKeyExists) {
			return fmt.Errorf("index: put forward uri index: %w", err)
		}
		rev := kvstore.KeyURIAndFileID(uri, fileID)
		if err := txn.Put(rev, nil, true); err != nil && !errors.Is(err, kvstore.ErrKeyExists) {
			return fmt.Errorf("index: put reverse uri index: %w", err)
		}
	}
	return nil
}

// storeMetaFile allocates a metaFileID and inserts the target-URI index
// and every (field, value) pair.
func (w *Writer) storeMetaFile(txn *kvstore.Txn, targetURI string, fields map[string][]string) (uint64, error) {
	metaFileID, err := w.db.NextID(kvstore.TagTargetURIAndMetaFileID)
	if err != nil {
		return 0, fmt.Errorf("index: next metaFileID: %w", err)
	}

	targetKey := kvstore.KeyTargetURIAndMetaFileID(targetURI, metaFileID)
	if err := txn.Put(targetKey, nil, false); err != nil {
		return 0, fmt.Errorf("index: put target uri index: %w", err)
	}

	for field, values := range fields {
		for _, value := range values {
			key := kvstore.KeyMetaFileIDFieldAndValue(metaFileID, field, value)
			if err := txn.Put(key, nil, false); err != nil {
				return 0, fmt.Errorf("index: put meta field/value: %w", err)
			}
		}
	}
	return metaFileID, nil
}
