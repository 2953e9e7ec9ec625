package session

import (
	"fmt"

	"stronglink/kvstore"
	"stronglink/slnerr"
)

// Filter is the boundary to the out-of-scope query/filter evaluator:
// CopyFilteredURIs treats it as an opaque predicate over content URIs,
// leaving how a filter expression compiles down to one as someone
// else's concern.
type Filter func(uri string) bool

// CopyFilteredURIs opens a read-only transaction, walks the file->URI
// index in descending fileID order (most recently filed first), and
// drains up to max URIs that satisfy filter. Session mode is not
// consulted here; see RequireCapability for gating reads at the caller.
func (s *Session) CopyFilteredURIs(filter Filter, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	backend := s.cache.Backend()
	db := backend.DB()

	prefix := []byte{byte(kvstore.TagFileIDAndURI)}
	var out []string
	err := db.View(func(txn *kvstore.Txn) error {
		return txn.CursorReverse(prefix, func(key, _ []byte) (bool, error) {
			_, uri := kvstore.ParseKeyFileIDAndURI(key)
			if filter == nil || filter(uri) {
				out = append(out, uri)
			}
			return len(out) < max, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("session: copy filtered uris: %w", err)
	}
	return out, nil
}

// FileInfo is the resolved file record for a content URI.
type FileInfo struct {
	Hash string
	Path string
	Type string
	Size uint64
}

// GetFileInfo resolves uri to the first (internalHash, type, size) found
// via the (URI, fileID) index. An absent URI returns slnerr.ErrNotFound.
func (s *Session) GetFileInfo(uri string) (*FileInfo, error) {
	backend := s.cache.Backend()
	db := backend.DB()

	var info *FileInfo
	err := db.View(func(txn *kvstore.Txn) error {
		prefix := kvstore.PrefixURIAndFileID(uri)
		var fileID uint64
		var found bool
		if err := txn.Cursor(prefix, func(key, _ []byte) (bool, error) {
			id, ok := kvstore.ParseKeyURIAndFileID(key, uri)
			if !ok {
				return true, nil
			}
			fileID = id
			found = true
			return false, nil
		}); err != nil {
			return err
		}
		if !found {
			return nil
		}

		val, ok, err := txn.Get(kvstore.KeyFileByID(fileID))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session: get file info: dangling uri index for %q", uri)
		}
		internalHash, typ, size := kvstore.ParseValFile(val)
		info = &FileInfo{
			Hash: internalHash,
			Path: backend.InternalPath(internalHash),
			Type: typ,
			Size: size,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: get file info: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("session: get file info: %q: %w", uri, slnerr.ErrNotFound)
	}
	return info, nil
}

// GetValueForField returns the first non-empty value of field across
// every meta-file targeting fileURI, truncated to maxBytes. An absent
// field, or a field whose only values are empty strings, returns
// slnerr.ErrNotFound.
func (s *Session) GetValueForField(fileURI, field string, maxBytes int) (string, error) {
	backend := s.cache.Backend()
	db := backend.DB()

	var value string
	var found bool
	err := db.View(func(txn *kvstore.Txn) error {
		metaPrefix := kvstore.PrefixTargetURIAndMetaFileID(fileURI)
		return txn.Cursor(metaPrefix, func(metaKey, _ []byte) (bool, error) {
			metaFileID := kvstore.ParseKeyTargetURIAndMetaFileID(metaKey)

			valPrefix := kvstore.PrefixMetaFileIDField(metaFileID, field)
			cursorErr := txn.Cursor(valPrefix, func(valKey, _ []byte) (bool, error) {
				v := kvstore.ParseKeyMetaFileIDFieldAndValue(valKey, metaFileID, field)
				if v == "" {
					return true, nil
				}
				if maxBytes > 0 && len(v) > maxBytes {
					v = v[:maxBytes]
				}
				value = v
				found = true
				return false, nil
			})
			if cursorErr != nil {
				return false, cursorErr
			}
			return !found, nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("session: get value for field: %w", err)
	}
	if !found {
		return "", fmt.Errorf("session: get value for field: %q/%q: %w", fileURI, field, slnerr.ErrNotFound)
	}
	return value, nil
}
