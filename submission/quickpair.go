package submission

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"stronglink/blobstore"
	"stronglink/extractor"
)

// QuickPair submits r's bytes as a content submission of type typ, then
// recursively submits the content submission's own extracted meta body
// (if any) as a second, independent submission of the reserved meta
// type, targeting the content submission's primary URI. Both
// submissions are returned Ended but not yet Filed or Stored; the
// caller runs AddFile on each and commits them together through one
// index.Writer.StoreBatch call. meta is nil if the content type
// produced no extractable body.
//
// The two submissions are kept as independent objects, each owning its
// own temp file, hasher, and extractor, rather than one submission
// secretly wearing two hats: this keeps Submission's state machine and
// resource ownership uniform regardless of which pipeline stage
// constructed it.
func QuickPair(blobs *blobstore.Store, log *zap.SugaredLogger, userID uint64, typ string, r io.Reader, title string) (content, meta *Submission, err error) {
	content, err = Begin(blobs, log, userID, typ, title)
	if err != nil {
		return nil, nil, err
	}
	if err := content.WriteFrom(r); err != nil {
		content.Release()
		return nil, nil, fmt.Errorf("submission: quickPair: content: %w", err)
	}

	body := content.MetaBody()
	if body == nil {
		return content, nil, nil
	}

	encoded, err := extractor.EncodeMetaBody(content.PrimaryURI(), body)
	if err != nil {
		content.Release()
		return nil, nil, fmt.Errorf("submission: quickPair: encode meta body: %w", err)
	}

	meta, err = Begin(blobs, log, userID, extractor.MetaType, "")
	if err != nil {
		content.Release()
		return nil, nil, fmt.Errorf("submission: quickPair: begin meta: %w", err)
	}
	if err := meta.Write(encoded); err != nil {
		content.Release()
		meta.Release()
		return nil, nil, fmt.Errorf("submission: quickPair: write meta: %w", err)
	}
	if err := meta.End(); err != nil {
		content.Release()
		meta.Release()
		return nil, nil, fmt.Errorf("submission: quickPair: end meta: %w", err)
	}

	return content, meta, nil
}
