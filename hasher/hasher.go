// Package hasher implements a streaming multi-digest hasher: every
// write feeds all configured algorithms at once, and End() yields the
// full set of content URIs plus the designated internal hash.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"lukechampine.com/blake3"
)

// Algo names an algorithm in the canonical ordering. Element 0 is always
// the internal/primary algorithm.
type Algo string

const (
	// AlgoSHA256 is the internal hash algorithm: a strong SHA-2 family
	// digest, and the primary URI's algorithm.
	AlgoSHA256 Algo = "sha256"
	// AlgoBLAKE3 is a coexisting secondary digest.
	AlgoBLAKE3 Algo = "blake3"
)

// canonicalOrder fixes the stable order End() emits URIs in; element 0
// is the primary URI and AlgoSHA256 is the internal-hash algorithm.
var canonicalOrder = []Algo{AlgoSHA256, AlgoBLAKE3}

// Hasher is a stateful, streaming multi-digest accumulator for one
// submission. It is not safe for concurrent use.
type Hasher struct {
	mimeType string
	digests  map[Algo]hash.Hash
	ended    bool

	uris         []string
	internalHash string
}

// New constructs a Hasher for the declared MIME type. The type is
// currently unused by the hash set itself (all algorithms run over every
// MIME type) but is retained on the struct for parity with
// extractor.New's dispatch-by-type signature and potential future
// type-specific algorithm selection.
func New(mimeType string) *Hasher {
	h := &Hasher{
		mimeType: mimeType,
		digests: map[Algo]hash.Hash{
			AlgoSHA256: sha256.New(),
			AlgoBLAKE3: blake3.New(32, nil),
		},
	}
	return h
}

// Write feeds buf to every configured algorithm. Write after End panics.
func (h *Hasher) Write(buf []byte) {
	if h.ended {
		panic("hasher: write after end")
	}
	for _, d := range h.digests {
		d.Write(buf)
	}
}

// End finalizes all digests and returns the canonically-ordered URI list.
// The Hasher must not be written to again afterward.
func (h *Hasher) End() []string {
	if h.ended {
		return h.uris
	}
	h.ended = true

	uris := make([]string, 0, len(canonicalOrder))
	for _, algo := range canonicalOrder {
		d, ok := h.digests[algo]
		if !ok {
			continue
		}
		sum := d.Sum(nil)
		hexDigest := hex.EncodeToString(sum)
		uris = append(uris, fmt.Sprintf("hash://%s/%s", algo, hexDigest))
		if algo == AlgoSHA256 {
			h.internalHash = hexDigest
		}
	}
	h.uris = uris
	return uris
}

// InternalHash returns the digest that names this blob on disk. Valid
// only after End.
func (h *Hasher) InternalHash() string {
	return h.internalHash
}

// PrimaryURI returns element 0 of the canonical URI list. Valid only
// after End.
func (h *Hasher) PrimaryURI() string {
	if len(h.uris) == 0 {
		return ""
	}
	return h.uris[0]
}
