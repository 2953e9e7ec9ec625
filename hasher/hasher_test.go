package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherEndIsDeterministicAndOrdered(t *testing.T) {
	h := New("text/plain; charset=utf-8")
	h.Write([]byte("hello "))
	h.Write([]byte("world"))
	uris := h.End()

	require.Len(t, uris, 2)
	assert.Equal(t, "hash://sha256/", uris[0][:len("hash://sha256/")])
	assert.Equal(t, "hash://blake3/", uris[1][:len("hash://blake3/")])
	assert.Equal(t, uris[0], h.PrimaryURI())
	assert.NotEmpty(t, h.InternalHash())
	assert.Equal(t, uris[0], "hash://sha256/"+h.InternalHash())
}

func TestHasherEndIsIdempotent(t *testing.T) {
	h := New("application/octet-stream")
	h.Write([]byte("abc"))
	first := h.End()
	second := h.End()
	assert.Equal(t, first, second)
}

func TestHasherWriteAfterEndPanics(t *testing.T) {
	h := New("application/octet-stream")
	h.End()
	assert.Panics(t, func() { h.Write([]byte("x")) })
}

func TestHasherIdenticalContentProducesIdenticalHash(t *testing.T) {
	a := New("text/plain")
	a.Write([]byte("same bytes"))
	b := New("text/plain")
	b.Write([]byte("same"))
	b.Write([]byte(" bytes"))
	assert.Equal(t, a.End(), b.End())
}
