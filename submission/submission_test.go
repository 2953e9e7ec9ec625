package submission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stronglink/blobstore"
)

func newTestStore(t *testing.T) *blobstore.Store {
	t.Helper()
	return blobstore.New(t.TempDir())
}

func TestSubmissionLifecycle(t *testing.T) {
	blobs := newTestStore(t)
	s, err := Begin(blobs, nil, 1, "text/plain; charset=utf-8", "my title")
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, Open, s.State())
	require.NoError(t, s.Write([]byte("hello world")))
	require.NoError(t, s.End())
	assert.Equal(t, Ended, s.State())

	require.NoError(t, s.AddFile())
	assert.Equal(t, Filed, s.State())

	assert.NotEmpty(t, s.PrimaryURI())
	assert.Len(t, s.URIs(), 2)
	assert.Equal(t, uint64(len("hello world")), s.Size())

	body := s.MetaBody()
	require.NotNil(t, body)
	assert.Equal(t, []string{"my title"}, body.Title)
	assert.Equal(t, []string{"hello world"}, body.Fulltext)
}

func TestSubmissionWriteAfterEndFails(t *testing.T) {
	blobs := newTestStore(t)
	s, err := Begin(blobs, nil, 1, "application/octet-stream", "")
	require.NoError(t, err)
	defer s.Release()

	require.NoError(t, s.End())
	assert.Error(t, s.Write([]byte("too late")))
}

func TestSubmissionAddFileBeforeEndFails(t *testing.T) {
	blobs := newTestStore(t)
	s, err := Begin(blobs, nil, 1, "application/octet-stream", "")
	require.NoError(t, err)
	defer s.Release()

	assert.Error(t, s.AddFile())
}

func TestSubmissionBeginRejectsEmptyType(t *testing.T) {
	blobs := newTestStore(t)
	_, err := Begin(blobs, nil, 1, "", "")
	assert.Error(t, err)
}

func TestWriteFromEndsAutomatically(t *testing.T) {
	blobs := newTestStore(t)
	s, err := Begin(blobs, nil, 1, "text/plain; charset=utf-8", "")
	require.NoError(t, err)
	defer s.Release()

	require.NoError(t, s.WriteFrom(strings.NewReader("streamed content")))
	assert.Equal(t, Ended, s.State())
	assert.Equal(t, uint64(len("streamed content")), s.Size())
}

func TestReleaseIsSafeAfterAddFile(t *testing.T) {
	blobs := newTestStore(t)
	s, err := Begin(blobs, nil, 1, "application/octet-stream", "")
	require.NoError(t, err)
	require.NoError(t, s.End())
	require.NoError(t, s.AddFile())
	assert.NotPanics(t, func() { s.Release() })
}

func TestIdenticalContentYieldsSameURIs(t *testing.T) {
	blobs := newTestStore(t)
	a, err := Begin(blobs, nil, 1, "application/octet-stream", "")
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, a.Write([]byte("dup")))
	require.NoError(t, a.End())

	b, err := Begin(blobs, nil, 1, "application/octet-stream", "")
	require.NoError(t, err)
	defer b.Release()
	require.NoError(t, b.Write([]byte("dup")))
	require.NoError(t, b.End())

	assert.Equal(t, a.URIs(), b.URIs())
	require.NoError(t, a.AddFile())
	require.NoError(t, b.AddFile())
}
