package submission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stronglink/extractor"
)

func TestQuickPairProducesContentAndMetaForExtractableType(t *testing.T) {
	blobs := newTestStore(t)
	content, meta, err := QuickPair(blobs, nil, 1, "text/plain; charset=utf-8", strings.NewReader("hello https://example.com"), "a title")
	require.NoError(t, err)
	defer content.Release()
	require.NotNil(t, meta)
	defer meta.Release()

	assert.Equal(t, Ended, content.State())
	assert.Equal(t, Ended, meta.State())
	assert.Equal(t, extractor.MetaType, meta.Type)

	require.NoError(t, content.AddFile())
	require.NoError(t, meta.AddFile())
}

func TestQuickPairWithNoExtractableBodyReturnsNilMeta(t *testing.T) {
	blobs := newTestStore(t)
	content, meta, err := QuickPair(blobs, nil, 1, "application/octet-stream", strings.NewReader("binary"), "")
	require.NoError(t, err)
	defer content.Release()
	assert.Nil(t, meta)
}
