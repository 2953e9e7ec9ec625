package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorPlainTextProducesFulltextAndLinks(t *testing.T) {
	e := New("text/plain; charset=utf-8", "")
	e.Write([]byte("see https://example.com/path for more"))
	body := e.End()
	require.NotNil(t, body)
	assert.Equal(t, []string{"see https://example.com/path for more"}, body.Fulltext)
	assert.Contains(t, body.Link, "https://example.com/path")
	assert.Empty(t, body.Title)
}

func TestExtractorUnsupportedTypeWithTitleStillYieldsBody(t *testing.T) {
	e := New("application/octet-stream", "a title")
	e.Write([]byte("binary junk, never buffered"))
	body := e.End()
	require.NotNil(t, body)
	assert.Equal(t, []string{"a title"}, body.Title)
	assert.Empty(t, body.Fulltext)
}

func TestExtractorUnsupportedTypeNoTitleYieldsNil(t *testing.T) {
	e := New("application/octet-stream", "")
	e.Write([]byte("binary junk"))
	assert.Nil(t, e.End())
}

func TestExtractorTruncatesAtFTSMax(t *testing.T) {
	e := New("text/markdown; charset=utf-8", "")
	big := make([]byte, FTSMax+1000)
	for i := range big {
		big[i] = 'x'
	}
	e.Write(big)
	body := e.End()
	require.NotNil(t, body)
	require.Len(t, body.Fulltext, 1)
	assert.Len(t, body.Fulltext[0], FTSMax)
}

func TestIsMetaType(t *testing.T) {
	assert.True(t, IsMetaType(MetaType))
	assert.True(t, IsMetaType("text/efs-meta+json; charset=utf-8"))
	assert.False(t, IsMetaType("text/plain; charset=utf-8"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("text/plain; charset=utf-8"))
	assert.False(t, Supported("application/octet-stream"))
}

func TestEncodeAndParseMetaBodyRoundTrip(t *testing.T) {
	body := &Body{Fulltext: []string{"hi"}, Link: []string{"https://a.example"}}
	encoded, err := EncodeMetaBody("hash://sha256/abc", body)
	require.NoError(t, err)

	targetURI, fields, err := ParseMetaBody(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hash://sha256/abc", targetURI)
	assert.Equal(t, []string{"hi"}, fields["fulltext"])
	assert.Equal(t, []string{"https://a.example"}, fields["link"])
}

func TestParseMetaBodyMalformed(t *testing.T) {
	_, _, err := ParseMetaBody([]byte("no separator here"))
	assert.Error(t, err)
}
