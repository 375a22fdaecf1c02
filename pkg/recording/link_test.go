package recording

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragment_RoundTrip(t *testing.T) {
	rec := sampleRecording(42_000, "naïve café · 日本語 "+words(20))
	rec = rec.WithVerification(Verify(rec))

	enc, err := EncodeFragment(rec)
	require.NoError(t, err)

	got, err := DecodeFragment(enc)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeFragment_Corrupt(t *testing.T) {
	_, err := DecodeFragment("!!!not-base64")
	assert.ErrorIs(t, err, ErrCorruptLink)

	_, err = DecodeFragment("bm90IGpzb24=") // "not json"
	assert.ErrorIs(t, err, ErrCorruptLink)
}

func TestEncodedViewerURL(t *testing.T) {
	rec := sampleRecording(10_000, words(5))
	u, err := EncodedViewerURL("https://viewer.example/replay.html", rec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://viewer.example/replay.html#data="))
	assert.NotContains(t, u, "%")

	link, err := ParseViewerURL(u)
	require.NoError(t, err)
	require.NotNil(t, link.Recording)
	assert.Equal(t, rec.ID, link.Recording.ID)
}

func TestGistViewerURL(t *testing.T) {
	assert.Equal(t, "https://v.example/replay.html?gist=abc", GistViewerURL("https://v.example/replay.html", "abc"))
	assert.Equal(t, "https://v.example/r?x=1&gist=abc", GistViewerURL("https://v.example/r?x=1", "abc"))

	link, err := ParseViewerURL("https://v.example/r?x=1&gist=abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", link.GistID)
	assert.Nil(t, link.Recording)
}

func TestParseViewerURL_NoPayload(t *testing.T) {
	_, err := ParseViewerURL("https://v.example/replay.html")
	assert.ErrorIs(t, err, ErrCorruptLink)
}
