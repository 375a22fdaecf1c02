package export

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecording() recording.Recording {
	return recording.Recording{
		ID:         "rec-42",
		StartTime:  1000,
		EndTime:    61000,
		Duration:   60000,
		Events:     []recording.Event{{Type: "input", Timestamp: 0, Value: "h"}},
		FinalValue: "hello </script><script>alert(1)</script> world",
		Domain:     "example.com",
	}
}

var dataScript = regexp.MustCompile(`(?s)<script id="recording-data" type="application/json">(.*?)</script>`)

func TestRender_EmbedsRecordingSafely(t *testing.T) {
	rec := testRecording()
	html, err := New("https://viewer.example/replay.html").Render(rec)
	require.NoError(t, err)

	m := dataScript.FindStringSubmatch(html)
	require.Len(t, m, 2)

	var got recording.Recording
	require.NoError(t, json.Unmarshal([]byte(m[1]), &got))
	assert.Equal(t, rec.FinalValue, got.FinalValue)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestRender_OpenGraphFollowsVerdict(t *testing.T) {
	rec := testRecording().WithVerification(recording.Verification{
		IsAuthentic: true, WPM: 55, Duration: 60, Characters: 300, Words: 55,
	})
	html, err := New("").Render(rec)
	require.NoError(t, err)
	assert.Contains(t, html, `<meta property="og:title" content="Humanity Badge - Verified Human: 55 WPM">`)
	assert.Contains(t, html, "300 characters typed at 55 WPM in 60 seconds")

	html, err = New("").Render(testRecording().WithVerification(recording.Verification{Reason: "Too fast - minimum 5 seconds required"}))
	require.NoError(t, err)
	assert.Contains(t, html, `content="Humanity Badge - Typing Replay"`)
	assert.Contains(t, html, "Too fast - minimum 5 seconds required")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "humanity-badge-rec-42.html", Filename(testRecording()))
}
