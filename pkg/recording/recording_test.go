package recording

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecording(durationMs int64, text string) Recording {
	start := int64(1_700_000_000_000)
	return Recording{
		ID:           "rec-1",
		StartTime:    start,
		EndTime:      start + durationMs,
		Duration:     durationMs,
		Events:       []Event{{Type: "input", Timestamp: 0, Value: text[:1]}, {Type: "input", Timestamp: durationMs, Value: text}},
		InitialValue: "",
		FinalValue:   text,
		URL:          "https://example.com/post",
		Domain:       "example.com",
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestVerify_NoEvents(t *testing.T) {
	rec := sampleRecording(60_000, words(40))
	rec.Events = nil

	v := Verify(rec)
	assert.False(t, v.IsAuthentic)
	assert.Equal(t, ReasonNoTypingData, v.Reason)
}

func TestVerify_TooFastRegardlessOfText(t *testing.T) {
	for _, text := range []string{"a", words(1), words(30), words(1000)} {
		v := Verify(sampleRecording(4999, text))
		assert.False(t, v.IsAuthentic)
		assert.Equal(t, ReasonTooFast, v.Reason)
	}
}

func TestVerify_UnrealisticSpeed(t *testing.T) {
	// 5 words in one minute
	v := Verify(sampleRecording(60_000, words(5)))
	assert.False(t, v.IsAuthentic)
	assert.Equal(t, "Unrealistic speed: 5 WPM", v.Reason)

	// 250 words in one minute
	v = Verify(sampleRecording(60_000, words(250)))
	assert.False(t, v.IsAuthentic)
	assert.Equal(t, "Unrealistic speed: 250 WPM", v.Reason)
}

func TestVerify_Authentic(t *testing.T) {
	text := words(45) + " héllo"
	v := Verify(sampleRecording(61_400, text))

	require.True(t, v.IsAuthentic)
	assert.Empty(t, v.Reason)
	assert.Equal(t, 45, v.WPM) // 46 words / 1.0233 min
	assert.Equal(t, 61, v.Duration)
	assert.Equal(t, 46, v.Words)
	assert.Equal(t, len([]rune(text)), v.Characters)
}

func TestVerify_BoundsInclusive(t *testing.T) {
	assert.True(t, Verify(sampleRecording(60_000, words(10))).IsAuthentic)
	assert.True(t, Verify(sampleRecording(60_000, words(200))).IsAuthentic)
}

func TestVerify_Idempotent(t *testing.T) {
	rec := sampleRecording(30_000, words(30))
	assert.Equal(t, Verify(rec), Verify(rec))
}

func TestCharacterCount_UTF16(t *testing.T) {
	assert.Equal(t, 2, CharacterCount("😀"))
	assert.Equal(t, 3, CharacterCount("abc"))
}

func TestWithVerification_DoesNotMutate(t *testing.T) {
	rec := sampleRecording(60_000, words(40))
	verified := rec.WithVerification(Verify(rec))

	assert.Nil(t, rec.Verification)
	require.NotNil(t, verified.Verification)
	assert.True(t, verified.Verification.IsAuthentic)

	verified.Events[0].Value = "changed"
	assert.NotEqual(t, "changed", rec.Events[0].Value)
}

func TestVerified_KeepsExistingVerdict(t *testing.T) {
	rec := sampleRecording(60_000, words(40)).WithVerification(Verification{IsAuthentic: false, Reason: "stale"})
	assert.Equal(t, "stale", rec.Verified().Verification.Reason)
}

func TestValidate(t *testing.T) {
	rec := sampleRecording(10_000, words(5))
	assert.NoError(t, rec.Validate())

	bad := rec.Clone()
	bad.Duration = 5
	assert.ErrorContains(t, bad.Validate(), "does not match")

	bad = rec.Clone()
	bad.Events = []Event{{Timestamp: 10}, {Timestamp: 5}}
	assert.ErrorContains(t, bad.Validate(), "precedes")

	bad = rec.Clone()
	bad.ID = ""
	assert.Error(t, bad.Validate())
}

func TestCanonical_DoesNotEscapeHTML(t *testing.T) {
	rec := sampleRecording(10_000, "<b>bold</b> & more")
	b, err := Canonical(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<b>bold</b> & more")
	assert.False(t, strings.HasSuffix(string(b), "\n"))

	size, err := Size(rec)
	require.NoError(t, err)
	assert.Equal(t, len(b), size)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestRead(t *testing.T) {
	rec, err := Read(strings.NewReader(`{"startTime":1000,"endTime":7000,"duration":6000,"events":[{"type":"input","timestamp":0}],"finalValue":"hi"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(6000), rec.Duration)

	_, err = Read(strings.NewReader(`{"id":"x","startTime":1000,"endTime":2000,"duration":6000}`))
	assert.ErrorContains(t, err, "does not match")

	_, err = Read(strings.NewReader(`not json`))
	assert.ErrorContains(t, err, "decode recording")
}
