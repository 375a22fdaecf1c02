package share

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/shortener"
	"github.com/humanitybadge/cli/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewer = "https://viewer.example/replay.html"

type FakeUploader struct {
	Has        bool
	UploadFunc func(ctx context.Context, content string, meta gist.Meta) gist.UploadResult
	calls      *[]string
}

func (f *FakeUploader) HasCredential(context.Context) bool { return f.Has }

func (f *FakeUploader) Upload(ctx context.Context, content string, meta gist.Meta) gist.UploadResult {
	if f.calls != nil {
		*f.calls = append(*f.calls, "upload")
	}
	if f.UploadFunc != nil {
		return f.UploadFunc(ctx, content, meta)
	}
	return gist.UploadResult{Error: "not implemented"}
}

type FakeShortener struct {
	ShortenFunc func(ctx context.Context, longURL, code string) shortener.Result
	calls       *[]string
}

func (f *FakeShortener) Shorten(ctx context.Context, longURL, code string) shortener.Result {
	if f.calls != nil {
		*f.calls = append(*f.calls, "shorten")
	}
	if f.ShortenFunc != nil {
		return f.ShortenFunc(ctx, longURL, code)
	}
	return shortener.Result{Error: "HTTP 503: Service Unavailable"}
}

type FakeExporter struct {
	err error
}

func (f FakeExporter) Render(rec recording.Recording) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "<html>" + rec.ID + "</html>", nil
}

// recordingOfSize builds a recording whose canonical serialization is exactly n bytes.
func recordingOfSize(t *testing.T, n int) recording.Recording {
	t.Helper()
	rec := recording.Recording{
		ID: "rec-size", StartTime: 1, EndTime: 60001, Duration: 60000,
		Events: []recording.Event{{Type: "input", Timestamp: 0, Value: "a"}},
		Domain: "example.com",
	}
	overhead, err := recording.Size(rec)
	require.NoError(t, err)
	require.Greater(t, n, overhead)
	rec.FinalValue = strings.Repeat("a", n-overhead)

	size, err := recording.Size(rec)
	require.NoError(t, err)
	require.Equal(t, n, size)
	return rec
}

func diagTiers(o Outcome) []string {
	var tiers []string
	for _, d := range o.Diagnostics {
		tiers = append(tiers, d.Tier)
	}
	return tiers
}

func TestResolve_SmallRecordingWithoutCredentialIsEncodedSmall(t *testing.T) {
	rec := recordingOfSize(t, 10_000)
	p := New(viewer, FakeExporter{},
		WithUploader(&FakeUploader{Has: false}),
		WithShortener(&FakeShortener{ShortenFunc: func(context.Context, string, string) shortener.Result {
			t.Fatal("shortener must not be called for an ineligible URL")
			return shortener.Result{}
		}}),
	)

	res, err := p.Resolve(context.Background(), rec)
	require.NoError(t, err)

	out := res.Outcome
	assert.Equal(t, TypeEncodedSmall, out.ShareType)
	assert.Equal(t, 10_000, out.RecordingSize)
	assert.True(t, strings.HasPrefix(out.ShareURL, viewer+"#data="))
	assert.Equal(t, []string{TierPasteHosted, TierShortened}, diagTiers(out))
	assert.Contains(t, out.Diagnostics[1].Reason, "URL too long")

	link, err := recording.ParseViewerURL(out.ShareURL)
	require.NoError(t, err)
	assert.Equal(t, rec, *link.Recording)
}

func TestResolve_HugeRecordingIsFileOnly(t *testing.T) {
	rec := recordingOfSize(t, 600_000)
	var calls []string
	p := New(viewer, FakeExporter{},
		WithUploader(&FakeUploader{Has: false, calls: &calls}),
		WithShortener(&FakeShortener{calls: &calls}),
	)

	res, err := p.Resolve(context.Background(), rec)
	require.NoError(t, err)

	out := res.Outcome
	assert.Equal(t, TypeFileOnly, out.ShareType)
	assert.Empty(t, out.ShareURL)
	assert.Equal(t, "<html>rec-size</html>", out.HTMLExport)
	assert.Contains(t, out.Message, "600000 bytes")
	assert.Contains(t, out.Message, "limit 500000")
	assert.Empty(t, calls)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"shareUrl":null`)
	assert.Contains(t, string(raw), `"shareType":"file-only"`)
}

func TestResolve_EncodedLarge(t *testing.T) {
	res, err := New(viewer, FakeExporter{}).Resolve(context.Background(), recordingOfSize(t, 60_000))
	require.NoError(t, err)
	assert.Equal(t, TypeEncodedLarge, res.Outcome.ShareType)
	assert.NotEmpty(t, res.Outcome.ShareURL)
}

func TestResolve_PasteHostedWins(t *testing.T) {
	var calls []string
	var gotMeta gist.Meta
	rec := recordingOfSize(t, 2_000)
	rec = rec.WithVerification(recording.Verification{IsAuthentic: true, WPM: 48, Duration: 60})

	p := New(viewer, FakeExporter{},
		WithUploader(&FakeUploader{Has: true, calls: &calls, UploadFunc: func(_ context.Context, content string, meta gist.Meta) gist.UploadResult {
			assert.Equal(t, "<html>rec-size</html>", content)
			gotMeta = meta
			return gist.UploadResult{Success: true, GistID: "abc123", URL: "https://gist.github.com/u/abc123"}
		}}),
		WithShortener(&FakeShortener{calls: &calls}),
		WithPromptPolicy(NewPromptPolicy(store.NewMemoryStore(), credential.NewVault(store.NewMemoryStore()))),
	)

	res, err := p.Resolve(context.Background(), rec)
	require.NoError(t, err)

	out := res.Outcome
	assert.Equal(t, TypePasteHosted, out.ShareType)
	assert.Equal(t, viewer+"?gist=abc123", out.ShareURL)
	assert.Equal(t, "abc123", out.GistID)
	assert.Equal(t, "https://gist.github.com/u/abc123", out.GistURL)
	assert.Equal(t, []string{"upload"}, calls)
	assert.Equal(t, gist.Meta{WPM: 48, Duration: 60, Domain: "example.com"}, gotMeta)
	assert.Nil(t, res.Prompt)
}

func TestResolve_UploadFailureFallsThroughToShortener(t *testing.T) {
	var calls []string
	p := New(viewer, FakeExporter{},
		WithUploader(&FakeUploader{Has: true, calls: &calls, UploadFunc: func(context.Context, string, gist.Meta) gist.UploadResult {
			return gist.UploadResult{Error: gist.ErrInvalidCredential, NeedsCredential: true}
		}}),
		WithShortener(&FakeShortener{calls: &calls, ShortenFunc: func(_ context.Context, longURL, _ string) shortener.Result {
			return shortener.Result{Success: true, ShortURL: "https://is.gd/xyz", OriginalURL: longURL}
		}}),
	)

	res, err := p.Resolve(context.Background(), recordingOfSize(t, 1_000))
	require.NoError(t, err)

	out := res.Outcome
	assert.Equal(t, TypeShortened, out.ShareType)
	assert.Equal(t, "https://is.gd/xyz", out.ShareURL)
	assert.True(t, strings.HasPrefix(out.OriginalURL, viewer+"#data="))
	assert.Equal(t, []string{"upload", "shorten"}, calls)
	require.Len(t, out.Diagnostics, 1)
	assert.True(t, out.Diagnostics[0].NeedsCredential)
}

func TestResolve_ShortenerFailureFallsThroughToEncoded(t *testing.T) {
	p := New(viewer, FakeExporter{}, WithShortener(&FakeShortener{}))

	res, err := p.Resolve(context.Background(), recordingOfSize(t, 1_000))
	require.NoError(t, err)
	assert.Equal(t, TypeEncodedSmall, res.Outcome.ShareType)
	assert.Equal(t, []string{TierShortened}, diagTiers(res.Outcome))
	assert.Equal(t, "HTTP 503: Service Unavailable", res.Outcome.Diagnostics[0].Reason)
}

func TestResolve_ExportFailureSkipsPasteTier(t *testing.T) {
	var calls []string
	p := New(viewer, FakeExporter{err: errors.New("template broken")},
		WithUploader(&FakeUploader{Has: true, calls: &calls}))

	res, err := p.Resolve(context.Background(), recordingOfSize(t, 1_000))
	require.NoError(t, err)
	assert.Equal(t, TypeEncodedSmall, res.Outcome.ShareType)
	assert.Empty(t, calls)
	assert.Equal(t, []string{TierExport, TierPasteHosted}, diagTiers(res.Outcome))
}

func TestResolve_DoesNotMutateRecording(t *testing.T) {
	rec := recordingOfSize(t, 1_000)
	before := rec.Clone()
	_, err := New(viewer, FakeExporter{}).Resolve(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, before, rec)
}

func TestResolve_PromptsAtMostTwice(t *testing.T) {
	ctx := context.Background()
	settings := store.NewMemoryStore()
	policy := NewPromptPolicy(settings, credential.NewVault(settings))
	p := New(viewer, FakeExporter{}, WithPromptPolicy(policy))
	rec := recordingOfSize(t, 1_000)

	for want := 1; want <= MaxPrompts; want++ {
		res, err := p.Resolve(ctx, rec)
		require.NoError(t, err)
		require.NotNil(t, res.Prompt)
		assert.Equal(t, want, res.Prompt.Count)
		assert.Equal(t, PromptTitle, res.Prompt.Title)
	}

	res, err := p.Resolve(ctx, rec)
	require.NoError(t, err)
	assert.Nil(t, res.Prompt)

	st, err := policy.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Dismissed)
	assert.Equal(t, MaxPrompts, st.Count)
}
