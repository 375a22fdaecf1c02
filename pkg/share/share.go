// Package share decides how a finished recording is published: as a hosted
// paste, a shortened link, a self-contained encoded link, or a downloadable file.
package share

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/shortener"
)

const (
	DefaultViewerURL = "https://marthur3.github.io/humanitybadge/replay.html"

	// MaxLinkSize is the serialized size at and above which no link is produced.
	MaxLinkSize = 500_000
	// SmallLinkSize separates encoded-small from encoded-large links.
	SmallLinkSize = 50_000
)

// Type is the strategy that produced an outcome.
type Type string

const (
	TypePasteHosted  Type = "paste-hosted"
	TypeShortened    Type = "shortened"
	TypeEncodedSmall Type = "encoded-small"
	TypeEncodedLarge Type = "encoded-large"
	TypeFileOnly     Type = "file-only"
)

// Tier names used in diagnostics.
const (
	TierExport      = "export"
	TierPasteHosted = "paste-hosted"
	TierShortened   = "shortened"
)

// Diagnostic records why a tier was skipped or failed. Diagnostics never change
// which outcome is returned.
type Diagnostic struct {
	Tier            string `json:"tier"`
	Reason          string `json:"reason"`
	NeedsCredential bool   `json:"needsCredential,omitempty"`
}

// Outcome is the result of resolving a recording. An empty ShareURL means no
// link could be produced and serializes as null.
type Outcome struct {
	ShareURL      string       `json:"shareUrl"`
	ShareType     Type         `json:"shareType"`
	RecordingSize int          `json:"recordingSize"`
	HTMLExport    string       `json:"htmlExport,omitempty"`
	Message       string       `json:"message,omitempty"`
	GistID        string       `json:"gistId,omitempty"`
	GistURL       string       `json:"gistUrl,omitempty"`
	OriginalURL   string       `json:"originalUrl,omitempty"`
	Diagnostics   []Diagnostic `json:"diagnostics,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	var u *string
	if o.ShareURL != "" {
		u = &o.ShareURL
	}
	return json.Marshal(struct {
		alias
		ShareURL *string `json:"shareUrl"`
	}{alias(o), u})
}

// Result pairs the outcome with the prompt the caller should dispatch, if any.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Prompt  *Prompt `json:"prompt,omitempty"`
}

// Uploader is the paste-bin capability. *gist.Client satisfies it.
type Uploader interface {
	HasCredential(ctx context.Context) bool
	Upload(ctx context.Context, content string, meta gist.Meta) gist.UploadResult
}

// Shortener is the URL shortening capability. *shortener.Client satisfies it.
type Shortener interface {
	Shorten(ctx context.Context, longURL, customCode string) shortener.Result
}

// Exporter renders the standalone page. *export.Renderer satisfies it.
type Exporter interface {
	Render(rec recording.Recording) (string, error)
}

type Pipeline struct {
	viewerURL string
	exporter  Exporter
	uploader  Uploader
	shortener Shortener
	prompts   *PromptPolicy
	logger    *slog.Logger
}

type Option func(*Pipeline)

func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

func WithShortener(s Shortener) Option {
	return func(p *Pipeline) { p.shortener = s }
}

func WithPromptPolicy(pp *PromptPolicy) Option {
	return func(p *Pipeline) { p.prompts = pp }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a pipeline producing viewer links under viewerURL. Tiers whose
// capability is not supplied are skipped.
func New(viewerURL string, exporter Exporter, opts ...Option) *Pipeline {
	if viewerURL == "" {
		viewerURL = DefaultViewerURL
	}
	p := &Pipeline{viewerURL: viewerURL, exporter: exporter, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve runs the tiers in order and returns the first that succeeds. Tier
// failures fall through silently and are only visible in Diagnostics. The error
// is non-nil only when the recording cannot be serialized.
func (p *Pipeline) Resolve(ctx context.Context, rec recording.Recording) (Result, error) {
	canonical, err := recording.Canonical(rec)
	if err != nil {
		return Result{}, err
	}
	size := len(canonical)

	out := Outcome{RecordingSize: size}
	if p.exporter != nil {
		html, err := p.exporter.Render(rec)
		if err != nil {
			p.logger.Warn("standalone export failed", "id", rec.ID, "error", err)
			out.diag(TierExport, err.Error())
		}
		out.HTMLExport = html
	}

	if p.tryPaste(ctx, rec, &out) {
		return Result{Outcome: out}, nil
	}

	switch {
	case size < MaxLinkSize:
		longURL := recording.ViewerURLFromCanonical(p.viewerURL, canonical)
		if !p.tryShorten(ctx, longURL, &out) {
			out.ShareURL = longURL
			out.ShareType = TypeEncodedLarge
			if size < SmallLinkSize {
				out.ShareType = TypeEncodedSmall
			}
		}
	default:
		out.ShareType = TypeFileOnly
		out.Message = fmt.Sprintf("Recording too large for URL sharing (%d bytes, limit %d). Download HTML file to share.", size, MaxLinkSize)
	}

	p.logger.Info("share resolved", "id", rec.ID, "type", out.ShareType, "size", size)
	return Result{Outcome: out, Prompt: p.prompt(ctx)}, nil
}

func (p *Pipeline) tryPaste(ctx context.Context, rec recording.Recording, out *Outcome) bool {
	switch {
	case p.uploader == nil:
		return false
	case !p.uploader.HasCredential(ctx):
		out.diag(TierPasteHosted, "no credential configured")
		return false
	case out.HTMLExport == "":
		out.diag(TierPasteHosted, "no standalone export available")
		return false
	}

	res := p.uploader.Upload(ctx, out.HTMLExport, metaFor(rec))
	if !res.Success {
		p.logger.Warn("gist upload failed, falling back", "error", res.Error, "needs_credential", res.NeedsCredential)
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Tier: TierPasteHosted, Reason: res.Error, NeedsCredential: res.NeedsCredential})
		return false
	}

	out.ShareURL = recording.GistViewerURL(p.viewerURL, res.GistID)
	out.ShareType = TypePasteHosted
	out.GistID = res.GistID
	out.GistURL = res.URL
	p.logger.Info("share resolved", "id", rec.ID, "type", out.ShareType, "gist", res.GistID)
	return true
}

func (p *Pipeline) tryShorten(ctx context.Context, longURL string, out *Outcome) bool {
	if p.shortener == nil {
		return false
	}
	if check := shortener.CanShorten(longURL); !check.CanShorten {
		out.diag(TierShortened, check.Reason)
		return false
	}
	res := p.shortener.Shorten(ctx, longURL, "")
	if !res.Success {
		p.logger.Warn("url shortening failed, using encoded link", "error", res.Error)
		out.diag(TierShortened, res.Error)
		return false
	}
	out.ShareURL = res.ShortURL
	out.ShareType = TypeShortened
	out.OriginalURL = longURL
	return true
}

func (p *Pipeline) prompt(ctx context.Context) *Prompt {
	if p.prompts == nil {
		return nil
	}
	pr, err := p.prompts.Evaluate(ctx)
	if err != nil {
		p.logger.Warn("credential prompt check failed", "error", err)
		return nil
	}
	return pr
}

func (o *Outcome) diag(tier, reason string) {
	o.Diagnostics = append(o.Diagnostics, Diagnostic{Tier: tier, Reason: reason})
}

func metaFor(rec recording.Recording) gist.Meta {
	m := gist.Meta{Domain: rec.Domain}
	if m.Domain == "" {
		m.Domain = "unknown"
	}
	if v := rec.Verification; v != nil {
		m.WPM = v.WPM
		m.Duration = v.Duration
	}
	return m
}
