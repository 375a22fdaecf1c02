// Package service wires the badge components into the operations exposed by the
// CLI and the local HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/humanitybadge/cli/internal/config"
	"github.com/humanitybadge/cli/pkg/archive"
	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/humanitybadge/cli/pkg/deviceflow"
	"github.com/humanitybadge/cli/pkg/export"
	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/notify"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/share"
	"github.com/humanitybadge/cli/pkg/shortener"
	"github.com/humanitybadge/cli/pkg/store"
)

// ErrInvalidRecording wraps validation failures of caller-supplied recordings.
var ErrInvalidRecording = errors.New("invalid recording")

// Service is the application facade.
type Service struct {
	viewerURL string
	settings  store.Store
	vault     *credential.Vault
	gists     *gist.Client
	shortener *shortener.Client
	auth      *deviceflow.Client
	exporter  *export.Renderer
	pipeline  *share.Pipeline
	prompts   *share.PromptPolicy
	archive   *archive.Archive
	notifier  notify.Sink
	logger    *slog.Logger
}

// Options override the collaborators New would otherwise derive from config.
type Options struct {
	Settings   store.Store
	Local      store.Store
	HTTPClient *http.Client
	Notifier   notify.Sink
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Open builds the stores described by cfg and returns a ready service.
func Open(cfg *config.Config) (*Service, error) {
	var settings store.Store
	switch cfg.SettingsBackend {
	case config.SettingsBackendFile:
		settings = store.NewFileStore(cfg.SettingsPath(), config.SettingsQuota)
	default:
		settings = store.NewKeyringStore(cfg.KeyringService)
	}

	var sinks notify.MultiSink
	sinks = append(sinks, notify.TerminalSink{})
	if cfg.NtfyURL != "" {
		sinks = append(sinks, notify.NtfySink{Endpoint: cfg.NtfyURL, Client: &http.Client{Timeout: cfg.HTTPTimeout}})
	}

	return New(cfg, Options{
		Settings: settings,
		Local:    store.NewFileStore(cfg.LocalPath(), config.LocalQuota),
		Notifier: sinks,
	}), nil
}

// New assembles the service from explicit stores.
func New(cfg *config.Config, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}

	vault := credential.NewVault(opts.Settings)
	auth := deviceflow.New(deviceflow.Config{
		ClientID:      cfg.ClientID,
		Scopes:        []string{cfg.Scope},
		DeviceAuthURL: cfg.DeviceAuthURL,
		TokenURL:      cfg.TokenURL,
		APIURL:        cfg.GistAPIURL,
	}, vault, opts.Local,
		deviceflow.WithHTTPClient(hc),
		deviceflow.WithLogger(logger.With("component", "deviceflow")),
		deviceflow.WithClock(clock),
	)
	// The gist client resolves through the refresher so expiring OAuth tokens
	// are renewed before upload.
	refreshing := vault.WithRefresher(auth)

	gists := gist.New(refreshing,
		gist.WithAPIURL(cfg.GistAPIURL),
		gist.WithHTTPClient(hc),
		gist.WithLogger(logger.With("component", "gist")),
		gist.WithClock(clock),
	)
	short := shortener.New(
		shortener.WithEndpoint(cfg.ShortenerEndpoint),
		shortener.WithHTTPClient(hc),
		shortener.WithLogger(logger.With("component", "shortener")),
	)
	exporter := export.New(cfg.ViewerURL)
	prompts := share.NewPromptPolicy(opts.Settings, vault)
	pipeline := share.New(cfg.ViewerURL, exporter,
		share.WithUploader(gists),
		share.WithShortener(short),
		share.WithPromptPolicy(prompts),
		share.WithLogger(logger.With("component", "share")),
	)

	return &Service{
		viewerURL: cfg.ViewerURL,
		settings:  opts.Settings,
		vault:     vault,
		gists:     gists,
		shortener: short,
		auth:      auth,
		exporter:  exporter,
		pipeline:  pipeline,
		prompts:   prompts,
		archive:   archive.New(opts.Local),
		notifier:  notifier,
		logger:    logger,
	}
}

// SaveResult is the outcome of saving and sharing a recording.
type SaveResult struct {
	Recording recording.Recording `json:"recording"`
	share.Result
}

// SaveRecording verifies rec if it carries no verification, archives it and
// resolves a share link. A prompt returned by the pipeline is dispatched to the
// notifier; dispatch failures are logged only.
func (s *Service) SaveRecording(ctx context.Context, rec recording.Recording) (SaveResult, error) {
	if rec.ID == "" {
		rec.ID = recording.NewID()
	}
	if err := rec.Validate(); err != nil {
		return SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidRecording, err)
	}
	if rec.Verification == nil {
		rec = rec.Verified()
	}
	if err := s.archive.Save(ctx, rec); err != nil {
		return SaveResult{}, err
	}
	return s.share(ctx, rec)
}

// Reshare resolves a new share link for an archived recording.
func (s *Service) Reshare(ctx context.Context, id string) (SaveResult, error) {
	rec, err := s.archive.Get(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	return s.share(ctx, rec)
}

func (s *Service) share(ctx context.Context, rec recording.Recording) (SaveResult, error) {
	res, err := s.pipeline.Resolve(ctx, rec)
	if err != nil {
		return SaveResult{}, err
	}
	if res.Prompt != nil {
		msg := notify.Message{Title: res.Prompt.Title, Body: res.Prompt.Message}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Warn("prompt dispatch failed", "error", err)
		}
	}
	s.logger.Info("recording shared", "id", rec.ID, "type", res.Outcome.ShareType, "size", res.Outcome.RecordingSize)
	return SaveResult{Recording: rec, Result: res}, nil
}

// Export renders the standalone page for rec without touching the archive.
func (s *Service) Export(rec recording.Recording) (string, error) {
	return s.exporter.Render(rec)
}

func (s *Service) ListRecordings(ctx context.Context) ([]recording.Recording, error) {
	return s.archive.List(ctx)
}

func (s *Service) GetRecording(ctx context.Context, id string) (recording.Recording, error) {
	return s.archive.Get(ctx, id)
}

func (s *Service) DeleteRecording(ctx context.Context, id string) error {
	return s.archive.Delete(ctx, id)
}

// Usage reports how many recordings are archived and their serialized size.
func (s *Service) Usage(ctx context.Context) (count, bytes int, err error) {
	return s.archive.Usage(ctx)
}

// Verify scores rec without storing it.
func (s *Service) Verify(rec recording.Recording) recording.Verification {
	return recording.Verify(rec)
}

// Decode parses a viewer link. Encoded links carry the full recording; gist
// links only carry the id.
func (s *Service) Decode(link string) (recording.ViewerLink, error) {
	return recording.ParseViewerURL(link)
}

// Shorten shortens each URL in order with delay between requests.
func (s *Service) Shorten(ctx context.Context, urls []string, delay time.Duration) []shortener.Result {
	return s.shortener.ShortenBatch(ctx, urls, delay)
}

// AuthStatus reports the active credential. An OAuth credential is checked
// against the profile endpoint; a manual token is reported as-is.
func (s *Service) AuthStatus(ctx context.Context) (deviceflow.AuthStatus, error) {
	st, err := s.auth.Status(ctx)
	if err != nil {
		return deviceflow.AuthStatus{}, err
	}
	if st.Authenticated {
		return st, nil
	}
	src, err := s.vault.Source(ctx)
	if err != nil {
		return deviceflow.AuthStatus{}, err
	}
	if src == credential.SourceManual {
		return deviceflow.AuthStatus{Authenticated: true, Method: string(credential.SourceManual)}, nil
	}
	return deviceflow.AuthStatus{}, nil
}

func (s *Service) StartDeviceFlow(ctx context.Context) (*deviceflow.Session, error) {
	return s.auth.Initiate(ctx)
}

func (s *Service) DeviceSession(ctx context.Context) (*deviceflow.Session, error) {
	return s.auth.Session(ctx)
}

func (s *Service) PollDeviceFlow(ctx context.Context) deviceflow.PollResult {
	return s.auth.Poll(ctx)
}

func (s *Service) CancelDeviceFlow(ctx context.Context) error {
	return s.auth.Cancel(ctx)
}

// Poller exposes the device-flow client for callers that drive their own wait loop.
func (s *Service) Poller() deviceflow.Poller {
	return s.auth
}

// Logout removes the OAuth credential and any pending session. A manual token
// is left in place unless all is set.
func (s *Service) Logout(ctx context.Context, all bool) error {
	if err := s.auth.Cancel(ctx); err != nil {
		return err
	}
	if err := s.auth.Revoke(ctx); err != nil {
		return err
	}
	if all {
		return s.gists.ClearManualToken(ctx)
	}
	return nil
}

func (s *Service) SetManualToken(ctx context.Context, token string) (gist.TokenCheck, error) {
	return s.gists.SaveManualToken(ctx, token)
}

func (s *Service) ClearManualToken(ctx context.Context) error {
	return s.gists.ClearManualToken(ctx)
}

func (s *Service) ListGists(ctx context.Context, limit int) gist.ListResult {
	return s.gists.List(ctx, limit)
}

func (s *Service) DeleteGist(ctx context.Context, id string) gist.DeleteResult {
	return s.gists.Delete(ctx, id)
}

func (s *Service) PromptState(ctx context.Context) (share.PromptState, error) {
	return s.prompts.State(ctx)
}

func (s *Service) DismissPrompt(ctx context.Context) error {
	return s.prompts.Dismiss(ctx)
}

func (s *Service) SkipPrompt(ctx context.Context) error {
	return s.prompts.Skip(ctx)
}
