// Package gist publishes standalone recordings as private GitHub gists.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/samber/lo"
)

const (
	DefaultAPIURL = "https://api.github.com"

	acceptHeader   = "application/vnd.github.v3+json"
	defaultTimeout = 30 * time.Second

	ErrInvalidCredential = "invalid credential"
	ErrNoCredential      = "No GitHub token configured"
)

// Credentials is the credential surface the client needs. *credential.Vault satisfies it.
type Credentials interface {
	Resolve(ctx context.Context) (credential.Credential, error)
	Has(ctx context.Context) (bool, error)
	Source(ctx context.Context) (credential.Source, error)
	SaveManual(ctx context.Context, token string) error
	ClearManual(ctx context.Context) error
}

// Meta describes the recording being uploaded.
type Meta struct {
	WPM      int
	Duration int
	Domain   string
}

// UploadResult is the outcome of Upload. NeedsCredential marks failures that
// require the user to (re)connect a credential.
type UploadResult struct {
	Success         bool   `json:"success"`
	URL             string `json:"url,omitempty"`
	RawURL          string `json:"rawUrl,omitempty"`
	GistID          string `json:"gistId,omitempty"`
	Error           string `json:"error,omitempty"`
	NeedsCredential bool   `json:"needsCredential,omitempty"`
}

type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Summary struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"createdAt"`
	Files       []string `json:"files"`
}

type ListResult struct {
	Success bool      `json:"success"`
	Gists   []Summary `json:"gists,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// TokenCheck is the result of validating a token against the profile endpoint.
type TokenCheck struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Client struct {
	apiURL string
	creds  Credentials
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Client)

func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock sets the clock used for the upload date in filenames.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		apiURL: DefaultAPIURL,
		creds:  creds,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether Upload would find a credential.
func (c *Client) HasCredential(ctx context.Context) bool {
	ok, err := c.creds.Has(ctx)
	if err != nil {
		c.logger.Warn("credential lookup failed", "error", err)
		return false
	}
	return ok
}

// CredentialSource reports which credential slot is active.
func (c *Client) CredentialSource(ctx context.Context) credential.Source {
	src, err := c.creds.Source(ctx)
	if err != nil {
		c.logger.Warn("credential lookup failed", "error", err)
		return credential.SourceNone
	}
	return src
}

// Filename returns the name a recording with meta gets when uploaded at t.
func Filename(meta Meta, t time.Time) string {
	return fmt.Sprintf("humanity-badge-%dwpm-%s.html", meta.WPM, t.UTC().Format(time.DateOnly))
}

// Description returns the gist description for meta.
func Description(meta Meta) string {
	return fmt.Sprintf("Humanity Badge Typing Verification - %d WPM", meta.WPM)
}

type createFile struct {
	Content string `json:"content"`
}

type createRequest struct {
	Description string                `json:"description"`
	Public      bool                  `json:"public"`
	Files       map[string]createFile `json:"files"`
}

type gistFile struct {
	RawURL string `json:"raw_url"`
}

type gistResponse struct {
	ID          string              `json:"id"`
	HTMLURL     string              `json:"html_url"`
	Description string              `json:"description"`
	CreatedAt   string              `json:"created_at"`
	Files       map[string]gistFile `json:"files"`
}

type apiError struct {
	Message string `json:"message"`
}

// Upload creates a private gist holding content. Without a credential it fails
// immediately with NeedsCredential and makes no request.
func (c *Client) Upload(ctx context.Context, content string, meta Meta) UploadResult {
	token, ok := c.token(ctx)
	if !ok {
		return UploadResult{Error: ErrNoCredential, NeedsCredential: true}
	}

	filename := Filename(meta, c.now())
	body, err := json.Marshal(createRequest{
		Description: Description(meta),
		Public:      false,
		Files:       map[string]createFile{filename: {Content: content}},
	})
	if err != nil {
		return UploadResult{Error: err.Error()}
	}

	resp, err := c.do(ctx, http.MethodPost, "/gists", token, body)
	if err != nil {
		c.logger.Warn("gist upload failed", "error", err)
		return UploadResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return UploadResult{Error: ErrInvalidCredential, NeedsCredential: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{Error: errorMessage(resp.Body, "Failed to create Gist")}
	}

	var g gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return UploadResult{Error: fmt.Sprintf("decode gist response: %v", err)}
	}
	c.logger.Info("gist created", "id", g.ID, "file", filename)
	return UploadResult{
		Success: true,
		URL:     g.HTMLURL,
		RawURL:  g.Files[filename].RawURL,
		GistID:  g.ID,
	}
}

// Delete removes a gist. Only 204 counts as success.
func (c *Client) Delete(ctx context.Context, id string) DeleteResult {
	token, ok := c.token(ctx)
	if !ok {
		return DeleteResult{Error: ErrNoCredential}
	}
	resp, err := c.do(ctx, http.MethodDelete, "/gists/"+id, token, nil)
	if err != nil {
		return DeleteResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return DeleteResult{Error: "Failed to delete Gist"}
	}
	return DeleteResult{Success: true}
}

// List returns up to limit of the user's gists, newest first as the API orders them.
func (c *Client) List(ctx context.Context, limit int) ListResult {
	token, ok := c.token(ctx)
	if !ok {
		return ListResult{Error: ErrNoCredential}
	}
	if limit <= 0 {
		limit = 10
	}
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/gists?per_page=%d", limit), token, nil)
	if err != nil {
		return ListResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ListResult{Error: "Failed to list Gists"}
	}

	var raw []gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ListResult{Error: fmt.Sprintf("decode gist list: %v", err)}
	}
	gists := lo.Map(raw, func(g gistResponse, _ int) Summary {
		files := lo.Keys(g.Files)
		sort.Strings(files)
		return Summary{ID: g.ID, URL: g.HTMLURL, Description: g.Description, CreatedAt: g.CreatedAt, Files: files}
	})
	return ListResult{Success: true, Gists: gists}
}

type userResponse struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// ValidateToken checks token with an authenticated profile fetch.
func (c *Client) ValidateToken(ctx context.Context, token string) TokenCheck {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenCheck{Error: "Token is empty"}
	}
	resp, err := c.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		return TokenCheck{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenCheck{Error: errorMessage(resp.Body, "Invalid token")}
	}
	var u userResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return TokenCheck{Error: fmt.Sprintf("decode user: %v", err)}
	}
	return TokenCheck{Valid: true, Username: u.Login, Name: u.Name}
}

// SaveManualToken validates token and persists it only if valid.
func (c *Client) SaveManualToken(ctx context.Context, token string) (TokenCheck, error) {
	check := c.ValidateToken(ctx, token)
	if !check.Valid {
		return check, nil
	}
	if err := c.creds.SaveManual(ctx, token); err != nil {
		return check, fmt.Errorf("save token: %w", err)
	}
	return check, nil
}

func (c *Client) ClearManualToken(ctx context.Context) error {
	return c.creds.ClearManual(ctx)
}

func (c *Client) token(ctx context.Context) (string, bool) {
	cred, err := c.creds.Resolve(ctx)
	if err != nil {
		c.logger.Warn("credential lookup failed", "error", err)
		return "", false
	}
	return cred.Token, cred.Token != ""
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func errorMessage(body io.Reader, fallback string) string {
	var e apiError
	if err := json.NewDecoder(body).Decode(&e); err != nil || e.Message == "" {
		return fallback
	}
	return e.Message
}
