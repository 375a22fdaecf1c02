// Package deviceflow obtains a paste-bin credential through the OAuth 2.0 device
// authorization grant (RFC 8628) without a client secret.
//
// The client never schedules its own timers. Every Poll is one discrete attempt;
// the caller owns the polling loop (see Waiter).
package deviceflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/humanitybadge/cli/pkg/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	DefaultClientID = "Ov23ctzXIYPS1Am2Otdm"
	DefaultScope    = "gist"
	DefaultAPIURL   = "https://api.github.com"

	// KeySession is the local-scope key holding the in-progress session.
	KeySession = "oauth_device_session"

	defaultInterval  = 5
	defaultExpiresIn = 15 * time.Minute
	defaultTimeout   = 30 * time.Second
	refreshWindow    = 5 * time.Minute
	slowDownStep     = 5

	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// ErrNotConfigured is returned when no usable client identifier is set.
// Manual tokens keep working without it.
var ErrNotConfigured = errors.New("GitHub OAuth is not set up; use a manual personal access token instead")

// State is a device-flow state machine state.
type State string

const (
	StateIdle       State = "idle"
	StateAwaiting   State = "awaiting_authorization"
	StateAuthorized State = "authorized"
	StateExpired    State = "expired"
	StateDenied     State = "denied"
	StateError      State = "error"
)

// Terminal reports whether polling should stop in this state.
func (s State) Terminal() bool {
	return s != StateAwaiting
}

// Signal qualifies a non-terminal poll result.
type Signal string

const (
	SignalNone      Signal = ""
	SignalPending   Signal = "pending"
	SignalSlowDown  Signal = "slow_down"
	SignalInFlight  Signal = "in_flight"
	SignalCancelled Signal = "cancelled"
)

// Session is the transient state of one authorization attempt.
type Session struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresAt               int64  `json:"expires_at"`
	IntervalSeconds         int    `json:"interval_seconds"`
}

// Interval is the minimum wait between polls.
func (s Session) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return defaultInterval * time.Second
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Expired reports whether the device code is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
	return now.UnixMilli() > s.ExpiresAt
}

// PollResult is the outcome of one Poll.
type PollResult struct {
	State           State  `json:"state"`
	Signal          Signal `json:"signal,omitempty"`
	IntervalSeconds int    `json:"interval,omitempty"`
	Message         string `json:"message,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
	Username        string `json:"username,omitempty"`
	Name            string `json:"name,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
}

// Interval returns the server-requested interval, or zero if none was given.
func (r PollResult) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// ServerError carries the structured error returned by the authorization server.
type ServerError struct {
	Status      int
	Code        string
	Description string
}

func (e *ServerError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", e.Status)
	}
	return "GitHub OAuth Error: " + msg
}

// Config names the OAuth application and its endpoints. Zero fields take GitHub defaults.
type Config struct {
	ClientID      string
	Scopes        []string
	DeviceAuthURL string
	TokenURL      string
	APIURL        string
}

type Client struct {
	oauth  oauth2.Config
	apiURL string
	vault  *credential.Vault
	local  store.Store
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time

	// polling rejects overlapping Poll calls.
	polling sync.Mutex
	// mu serializes session writes so a late poll response cannot race Cancel.
	mu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a client storing credentials in vault and the transient session in local.
func New(cfg Config, vault *credential.Vault, local store.Store, opts ...Option) *Client {
	endpoint := github.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if cfg.DeviceAuthURL != "" {
		endpoint.DeviceAuthURL = cfg.DeviceAuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	c := &Client{
		oauth:  oauth2.Config{ClientID: cfg.ClientID, Scopes: scopes, Endpoint: endpoint},
		apiURL: strings.TrimSuffix(apiURL, "/"),
		vault:  vault,
		local:  local,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client id looks like a real registration.
func (c *Client) Configured() bool {
	id := c.oauth.ClientID
	return id != "" && !strings.HasPrefix(id, "YOUR_") && len(id) >= 10
}

// Initiate requests a device code and persists the new session, replacing any
// previous one.
func (c *Client) Initiate(ctx context.Context) (*Session, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	da, err := c.oauth.DeviceAuth(c.httpContext(ctx))
	received := time.Now()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, parseServerError(re.Response, re.Body)
		}
		return nil, fmt.Errorf("request device code: %w", err)
	}
	if da.DeviceCode == "" {
		return nil, errors.New("failed to get device code")
	}

	// oauth2 turns expires_in into a wall-clock Expiry while decoding; recover the
	// lifetime against the same clock, then anchor it on c.now.
	expiresIn := defaultExpiresIn
	if !da.Expiry.IsZero() {
		expiresIn = da.Expiry.Sub(received).Round(time.Second)
	}
	interval := int(da.Interval)
	if interval <= 0 {
		interval = defaultInterval
	}
	sess := &Session{
		DeviceCode:              da.DeviceCode,
		UserCode:                da.UserCode,
		VerificationURI:         da.VerificationURI,
		VerificationURIComplete: da.VerificationURIComplete,
		ExpiresAt:               c.now().Add(expiresIn).UnixMilli(),
		IntervalSeconds:         interval,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := store.SetJSON(ctx, c.local, KeySession, sess); err != nil {
		return nil, fmt.Errorf("save device session: %w", err)
	}
	c.logger.Info("device flow started", "user_code", sess.UserCode, "expires_in", expiresIn)
	return sess, nil
}

// Session returns the in-progress session, or nil if there is none.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	sess, ok, err := store.GetJSON[Session](ctx, c.local, KeySession)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

// Cancel discards the in-progress session. A poll already in flight is not
// aborted; its result is ignored.
func (c *Client) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearSessionLocked(ctx)
}

func (c *Client) clearSessionLocked(ctx context.Context) error {
	return c.local.Delete(ctx, KeySession)
}

func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func parseServerError(resp *http.Response, body []byte) error {
	se := &ServerError{}
	if resp != nil {
		se.Status = resp.StatusCode
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		se.Code = eb.Error
		se.Description = eb.ErrorDescription
		if se.Description == "" {
			se.Description = eb.Message
		}
	}
	return se
}
