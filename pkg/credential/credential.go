// Package credential stores the paste-bin credentials and decides which one is active.
package credential

import (
	"context"
	"strings"
	"time"

	"github.com/humanitybadge/cli/pkg/store"
)

// Settings-scope keys.
const (
	KeyOAuthToken  = "githubOAuthToken"
	KeyManualToken = "githubToken"
)

// Source says where the active credential came from.
type Source string

const (
	SourceNone   Source = ""
	SourceOAuth  Source = "oauth"
	SourceManual Source = "manual"
)

// TokenRecord is a credential minted by the device flow. Times are Unix milliseconds.
type TokenRecord struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type,omitempty"`
	Scope                 string `json:"scope,omitempty"`
	CreatedAt             int64  `json:"created_at"`
	ExpiresIn             int64  `json:"expires_in,omitempty"`
	ExpiresAt             int64  `json:"expires_at,omitempty"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
}

// Expires reports whether the token carries an expiry at all.
func (t TokenRecord) Expires() bool {
	return t.ExpiresAt > 0
}

// ExpiresWithin reports whether the token expires before now+d.
func (t TokenRecord) ExpiresWithin(now time.Time, d time.Duration) bool {
	return t.Expires() && t.ExpiresAt-now.UnixMilli() < d.Milliseconds()
}

// Expired reports whether the token is past its expiry.
func (t TokenRecord) Expired(now time.Time) bool {
	return t.Expires() && now.UnixMilli() > t.ExpiresAt
}

// Credential is the resolved secret sent to the paste-bin API.
type Credential struct {
	Token  string
	Source Source
}

// Refresher yields an OAuth access token, refreshing it first when it is near expiry.
type Refresher interface {
	AccessToken(ctx context.Context) (string, error)
}

// Vault owns both credential slots in the settings store.
type Vault struct {
	settings  store.Store
	refresher Refresher
}

func NewVault(settings store.Store) *Vault {
	return &Vault{settings: settings}
}

// WithRefresher returns a Vault sharing the same storage whose Resolve obtains OAuth
// tokens through r.
func (v *Vault) WithRefresher(r Refresher) *Vault {
	cp := *v
	cp.refresher = r
	return &cp
}

func (v *Vault) LoadOAuth(ctx context.Context) (*TokenRecord, error) {
	rec, ok, err := store.GetJSON[TokenRecord](ctx, v.settings, KeyOAuthToken)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// SaveOAuth replaces the stored OAuth record.
func (v *Vault) SaveOAuth(ctx context.Context, rec TokenRecord) error {
	return store.SetJSON(ctx, v.settings, KeyOAuthToken, rec)
}

func (v *Vault) RemoveOAuth(ctx context.Context) error {
	return v.settings.Delete(ctx, KeyOAuthToken)
}

func (v *Vault) LoadManual(ctx context.Context) (string, error) {
	tok, _, err := store.GetJSON[string](ctx, v.settings, KeyManualToken)
	return tok, err
}

// SaveManual stores token after trimming surrounding whitespace.
// Callers are expected to have validated it.
func (v *Vault) SaveManual(ctx context.Context, token string) error {
	return store.SetJSON(ctx, v.settings, KeyManualToken, strings.TrimSpace(token))
}

func (v *Vault) ClearManual(ctx context.Context) error {
	return v.settings.Delete(ctx, KeyManualToken)
}

// stored picks the active credential from storage: a non-empty OAuth access
// token wins over a non-blank manual token.
func (v *Vault) stored(ctx context.Context) (Credential, error) {
	rec, err := v.LoadOAuth(ctx)
	if err != nil {
		return Credential{}, err
	}
	if rec != nil && rec.AccessToken != "" {
		return Credential{Token: rec.AccessToken, Source: SourceOAuth}, nil
	}

	manual, err := v.LoadManual(ctx)
	if err != nil {
		return Credential{}, err
	}
	if manual = strings.TrimSpace(manual); manual != "" {
		return Credential{Token: manual, Source: SourceManual}, nil
	}
	return Credential{}, nil
}

// Resolve returns the active credential. An empty Token means none is configured.
func (v *Vault) Resolve(ctx context.Context) (Credential, error) {
	cred, err := v.stored(ctx)
	if err != nil || cred.Source != SourceOAuth || v.refresher == nil {
		return cred, err
	}
	if tok, err := v.refresher.AccessToken(ctx); err == nil && tok != "" {
		cred.Token = tok
	}
	return cred, nil
}

// Has reports whether Resolve would return a credential. It uses the same
// selection as Resolve but never triggers a refresh.
func (v *Vault) Has(ctx context.Context) (bool, error) {
	cred, err := v.stored(ctx)
	return cred.Source != SourceNone, err
}

// Source reports which slot is active.
func (v *Vault) Source(ctx context.Context) (Source, error) {
	cred, err := v.stored(ctx)
	return cred.Source, err
}
