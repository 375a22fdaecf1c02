package deviceflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/humanitybadge/cli/pkg/credential"
	"golang.org/x/oauth2"
)

// ErrUnauthorized is returned by UserInfo when the API rejects the token.
var ErrUnauthorized = errors.New("token rejected by GitHub")

// Profile is the subset of the GitHub user profile shown to the user.
type Profile struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// AuthStatus summarizes the OAuth credential for display.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	Method        string `json:"method,omitempty"`
}

// IsAuthenticated reports whether an OAuth access token is stored.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	rec, err := c.vault.LoadOAuth(ctx)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.AccessToken != "", nil
}

// Refresh exchanges the stored refresh token for a new access token and replaces
// the stored record. If the exchange fails the stored credential is revoked.
func (c *Client) Refresh(ctx context.Context) error {
	rec, err := c.vault.LoadOAuth(ctx)
	if err != nil {
		return err
	}
	if rec == nil || rec.RefreshToken == "" {
		return errors.New("no refresh token")
	}

	src := c.oauth.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: rec.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		c.logger.Warn("token refresh failed, revoking credential", "error", err)
		if rerr := c.Revoke(ctx); rerr != nil {
			return errors.Join(fmt.Errorf("refresh token: %w", err), rerr)
		}
		return fmt.Errorf("refresh token: %w", err)
	}

	scope, _ := tok.Extra("scope").(string)
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	next := c.tokenRecord(tok.AccessToken, tok.TokenType, scope, expiresIn, tok.RefreshToken, extraInt(tok, "refresh_token_expires_in"))
	if err := c.vault.SaveOAuth(ctx, next); err != nil {
		return fmt.Errorf("save refreshed token: %w", err)
	}
	c.logger.Info("access token refreshed")
	return nil
}

// AccessToken returns the stored OAuth access token, refreshing it first when it
// expires within five minutes. If the refresh fails the old token is returned so
// the caller's request fails and prompts re-authentication.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	rec, err := c.vault.LoadOAuth(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	if !rec.ExpiresWithin(c.now(), refreshWindow) {
		return rec.AccessToken, nil
	}

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("returning expiring token after failed refresh", "error", err)
		return rec.AccessToken, nil
	}
	fresh, err := c.vault.LoadOAuth(ctx)
	if err != nil || fresh == nil {
		return rec.AccessToken, err
	}
	return fresh.AccessToken, nil
}

// Revoke deletes the stored OAuth credential.
func (c *Client) Revoke(ctx context.Context) error {
	if err := c.vault.RemoveOAuth(ctx); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return nil
}

// UserInfo fetches the profile of the account owning token.
func (c *Client) UserInfo(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: HTTP %d", resp.StatusCode)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Status reports the OAuth credential together with the profile it belongs to.
// A token the profile endpoint rejects is revoked.
func (c *Client) Status(ctx context.Context) (AuthStatus, error) {
	ok, err := c.IsAuthenticated(ctx)
	if err != nil || !ok {
		return AuthStatus{}, err
	}
	token, err := c.AccessToken(ctx)
	if err != nil || token == "" {
		return AuthStatus{}, err
	}

	p, err := c.UserInfo(ctx, token)
	switch {
	case errors.Is(err, ErrUnauthorized):
		c.logger.Info("stored token is no longer valid, clearing")
		return AuthStatus{}, c.Revoke(ctx)
	case err != nil:
		c.logger.Warn("profile lookup failed", "error", err)
		return AuthStatus{Authenticated: true, Method: string(credential.SourceOAuth)}, nil
	}
	return AuthStatus{
		Authenticated: true,
		Username:      p.Login,
		Name:          p.Name,
		AvatarURL:     p.AvatarURL,
		Method:        string(credential.SourceOAuth),
	}, nil
}

func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
