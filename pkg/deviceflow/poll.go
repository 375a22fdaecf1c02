package deviceflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/humanitybadge/cli/pkg/store"
	"github.com/humanitybadge/cli/pkg/util"
)

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Interval              int    `json:"interval"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

// Poll makes a single token request for the stored session.
//
// An expired session is cleared locally without contacting the server. A call
// made while another Poll is running returns SignalInFlight immediately. A
// response that arrives after the session was cancelled or replaced is
// discarded with SignalCancelled.
func (c *Client) Poll(ctx context.Context) PollResult {
	if !c.polling.TryLock() {
		return PollResult{State: StateAwaiting, Signal: SignalInFlight, Message: "A poll is already in progress"}
	}
	defer c.polling.Unlock()

	sess, err := c.Session(ctx)
	if err != nil {
		return PollResult{State: StateError, Message: err.Error()}
	}
	if sess == nil {
		return PollResult{State: StateIdle, ErrorCode: "no_session", Message: "No device code found. Start the device flow first."}
	}

	if sess.Expired(c.now()) {
		c.mu.Lock()
		_ = c.clearSessionLocked(ctx)
		c.mu.Unlock()
		return PollResult{State: StateExpired, Message: "Device code expired. Please try again."}
	}

	tr, err := c.requestToken(ctx, sess.DeviceCode)
	if err != nil {
		c.logger.Warn("device flow poll failed", "error", err)
		return PollResult{State: StateError, Message: err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.Session(ctx)
	if err != nil {
		return PollResult{State: StateError, Message: err.Error()}
	}
	if current == nil || current.DeviceCode != sess.DeviceCode {
		c.logger.Debug("discarding poll response for inactive session")
		return PollResult{State: StateIdle, Signal: SignalCancelled, Message: "Authorization was cancelled"}
	}

	switch tr.Error {
	case "":
	case "authorization_pending":
		return PollResult{State: StateAwaiting, Signal: SignalPending, Message: "Waiting for user to authorize..."}
	case "slow_down":
		next := tr.Interval
		if next <= 0 {
			next = current.IntervalSeconds + slowDownStep
		}
		current.IntervalSeconds = next
		if err := store.SetJSON(ctx, c.local, KeySession, current); err != nil {
			c.logger.Warn("failed to persist polling interval", "error", err)
		}
		return PollResult{
			State:           StateAwaiting,
			Signal:          SignalSlowDown,
			IntervalSeconds: next,
			Message:         fmt.Sprintf("Polling too fast, slowing down to %ds intervals...", next),
		}
	case "expired_token":
		_ = c.clearSessionLocked(ctx)
		return PollResult{State: StateExpired, ErrorCode: tr.Error, Message: "Authorization expired. Please try again."}
	case "access_denied":
		_ = c.clearSessionLocked(ctx)
		return PollResult{State: StateDenied, ErrorCode: tr.Error, Message: "Authorization denied by user."}
	case "device_flow_disabled":
		_ = c.clearSessionLocked(ctx)
		return PollResult{
			State:     StateError,
			ErrorCode: tr.Error,
			Message:   "Device Flow must be enabled in the GitHub App settings. Open the app settings on GitHub and check \"Enable Device Flow\".",
		}
	default:
		// Unrecognized errors leave the session so the caller can retry or cancel.
		msg := "OAuth error: " + tr.Error
		if tr.ErrorDescription != "" {
			msg += " - " + tr.ErrorDescription
		}
		return PollResult{State: StateError, ErrorCode: tr.Error, Message: msg}
	}

	if tr.AccessToken == "" {
		return PollResult{State: StateError, ErrorCode: "unknown", Message: "Unexpected response from GitHub"}
	}

	rec := c.tokenRecord(tr.AccessToken, tr.TokenType, tr.Scope, tr.ExpiresIn, tr.RefreshToken, tr.RefreshTokenExpiresIn)
	if err := c.vault.SaveOAuth(ctx, rec); err != nil {
		return PollResult{State: StateError, Message: fmt.Sprintf("save token: %v", err)}
	}
	_ = c.clearSessionLocked(ctx)
	c.logger.Info("device flow authorized", "token", util.MaskSecret(rec.AccessToken), "expires", rec.Expires())

	res := PollResult{State: StateAuthorized}
	if p, err := c.UserInfo(ctx, rec.AccessToken); err == nil {
		res.Username, res.Name, res.AvatarURL = p.Login, p.Name, p.AvatarURL
	} else {
		c.logger.Warn("failed to fetch profile", "error", err)
	}
	return res
}

func (c *Client) requestToken(ctx context.Context, deviceCode string) (*tokenResponse, error) {
	form := url.Values{
		"client_id":   {c.oauth.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {deviceGrantType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("HTTP %d: unreadable token response", resp.StatusCode)
	}
	if tr.Error == "" && tr.AccessToken == "" && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &tr, nil
}

func (c *Client) tokenRecord(access, tokenType, scope string, expiresIn int64, refresh string, refreshExpiresIn int64) credential.TokenRecord {
	now := c.now()
	if tokenType == "" {
		tokenType = "bearer"
	}
	rec := credential.TokenRecord{
		AccessToken: access,
		TokenType:   tokenType,
		Scope:       scope,
		CreatedAt:   now.UnixMilli(),
	}
	if refresh != "" {
		rec.RefreshToken = refresh
		rec.RefreshTokenExpiresIn = refreshExpiresIn
	}
	if expiresIn > 0 {
		rec.ExpiresIn = expiresIn
		rec.ExpiresAt = now.UnixMilli() + expiresIn*1000
	}
	return rec
}
