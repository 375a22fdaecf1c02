package share

import (
	"context"

	"github.com/humanitybadge/cli/pkg/store"
)

// Settings-scope keys for the credential prompt.
const (
	KeySkipped         = "githubSkipped"
	KeyPromptCount     = "githubPromptCount"
	KeyPromptDismissed = "githubPromptDismissed"

	// MaxPrompts is the lifetime cap on credential prompts.
	MaxPrompts = 2

	PromptTitle   = "Humanity Badge - Get Professional URLs"
	PromptMessage = "Connect GitHub Gist for short gist.github.com/yourname/... URLs instead of long hash links. Run `badge auth login` to connect!"
)

// Prompt is a command to show the credential upsell once.
type Prompt struct {
	Count   int    `json:"count"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// PromptState is the persisted prompt bookkeeping.
type PromptState struct {
	Count     int  `json:"count"`
	Skipped   bool `json:"skipped"`
	Dismissed bool `json:"dismissed"`
}

// CredentialChecker reports whether any paste-bin credential exists.
type CredentialChecker interface {
	Has(ctx context.Context) (bool, error)
}

// PromptPolicy decides whether to nudge the user to connect a credential.
type PromptPolicy struct {
	settings store.Store
	creds    CredentialChecker
}

func NewPromptPolicy(settings store.Store, creds CredentialChecker) *PromptPolicy {
	return &PromptPolicy{settings: settings, creds: creds}
}

// State reads the persisted counters.
func (p *PromptPolicy) State(ctx context.Context) (PromptState, error) {
	var st PromptState
	var err error
	if st.Count, _, err = store.GetJSON[int](ctx, p.settings, KeyPromptCount); err != nil {
		return st, err
	}
	if st.Skipped, _, err = store.GetJSON[bool](ctx, p.settings, KeySkipped); err != nil {
		return st, err
	}
	if st.Dismissed, _, err = store.GetJSON[bool](ctx, p.settings, KeyPromptDismissed); err != nil {
		return st, err
	}
	return st, nil
}

// Evaluate returns a prompt to show, or nil. Showing a prompt increments the
// lifetime count; once the cap is reached prompting is disabled for good.
func (p *PromptPolicy) Evaluate(ctx context.Context) (*Prompt, error) {
	has, err := p.creds.Has(ctx)
	if err != nil || has {
		return nil, err
	}
	st, err := p.State(ctx)
	if err != nil {
		return nil, err
	}
	if st.Skipped || st.Dismissed {
		return nil, nil
	}
	if st.Count >= MaxPrompts {
		return nil, p.Dismiss(ctx)
	}

	next := st.Count + 1
	if err := store.SetJSON(ctx, p.settings, KeyPromptCount, next); err != nil {
		return nil, err
	}
	return &Prompt{Count: next, Title: PromptTitle, Message: PromptMessage}, nil
}

// Dismiss permanently disables the prompt.
func (p *PromptPolicy) Dismiss(ctx context.Context) error {
	return store.SetJSON(ctx, p.settings, KeyPromptDismissed, true)
}

// Skip records that the user opted out of connecting a credential.
func (p *PromptPolicy) Skip(ctx context.Context) error {
	return store.SetJSON(ctx, p.settings, KeySkipped, true)
}
