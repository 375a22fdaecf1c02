// Package notify dispatches user-facing notifications such as the credential prompt.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pterm/pterm"
)

// Message is one notification.
type Message struct {
	Title string
	Body  string
}

// Sink delivers messages somewhere the user will see them.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// TerminalSink prints messages to the terminal.
type TerminalSink struct{}

func (TerminalSink) Notify(_ context.Context, msg Message) error {
	pterm.Info.Printfln("%s\n%s", msg.Title, msg.Body)
	return nil
}

// NtfySink posts messages to an ntfy topic URL.
type NtfySink struct {
	Endpoint string
	Client   *http.Client
}

func (s NtfySink) Notify(ctx context.Context, msg Message) error {
	if s.Endpoint == "" {
		return errors.New("ntfy endpoint is not configured")
	}
	c := s.Client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(context.Context, Message) error { return nil }
