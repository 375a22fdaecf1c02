// Package export renders the standalone HTML file a recording can be shared as
// when no link is possible.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/humanitybadge/cli/pkg/recording"
)

//go:embed standalone.html.tmpl
var standaloneHTML string

var standalone = template.Must(template.New("standalone").Parse(standaloneHTML))

type page struct {
	Title         string
	Description   string
	ViewerURL     string
	Verification  recording.Verification
	Verified      bool
	FinalValue    string
	Domain        string
	RecordingJSON template.JS
}

// Renderer produces standalone replay pages.
type Renderer struct {
	viewerURL string
}

// New returns a renderer whose pages link back to viewerURL.
func New(viewerURL string) *Renderer {
	return &Renderer{viewerURL: viewerURL}
}

// Render returns a self-contained HTML document embedding rec.
func (r *Renderer) Render(rec recording.Recording) (string, error) {
	// json.Marshal escapes <, > and & so the payload cannot close the script element.
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode recording %s: %w", rec.ID, err)
	}

	p := page{
		Title:         OGTitle(rec.Verification),
		Description:   OGDescription(rec.Verification),
		ViewerURL:     r.viewerURL,
		FinalValue:    rec.FinalValue,
		Domain:        rec.Domain,
		RecordingJSON: template.JS(data),
	}
	if rec.Verification != nil {
		p.Verification = *rec.Verification
		p.Verified = rec.Verification.IsAuthentic
	}

	var buf bytes.Buffer
	if err := standalone.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render standalone page: %w", err)
	}
	return buf.String(), nil
}

// Filename is the suggested download name for rec's standalone page.
func Filename(rec recording.Recording) string {
	return fmt.Sprintf("humanity-badge-%s.html", rec.ID)
}

// OGTitle is the link-preview title for a verdict.
func OGTitle(v *recording.Verification) string {
	if v != nil && v.IsAuthentic {
		return fmt.Sprintf("Humanity Badge - Verified Human: %d WPM", v.WPM)
	}
	return "Humanity Badge - Typing Replay"
}

// OGDescription is the link-preview description for a verdict.
func OGDescription(v *recording.Verification) string {
	if v != nil && v.IsAuthentic {
		return fmt.Sprintf("%d characters typed at %d WPM in %d seconds - Verified authentic human typing",
			v.Characters, v.WPM, v.Duration)
	}
	return "View this typing replay created with Humanity Badge"
}
