package share

import (
	"fmt"
	"math"

	"github.com/humanitybadge/cli/pkg/recording"
)

type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformLinkedIn Platform = "linkedin"
)

type Style string

const (
	StyleMinimal  Style = "minimal"
	StyleStandard Style = "standard"
	StyleDetailed Style = "detailed"
)

var (
	Platforms = []Platform{PlatformReddit, PlatformLinkedIn}
	Styles    = []Style{StyleMinimal, StyleStandard, StyleDetailed}
)

type shareData struct {
	URL        string
	WPM        int
	Duration   int
	Characters int
}

var templates = map[Platform]map[Style]func(shareData) string{
	PlatformReddit: {
		StyleMinimal: func(d shareData) string { return fmt.Sprintf("✓ Verified Human [proof](%s)", d.URL) },
		StyleStandard: func(d shareData) string {
			return fmt.Sprintf("✓ Verified Human - %d WPM [Watch Replay](%s)", d.WPM, d.URL)
		},
		StyleDetailed: func(d shareData) string {
			return fmt.Sprintf("✓ Humanity Badge: %d chars in %ds at %d WPM [Proof](%s)", d.Characters, d.Duration, d.WPM, d.URL)
		},
	},
	PlatformLinkedIn: {
		StyleMinimal: func(d shareData) string { return fmt.Sprintf("✓ Humanity Badge Verified\nProof: %s", d.URL) },
		StyleStandard: func(d shareData) string {
			return fmt.Sprintf("✓ Humanity Badge Verified - Authentic human writing\nView typing proof: %s", d.URL)
		},
		StyleDetailed: func(d shareData) string {
			return fmt.Sprintf("✓ Humanity Badge Verification\n%d characters typed at %d WPM in %d seconds\nAuthenticity proof: %s",
				d.Characters, d.WPM, d.Duration, d.URL)
		},
	},
}

// FormatText renders post text linking to shareURL. An unknown style falls back
// to the standard one.
func FormatText(rec recording.Recording, shareURL string, platform Platform, style Style) (string, error) {
	byStyle, ok := templates[platform]
	if !ok {
		return "", fmt.Errorf("unsupported platform %q (use reddit or linkedin)", platform)
	}
	tmpl, ok := byStyle[style]
	if !ok {
		tmpl = byStyle[StyleStandard]
	}
	return tmpl(dataFor(rec, shareURL)), nil
}

// AllFormats renders every platform and style.
func AllFormats(rec recording.Recording, shareURL string) map[Platform]map[Style]string {
	d := dataFor(rec, shareURL)
	out := make(map[Platform]map[Style]string, len(templates))
	for p, byStyle := range templates {
		out[p] = make(map[Style]string, len(byStyle))
		for s, tmpl := range byStyle {
			out[p][s] = tmpl(d)
		}
	}
	return out
}

func dataFor(rec recording.Recording, shareURL string) shareData {
	d := shareData{URL: shareURL}
	if v := rec.Verification; v != nil {
		d.WPM, d.Duration, d.Characters = v.WPM, v.Duration, v.Characters
	}
	if d.Duration == 0 {
		d.Duration = int(math.Round(float64(rec.Duration) / 1000))
	}
	if d.Characters == 0 {
		d.Characters = recording.CharacterCount(rec.FinalValue)
	}
	return d
}
