package recording

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCorruptLink is returned when a link fragment cannot be decoded into a recording.
var ErrCorruptLink = errors.New("invalid share link - data could not be decoded")

const (
	fragmentPrefix = "#data="
	gistParam      = "gist"
)

// EncodeFragment returns base64(utf8(JSON(r))) for use after "#data=".
func EncodeFragment(r Recording) (string, error) {
	b, err := Canonical(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeFragment reverses EncodeFragment. Any failure is reported as ErrCorruptLink.
func DecodeFragment(encoded string) (Recording, error) {
	var r Recording
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrCorruptLink, err)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrCorruptLink, err)
	}
	return r, nil
}

// EncodedViewerURL builds "<base>#data=<fragment>". The fragment is appended verbatim
// and must not be percent-encoded.
func EncodedViewerURL(base string, r Recording) (string, error) {
	b, err := Canonical(r)
	if err != nil {
		return "", err
	}
	return ViewerURLFromCanonical(base, b), nil
}

// ViewerURLFromCanonical is EncodedViewerURL for an already serialized recording.
func ViewerURLFromCanonical(base string, canonical []byte) string {
	return stripFragment(base) + fragmentPrefix + base64.StdEncoding.EncodeToString(canonical)
}

// GistViewerURL builds "<base>?gist=<id>".
func GistViewerURL(base, gistID string) string {
	base = stripFragment(base)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + gistParam + "=" + gistID
}

// ViewerLink is what a viewer URL refers to: either a hosted gist or an embedded recording.
type ViewerLink struct {
	GistID    string     `json:"gistId,omitempty"`
	Recording *Recording `json:"recording,omitempty"`
}

// ParseViewerURL extracts the gist reference or embedded recording from a viewer URL.
func ParseViewerURL(link string) (ViewerLink, error) {
	if i := strings.Index(link, fragmentPrefix); i >= 0 {
		r, err := DecodeFragment(link[i+len(fragmentPrefix):])
		if err != nil {
			return ViewerLink{}, err
		}
		return ViewerLink{Recording: &r}, nil
	}

	query := stripFragment(link)
	if i := strings.Index(query, "?"); i >= 0 {
		for _, pair := range strings.Split(query[i+1:], "&") {
			k, v, _ := strings.Cut(pair, "=")
			if k == gistParam && v != "" {
				return ViewerLink{GistID: v}, nil
			}
		}
	}
	return ViewerLink{}, fmt.Errorf("%w: no #data= fragment or gist parameter", ErrCorruptLink)
}

func stripFragment(u string) string {
	if i := strings.Index(u, "#"); i >= 0 {
		return u[:i]
	}
	return u
}
