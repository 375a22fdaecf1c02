// Package recording holds the typing-session value object, its authenticity verdict,
// and the codecs used to embed a recording in a viewer link.
package recording

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
)

// Event is one captured input event. Timestamp is the offset in milliseconds from
// the recording start; Value is the field contents right after the event.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Key       string `json:"key,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Recording is a finalized typing session. Treat it as immutable: methods that
// change it return a modified copy.
type Recording struct {
	ID           string        `json:"id"`
	StartTime    int64         `json:"startTime"`
	EndTime      int64         `json:"endTime"`
	Duration     int64         `json:"duration"`
	Events       []Event       `json:"events"`
	InitialValue string        `json:"initialValue"`
	FinalValue   string        `json:"finalValue"`
	URL          string        `json:"url"`
	Domain       string        `json:"domain"`
	Verification *Verification `json:"verification,omitempty"`
}

// NewID returns a fresh opaque recording identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate reports the first broken structural invariant, if any.
func (r Recording) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("recording id is required")
	}
	if r.Duration < 0 {
		return fmt.Errorf("recording duration must not be negative (got %d)", r.Duration)
	}
	if r.EndTime-r.StartTime != r.Duration {
		return fmt.Errorf("recording duration %d does not match endTime-startTime %d", r.Duration, r.EndTime-r.StartTime)
	}
	for i := 1; i < len(r.Events); i++ {
		if r.Events[i].Timestamp < r.Events[i-1].Timestamp {
			return fmt.Errorf("event %d timestamp %d precedes event %d timestamp %d",
				i, r.Events[i].Timestamp, i-1, r.Events[i-1].Timestamp)
		}
	}
	return nil
}

// Clone returns a deep copy so the holder can pass it on without sharing state.
func (r Recording) Clone() Recording {
	out := r
	out.Events = slices.Clone(r.Events)
	if r.Verification != nil {
		v := *r.Verification
		out.Verification = &v
	}
	return out
}

// WithVerification returns a copy of r carrying v. The receiver is never modified.
func (r Recording) WithVerification(v Verification) Recording {
	out := r.Clone()
	out.Verification = &v
	return out
}

// Verified returns r with a verdict attached, computing one only if none exists yet.
func (r Recording) Verified() Recording {
	if r.Verification != nil {
		return r
	}
	return r.WithVerification(Verify(r))
}

// Canonical returns the serialized form used for size accounting and link encoding.
// HTML characters are not escaped, matching what a browser's JSON.stringify produces.
func Canonical(r Recording) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("serialize recording %s: %w", r.ID, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Size returns the byte length of the canonical serialization.
func Size(r Recording) (int, error) {
	b, err := Canonical(r)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Read decodes one recording from r and validates it. A missing id is generated.
func Read(r io.Reader) (Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return Recording{}, fmt.Errorf("decode recording: %w", err)
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if err := rec.Validate(); err != nil {
		return Recording{}, err
	}
	return rec, nil
}
