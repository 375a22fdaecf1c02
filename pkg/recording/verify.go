package recording

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf16"
)

const (
	// MinDurationMillis is the shortest session accepted as typed by a human.
	MinDurationMillis = 5000
	// MinWPM and MaxWPM bound the plausible human typing speed.
	MinWPM = 10
	MaxWPM = 200

	ReasonNoTypingData = "No typing data"
	ReasonTooFast      = "Too fast - minimum 5 seconds required"
)

// Verification is the authenticity verdict and the metrics derived from a recording.
// Duration is in whole seconds.
type Verification struct {
	IsAuthentic bool   `json:"isAuthentic"`
	Reason      string `json:"reason,omitempty"`
	WPM         int    `json:"wpm,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	Characters  int    `json:"characters,omitempty"`
	Words       int    `json:"words,omitempty"`
}

// Verify computes the verdict for r. It is pure: the same recording always
// yields the same verdict.
func Verify(r Recording) Verification {
	if len(r.Events) == 0 {
		return Verification{IsAuthentic: false, Reason: ReasonNoTypingData}
	}

	words := CountWords(r.FinalValue)
	minutes := float64(r.Duration) / 60000
	wpm := float64(words) / minutes

	if r.Duration < MinDurationMillis {
		return Verification{IsAuthentic: false, Reason: ReasonTooFast}
	}

	if wpm < MinWPM || wpm > MaxWPM {
		return Verification{
			IsAuthentic: false,
			Reason:      fmt.Sprintf("Unrealistic speed: %d WPM", roundHalfUp(wpm)),
		}
	}

	return Verification{
		IsAuthentic: true,
		WPM:         roundHalfUp(wpm),
		Duration:    roundHalfUp(float64(r.Duration) / 1000),
		Characters:  CharacterCount(r.FinalValue),
		Words:       words,
	}
}

// CountWords counts whitespace-delimited non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CharacterCount measures text in UTF-16 code units, the unit the browser reports.
func CharacterCount(text string) int {
	return len(utf16.Encode([]rune(text)))
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
