// Package srt parses SubRip subtitle text into timestamped cues and renders
// them as navigable markup. Cues keep file order and are never de-duplicated;
// overlapping cues pass through untouched.
package srt

import (
	"fmt"
	"html"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Cue is one subtitle unit. Times are fractional seconds derived from the
// HH:MM:SS,mmm timestamps.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

var (
	timestampRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)
	sequenceRe  = regexp.MustCompile(`^\d+$`)
)

// Parse scans raw SRT text and returns its cues. Sequence-number lines are
// skipped, blank lines separate blocks, and stray text outside any block is
// ignored. A sequence or timestamp line inside a cue's text marks a malformed
// block: the cue ends there and the line is reprocessed as a new block.
func Parse(content string) []Cue {
	lines := strings.Split(content, "\n")
	var cues []Cue

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])

		if line == "" || sequenceRe.MatchString(line) {
			i++
			continue
		}

		m := timestampRe.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		cue := Cue{
			Start: toSeconds(m[1], m[2], m[3], m[4]),
			End:   toSeconds(m[5], m[6], m[7], m[8]),
		}

		// Collect text lines until a blank line or the start of another block.
		i++
		var text strings.Builder
		for i < len(lines) {
			textLine := strings.TrimSpace(lines[i])
			if textLine == "" {
				break
			}
			if sequenceRe.MatchString(textLine) || timestampRe.MatchString(textLine) {
				// Malformed block; leave the line for the outer scan.
				break
			}
			if text.Len() > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(textLine)
			i++
		}
		cue.Text = text.String()
		cues = append(cues, cue)
	}

	return cues
}

// ParseFile reads and parses an SRT file.
func ParseFile(path string) ([]Cue, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("subtitle file missing: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading subtitle file: %w", err)
	}
	return Parse(string(data)), nil
}

func toSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000
}

// Render turns cues into display markup in source order. Each cue pairs a
// clickable time anchor, addressable by its start time in seconds, with the
// escaped cue text.
func Render(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		anchor := strconv.FormatFloat(cue.Start, 'f', -1, 64)
		fmt.Fprintf(&b, "<p><a href=\"#%s\">[%.2fs - %.2fs]</a> %s</p>",
			anchor, cue.Start, cue.End, html.EscapeString(cue.Text))
	}
	return b.String()
}

// Diagnostic renders an inline error or status notice, escaped, in the same
// content area as cues but visually distinct from them.
func Diagnostic(message string) string {
	return "<p class=\"notice\">" + html.EscapeString(message) + "</p>"
}

// Progress renders a live transcription output chunk. This is a side-channel
// display, not a parsed cue.
func Progress(chunk string) string {
	return "<p class=\"progress\">" + html.EscapeString(chunk) + "</p>"
}
