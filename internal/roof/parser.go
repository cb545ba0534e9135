package roof

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// StatusMarker precedes the roof state on SkyAlert-style status lines, e.g.
//
//	2025-07-11 10:47:42PM Roof Status: CLOSED
const StatusMarker = "Roof Status:"

// NoStatusLabel is returned by ExtractStatusLabel for blank input.
const NoStatusLabel = "no status found"

const (
	openToken      = "open"
	maxLabelLength = 50
	timestampGoFmt = "2006-01-02 3:04:05PM"
)

var timestampPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{1,2}:\d{2}:\d{2})(AM|PM)`)

// ParseSafety reports whether status text says the roof is open.
//
// The first line carrying StatusMarker decides. Without any marker the whole
// text is searched for "OPEN". Matching is case-insensitive; empty text is
// unsafe.
func ParseSafety(text string) bool {
	if text == "" {
		return false
	}
	if status, ok := afterMarker(text); ok {
		return containsFold(status, openToken)
	}
	return containsFold(text, openToken)
}

// ExtractTimestamp returns the first "YYYY-MM-DD HH:MM:SS(AM|PM)" timestamp
// in text, interpreted as wall-clock time in loc (UTC when loc is nil).
func ExtractTimestamp(text string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, line := range strings.Split(text, "\n") {
		m := timestampPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation(timestampGoFmt, m[1]+m[2], loc)
		if err != nil {
			continue
		}
		return ts, true
	}
	return time.Time{}, false
}

// ExtractStatusLabel returns a short human-readable status line: the text
// after StatusMarker, else the first non-empty line (truncated), else
// NoStatusLabel.
func ExtractStatusLabel(text string) string {
	if status, ok := afterMarker(text); ok {
		return status
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncate(line, maxLabelLength)
	}
	return NoStatusLabel
}

// afterMarker finds the first line containing StatusMarker and returns the
// trimmed remainder of that line.
func afterMarker(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if idx := indexFold(line, StatusMarker); idx >= 0 {
			return strings.TrimSpace(line[idx+len(StatusMarker):]), true
		}
	}
	return "", false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// indexFold is a byte-exact case-insensitive search for an ASCII needle.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
