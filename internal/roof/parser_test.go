package roof

import (
	"strings"
	"testing"
	"time"
)

func TestParseSafety(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"marker open", "???2025-07-11 10:47:42PM Roof Status: OPEN", true},
		{"marker closed", "???2025-07-11 10:47:42PM Roof Status: CLOSED", false},
		{"marker lowercase", "roof status: open", true},
		{"marker mixed case value", "Roof Status: Opening", true},
		{"marker on later line", "SkyAlert v2\nupdated\nRoof Status: OPEN\n", true},
		{"first marker line decides", "Roof Status: CLOSED\nRoof Status: OPEN", false},
		{"marker with empty status", "Roof Status:", false},
		{"marker closed but open elsewhere", "Door OPEN\nRoof Status: CLOSED", false},
		{"no marker but open somewhere", "no marker but OPEN somewhere", true},
		{"no marker lowercase open", "the roof is open", true},
		{"no marker no open", "all shut", false},
		{"whitespace only", "   \n\t", false},
		{"crlf line endings", "header\r\nRoof Status: OPEN\r\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSafety(tt.text); got != tt.want {
				t.Errorf("ParseSafety(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractTimestamp(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name   string
		text   string
		loc    *time.Location
		want   time.Time
		wantOK bool
	}{
		{
			name:   "skyalert pm",
			text:   "???2025-07-11 10:47:42PM Roof Status: CLOSED",
			want:   time.Date(2025, 7, 11, 22, 47, 42, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "am with leading zero",
			text:   "2024-01-02 03:04:05AM Roof Status: OPEN",
			want:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "twelve am is midnight",
			text:   "2024-01-02 12:15:00AM",
			want:   time.Date(2024, 1, 2, 0, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "first match wins",
			text:   "noise\n2024-05-01 01:00:00PM first\n2024-05-02 02:00:00PM second",
			want:   time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "wall clock in location",
			text:   "2024-07-01 09:30:00PM Roof Status: OPEN",
			loc:    madrid,
			want:   time.Date(2024, 7, 1, 21, 30, 0, 0, madrid),
			wantOK: true,
		},
		{name: "space before meridiem", text: "2024-01-02 03:04:05 PM"},
		{name: "24 hour clock", text: "2024-01-02 15:04:05"},
		{name: "no timestamp", text: "Roof Status: OPEN"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTimestamp(tt.text, tt.loc)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTimestamp() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ExtractTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractStatusLabel(t *testing.T) {
	long := strings.Repeat("x", 60)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"after marker", "2025-07-11 10:47:42PM Roof Status:  CLOSED  ", "CLOSED"},
		{"marker on second line", "header\nROOF STATUS: Open (auto)", "Open (auto)"},
		{"first non-empty line", "\n\n  Roof is moving  \nmore", "Roof is moving"},
		{"truncated line", long, strings.Repeat("x", 50) + "..."},
		{"exactly fifty", strings.Repeat("y", 50), strings.Repeat("y", 50)},
		{"empty", "", NoStatusLabel},
		{"blank lines", "\n  \n\t\n", NoStatusLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractStatusLabel(tt.text); got != tt.want {
				t.Errorf("ExtractStatusLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
