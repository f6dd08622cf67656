package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-05-10", "Fri 10 May"},
		{"2024-12-01", "Sun 1 Dec"},
		{"not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDays(t *testing.T) {
	if got := FormatDays(1); got != "1 day" {
		t.Errorf("FormatDays(1) = %q", got)
	}
	if got := FormatDays(0); got != "0 days" {
		t.Errorf("FormatDays(0) = %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	if got := FormatAgo(time.Time{}); got != "never" {
		t.Errorf("FormatAgo(zero) = %q", got)
	}
	if got := FormatAgo(time.Now().Add(-3 * time.Minute)); !strings.Contains(got, "minutes ago") {
		t.Errorf("FormatAgo(-3m) = %q", got)
	}
}

func TestFormatSigned(t *testing.T) {
	fm := money.Formatter{}.Format
	if got := FormatSigned(12.5, fm); got != "+£12.50" {
		t.Errorf("FormatSigned(12.5) = %q", got)
	}
	if got := FormatSigned(-3, fm); got != "-£3.00" {
		t.Errorf("FormatSigned(-3) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Street food tour", 8); got != "Street…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestRenderTableAlignsWideSymbols(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Day", "Spent"},
		Rows:    [][]string{{"Fri 10 May", "฿1,200.00"}, {"Sat 11 May", "฿80.00"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	first := len([]rune(stripANSI(lines[0])))
	for _, l := range lines[1:] {
		if n := len([]rune(stripANSI(l))); n != first {
			t.Errorf("line width %d != %d: %q", n, first, stripANSI(l))
		}
	}
}

func TestRenderAlertIncludesBadge(t *testing.T) {
	out := stripANSI(RenderAlert(model.Alert{Tone: model.ToneDanger, Message: "Over budget"}))
	if !strings.HasPrefix(out, model.ToneDanger.Badge()) || !strings.HasSuffix(out, "Over budget") {
		t.Errorf("RenderAlert = %q", out)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
