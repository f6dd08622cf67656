package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/model"
)

func TestSparklineLength(t *testing.T) {
	out := Sparkline([]float64{0, 5, 10, 2}, "#ffffff")
	if got := lipgloss.Width(out); got != 4 {
		t.Fatalf("width = %d, want 4", got)
	}
	if Sparkline(nil, "#ffffff") != "" {
		t.Fatal("empty input should render nothing")
	}
}

func TestSpendChartMarksTarget(t *testing.T) {
	out := SpendChart([]float64{10, 80, 40}, []string{"1", "2", "3"}, 50, 40, 8)
	if !strings.Contains(out, "┤") {
		t.Fatalf("target row missing:\n%s", out)
	}
	if !strings.Contains(out, "50") {
		t.Fatalf("target label missing:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 8+2 {
		t.Fatalf("lines = %d, want 10 (8 rows, axis, labels)", len(lines))
	}
}

func TestSpendChartFallsBackToSparkline(t *testing.T) {
	out := SpendChart([]float64{1, 2, 3}, nil, 0, 10, 2)
	if strings.Contains(out, "\n") {
		t.Fatalf("narrow chart should be a single-line sparkline, got %q", out)
	}
}

func TestChartTickStep(t *testing.T) {
	tests := []struct {
		max  float64
		want float64
	}{
		{0, 1},
		{50, 10},
		{120, 20},
		{900, 200},
		{3000, 500},
	}
	for _, tt := range tests {
		if got := chartTickStep(tt.max); got != tt.want {
			t.Errorf("chartTickStep(%v) = %v, want %v", tt.max, got, tt.want)
		}
	}
}

func TestTabVisualWidthMatchesRender(t *testing.T) {
	tabs := []Tab{{Name: "Vietnam"}, {Name: "Laos"}, {Name: "Sri Lanka"}}
	for active := range tabs {
		total := 0
		for i := range tabs {
			total += TabVisualWidth(tabs, i, active)
		}
		total += len(tabs) - 1
		bar := RenderTabBar(tabs, active, total)
		if got := lipgloss.Width(bar); got != total {
			t.Errorf("active=%d: bar width %d, want %d", active, got, total)
		}
	}
}

func TestStatusBarWithUsage(t *testing.T) {
	usage := CompactBudgetBar("used", 72, 24)
	if got := lipgloss.Width(usage); got != 24 {
		t.Fatalf("usage width = %d, want 24", got)
	}
	out := RenderStatusBar(100, "[q]uit", usage, SyncIndicator{Connected: true})
	if !strings.Contains(out, "72%") || !strings.Contains(out, "synced") {
		t.Fatalf("status bar %q missing usage or sync state", out)
	}
	if got := lipgloss.Width(out); got != 100 {
		t.Fatalf("width = %d, want 100", got)
	}
}

func TestStatusBarStates(t *testing.T) {
	tests := []struct {
		name string
		sync SyncIndicator
		want string
	}{
		{"offline", SyncIndicator{}, "offline"},
		{"pending", SyncIndicator{Connected: true, Pending: true}, "syncing"},
		{"synced", SyncIndicator{Connected: true}, "synced"},
		{"error", SyncIndicator{Connected: true, Message: "Sync failed", Tone: model.ToneDanger}, "Sync failed"},
		{"share", SyncIndicator{Connected: true, ShareCode: "AB12CD"}, "share AB12CD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderStatusBar(80, "[q]uit", "", tt.sync)
			if !strings.Contains(out, tt.want) {
				t.Fatalf("status bar %q missing %q", out, tt.want)
			}
			if got := lipgloss.Width(out); got != 80 {
				t.Fatalf("width = %d, want 80", got)
			}
		})
	}
}
