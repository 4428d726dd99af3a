package region

import (
	"testing"

	"cligate/internal/vterm"
)

func span(text, fg string, bold bool) []vterm.CharSpan {
	return []vterm.CharSpan{{Text: text, Fg: fg, Bold: bold}}
}

func TestClassifyLines(t *testing.T) {
	tests := []struct {
		name string
		line []vterm.CharSpan
		want Kind
	}{
		{"blank", span("   ", "default", false), KindBlank},
		{"separator", span("────────", "default", false), KindSeparator},
		{"list dash", span("- an item", "default", false), KindListItem},
		{"list numbered", span("1. an item", "default", false), KindListItem},
		{"code by color", span("func main() {}", "blue", false), KindCode},
		{"heading", span("Summary", "default", true), KindHeading},
		{"prose", span("just a regular sentence.", "default", false), KindProse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyLine(tt.line)
			if got != tt.want {
				t.Errorf("classifyLine(%q) = %v, want %v", tt.line[0].Text, got, tt.want)
			}
		})
	}
}

func TestGapToleranceKeepsCommentsInCodeBlock(t *testing.T) {
	kinds := []Kind{KindCode, KindProse, KindCode}
	got := GapTolerance(kinds)
	if got[1] != KindCode {
		t.Errorf("gap-tolerance line = %v, want code", got[1])
	}
}

func TestBuildRegionsMergesAdjacentSameKind(t *testing.T) {
	lines := [][]vterm.CharSpan{
		span("func main() {", "blue", false),
		span("  return", "blue", false),
		span("}", "blue", false),
	}
	regions := BuildRegions(lines)
	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1", len(regions))
	}
	if regions[0].Kind != KindCode {
		t.Errorf("Kind = %v, want code", regions[0].Kind)
	}
	if len(regions[0].Lines) != 3 {
		t.Errorf("len(Lines) = %d, want 3", len(regions[0].Lines))
	}
}

func TestBuildRegionsSeparatorAlwaysOwnRegion(t *testing.T) {
	lines := [][]vterm.CharSpan{
		span("────────", "default", false),
		span("────────", "default", false),
	}
	regions := BuildRegions(lines)
	if len(regions) != 2 {
		t.Fatalf("len(regions) = %d, want 2 (separators never merge)", len(regions))
	}
}

func TestInsertInlineCodeMarkersShortColoredSpan(t *testing.T) {
	lines := [][]vterm.CharSpan{
		{{Text: "call ", Fg: "default"}, {Text: "foo()", Fg: "magenta"}, {Text: " now", Fg: "default"}},
	}
	regions := BuildRegions(lines)
	found := false
	for _, s := range regions[0].Lines[0] {
		if s.Text == "`foo()`" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected inline code marker inserted, got %+v", regions[0].Lines[0])
	}
}
