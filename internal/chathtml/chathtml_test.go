package chathtml

import (
	"strings"
	"testing"

	"cligate/internal/vterm"
)

func TestSplitMessageShortReturnsSingleChunk(t *testing.T) {
	got := SplitMessage("hello", 4096)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestSplitMessagePrefersDoubleNewline(t *testing.T) {
	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 50)
	chunks := SplitMessage(text, 60)
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %v", chunks)
	}
	if strings.Contains(chunks[0], "\n") {
		t.Errorf("first chunk should not retain trailing newline: %q", chunks[0])
	}
}

func TestSplitMessageHardCutFallback(t *testing.T) {
	text := strings.Repeat("x", 100)
	chunks := SplitMessage(text, 40)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 40 {
			t.Errorf("chunk exceeds max: %d", len(c))
		}
	}
}

func TestRenderHeuristicBoldItalicCode(t *testing.T) {
	got := RenderHeuristic("this is **bold** and *italic* and `code`")
	if !strings.Contains(got, "<b>bold</b>") {
		t.Errorf("missing bold: %s", got)
	}
	if !strings.Contains(got, "<i>italic</i>") {
		t.Errorf("missing italic: %s", got)
	}
	if !strings.Contains(got, "<code>code</code>") {
		t.Errorf("missing code: %s", got)
	}
}

func TestRenderHeuristicListLine(t *testing.T) {
	got := RenderHeuristic("- label — description")
	if !strings.Contains(got, "• <b>label</b> — description") {
		t.Errorf("got %q", got)
	}
}

func TestRenderHeuristicDetectsCodeSignature(t *testing.T) {
	got := RenderHeuristic("def main():\n    pass")
	if !strings.Contains(got, "<pre><code>") {
		t.Errorf("expected fenced code wrapping, got %q", got)
	}
}

func TestRenderHeuristicEscapesHTML(t *testing.T) {
	got := RenderHeuristic("a <script> tag")
	if strings.Contains(got, "<script>") {
		t.Errorf("expected escaping, got %q", got)
	}
}

func TestRenderANSICodeRegion(t *testing.T) {
	lines := [][]vterm.CharSpan{
		{{Text: "func main() {", Fg: "blue"}},
		{{Text: "}", Fg: "blue"}},
	}
	got := RenderANSI(lines)
	if !strings.HasPrefix(got, "<pre><code>") {
		t.Errorf("expected code block, got %q", got)
	}
}

func TestRenderANSIHeadingRegion(t *testing.T) {
	lines := [][]vterm.CharSpan{
		{{Text: "Summary", Fg: "default", Bold: true}},
	}
	got := RenderANSI(lines)
	if got != "<b>Summary</b>" {
		t.Errorf("got %q", got)
	}
}

func TestRenderANSIProseReflow(t *testing.T) {
	lines := [][]vterm.CharSpan{
		{{Text: "This is a sentence", Fg: "default"}},
		{{Text: "that continues.", Fg: "default"}},
	}
	got := RenderANSI(lines)
	if got != "This is a sentence that continues." {
		t.Errorf("got %q", got)
	}
}
