package vterm

import (
	"strings"
	"testing"
)

func TestFeedNeverFails(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"plain text", []byte("hello world\r\n")},
		{"ansi colors", []byte("\x1b[31mred\x1b[0m\r\n")},
		{"invalid utf8", []byte{0xff, 0xfe, 0x41, 0x42}},
		{"truncated escape", []byte("\x1b[31")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := New(Config{})
			vt.Feed(tt.data) // must not panic
		})
	}
}

func TestGetChangesTwiceReturnsEmpty(t *testing.T) {
	vt := New(Config{Rows: 5, Cols: 20})
	vt.Feed([]byte("hello\r\n"))

	first := vt.GetChanges()
	if len(first) == 0 {
		t.Fatalf("expected at least one changed line after first feed")
	}

	second := vt.GetChanges()
	if len(second) != 0 {
		t.Fatalf("second GetChanges() = %v, want empty", second)
	}
}

func TestGetChangesSkipsBlankLines(t *testing.T) {
	vt := New(Config{Rows: 5, Cols: 20})
	vt.Feed([]byte("line one\r\n\r\nline three\r\n"))
	changes := vt.GetChanges()
	for _, c := range changes {
		if strings.TrimSpace(c) == "" {
			t.Errorf("GetChanges() included a blank line: %q", changes)
		}
	}
}

func TestScrollbackPreservedOnOverflow(t *testing.T) {
	vt := New(Config{Rows: 10, Cols: 40, ScrollbackRows: 100})
	var buf strings.Builder
	for i := 0; i < 30; i++ {
		buf.WriteString("line")
		buf.WriteString(strings.Repeat("x", 0))
		buf.WriteString("\r\n")
	}
	_ = buf
	for i := 0; i < 30; i++ {
		vt.Feed([]byte("row\r\n"))
	}

	full := vt.GetFullDisplay()
	if len(full) < 30 {
		t.Fatalf("GetFullDisplay() returned %d lines, want >= 30 (history preserved)", len(full))
	}

	display := vt.GetDisplay()
	if len(display) != 10 {
		t.Fatalf("GetDisplay() returned %d lines, want 10 (visible rows only)", len(display))
	}
}

func TestResetClearsDisplayAndHistory(t *testing.T) {
	vt := New(Config{Rows: 10, Cols: 40, ScrollbackRows: 100})
	for i := 0; i < 15; i++ {
		vt.Feed([]byte("row\r\n"))
	}
	vt.Reset()

	for _, line := range vt.GetDisplay() {
		if strings.TrimSpace(line) != "" {
			t.Fatalf("GetDisplay() after Reset() not blank: %q", line)
		}
	}
	full := vt.GetFullDisplay()
	for _, line := range full {
		if strings.TrimSpace(line) != "" {
			t.Fatalf("GetFullDisplay() after Reset() not blank: %q", line)
		}
	}
}

func TestClearHistoryKeepsVisibleScreen(t *testing.T) {
	vt := New(Config{Rows: 5, Cols: 40, ScrollbackRows: 100})
	vt.Feed([]byte("visible line\r\n"))
	before := vt.GetDisplay()

	vt.ClearHistory()

	after := vt.GetDisplay()
	if strings.Join(before, "\n") != strings.Join(after, "\n") {
		t.Fatalf("ClearHistory() changed visible display: before=%v after=%v", before, after)
	}
}

func TestAttributedLinesSpansNonEmpty(t *testing.T) {
	vt := New(Config{Rows: 5, Cols: 40})
	vt.Feed([]byte("\x1b[34mdef\x1b[0m foo\r\n"))

	lines := vt.GetAttributedLines()
	if len(lines) == 0 {
		t.Fatal("expected at least one attributed line")
	}
	for _, span := range lines[0] {
		if span.Text == "" {
			t.Error("CharSpan with empty text must not be exported")
		}
	}
}

func TestParseFormatANSIColors(t *testing.T) {
	tests := []struct {
		ansi   string
		wantFg string
		bold   bool
	}{
		{"\x1b[34m", "blue", false},
		{"\x1b[1;31m", "red", true},
		{"\x1b[94m", "lightblue", false},
		{"\x1b[0m", "default", false},
		{"\x1b[39m", "default", false},
	}
	for _, tt := range tests {
		t.Run(tt.ansi, func(t *testing.T) {
			fg, bold := sgrFgBold(tt.ansi)
			if fg != tt.wantFg {
				t.Errorf("fg = %q, want %q", fg, tt.wantFg)
			}
			if bold != tt.bold {
				t.Errorf("bold = %v, want %v", bold, tt.bold)
			}
		})
	}
}

// sgrFgBold is a tiny test helper exercising the same code SGR-parsing path
// parseFormat uses, without requiring a midterm.Format value.
func sgrFgBold(ansi string) (string, bool) {
	fg := "default"
	bold := false
	for _, seq := range splitSGRSequences(ansi) {
		for _, n := range sgrCodes(seq) {
			switch {
			case n == 0:
				fg, bold = "default", false
			case n == 1:
				bold = true
			case n == 39:
				fg = "default"
			case n >= 30 && n <= 37:
				fg = ansiColorName(n-30, false)
			case n >= 90 && n <= 97:
				fg = ansiColorName(n-90, true)
			}
		}
	}
	return fg, bold
}
