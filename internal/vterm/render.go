package vterm

import (
	"strings"

	"github.com/vito/midterm"
)

// plainLines renders up to n rows of vt as right-stripped plain text. This
// mirrors the teacher's RenderLineFrom content walk but collects text
// instead of re-emitting ANSI.
func plainLines(vt *midterm.Terminal, n int) []string {
	if n > len(vt.Content) {
		n = len(vt.Content)
	}
	lines := make([]string, n)
	for row := 0; row < n; row++ {
		lines[row] = strings.TrimRight(string(vt.Content[row]), " \t")
	}
	return lines
}

// attributedLines renders up to n rows of vt into CharSpan runs by walking
// the same per-row Format.Regions the teacher's RenderLineFrom uses to emit
// ANSI, except each region's rendered SGR prefix is parsed into the
// {fg, bold, italic} triple instead of being re-emitted.
func attributedLines(vt *midterm.Terminal, n int) [][]CharSpan {
	if n > len(vt.Content) {
		n = len(vt.Content)
	}
	lines := make([][]CharSpan, n)
	for row := 0; row < n; row++ {
		lines[row] = attributedLine(vt, row)
	}
	return lines
}

func attributedLine(vt *midterm.Terminal, row int) []CharSpan {
	if row >= len(vt.Content) {
		return nil
	}
	line := vt.Content[row]

	var raw []CharSpan
	pos := 0
	for region := range vt.Format.Regions(row) {
		end := pos + region.Size
		var text string
		if pos < len(line) {
			contentEnd := end
			if contentEnd > len(line) {
				contentEnd = len(line)
			}
			text = string(line[pos:contentEnd])
		}
		pos = end
		if text == "" {
			continue
		}
		fg, bold, italic := parseFormat(region.F)
		raw = append(raw, CharSpan{Text: text, Fg: fg, Bold: bold, Italic: italic})
	}
	return coalesceAndTrim(raw)
}

// coalesceAndTrim merges adjacent spans with identical attributes (spans
// produced span-per-region can be attribute-identical across a region
// boundary that only changed unrelated SGR state) and trims a
// whitespace-only trailing span, preserving the invariant that every
// CharSpan has length >= 1 and non-empty text.
func coalesceAndTrim(spans []CharSpan) []CharSpan {
	var merged []CharSpan
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.Fg == s.Fg && last.Bold == s.Bold && last.Italic == s.Italic {
				last.Text += s.Text
				continue
			}
		}
		merged = append(merged, s)
	}
	for len(merged) > 0 {
		last := &merged[len(merged)-1]
		trimmed := strings.TrimRight(last.Text, " \t")
		if trimmed == last.Text {
			break
		}
		if trimmed == "" {
			merged = merged[:len(merged)-1]
			continue
		}
		last.Text = trimmed
		break
	}
	return merged
}
