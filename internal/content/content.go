// Package content implements the Content Extractor (spec.md §4.D): it
// reduces a full or partial screen of classified lines down to the
// user-meaningful text, stripping response/tool-connector markers and the
// user's own wrapped-input echo.
package content

import (
	"strings"
	"unicode/utf8"

	"cligate/internal/classify"
	"cligate/internal/vterm"
)

// ExtractContent is extract_content from spec.md §4.D.
func ExtractContent(lines []string) string {
	var kept []string
	skipEcho := false

	for _, raw := range lines {
		stripped := strings.TrimRight(raw, " \t")
		cat := classify.ClassifyTextLine(stripped)

		switch cat {
		case classify.CategoryPrompt:
			skipEcho = true
			continue
		case classify.CategoryResponse, classify.CategoryToolConnector, classify.CategoryToolHeader,
			classify.CategoryThinking, classify.CategorySeparator:
			skipEcho = false
		}

		switch cat {
		case classify.CategoryContent:
			if skipEcho {
				continue
			}
			kept = append(kept, stripped)
		case classify.CategoryResponse:
			kept = append(kept, replaceMarker(stripped, "⏺"))
		case classify.CategoryToolConnector:
			kept = append(kept, replaceMarker(stripped, "⎿"))
		}
	}

	return dedent(kept)
}

// replaceMarker swaps the leading marker rune plus its following whitespace
// for an equal number of spaces, preserving column alignment so dedent
// keeps code indentation intact.
func replaceMarker(line, marker string) string {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return line
	}
	end := idx + len(marker)
	for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
		end++
	}
	return strings.Repeat(" ", utf8.RuneCountInString(line[:end])) + line[end:]
}

func dedent(lines []string) string {
	prefix := commonLeadingWhitespace(lines)
	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			out[i] = ""
			continue
		}
		out[i] = strings.TrimPrefix(l, prefix)
	}
	return strings.Join(out, "\n")
}

func commonLeadingWhitespace(lines []string) string {
	var prefix string
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lead := leadingWhitespace(l)
		if first {
			prefix = lead
			first = false
			continue
		}
		prefix = commonPrefix(prefix, lead)
	}
	return prefix
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// FilterResponseAttr is the attributed analogue filter_response_attr from
// spec.md §4.D: identical selection/marker-stripping logic as
// ExtractContent, but producing attributed spans and dedent-stripping a
// configurable number of leading characters across spans rather than
// operating on plain strings.
func FilterResponseAttr(sourceLines []string, attrLines [][]vterm.CharSpan) [][]vterm.CharSpan {
	var kept [][]vterm.CharSpan
	var keptPlain []string
	skipEcho := false

	n := len(sourceLines)
	if len(attrLines) < n {
		n = len(attrLines)
	}

	for i := 0; i < n; i++ {
		stripped := strings.TrimRight(sourceLines[i], " \t")
		cat := classify.ClassifyTextLine(stripped)

		switch cat {
		case classify.CategoryPrompt:
			skipEcho = true
			continue
		case classify.CategoryResponse, classify.CategoryToolConnector, classify.CategoryToolHeader,
			classify.CategoryThinking, classify.CategorySeparator:
			skipEcho = false
		}

		switch cat {
		case classify.CategoryContent:
			if skipEcho {
				continue
			}
			kept = append(kept, attrLines[i])
			keptPlain = append(keptPlain, stripped)
		case classify.CategoryResponse:
			spans, plain := stripMarkerSpans(attrLines[i], "⏺")
			kept = append(kept, spans)
			keptPlain = append(keptPlain, plain)
		case classify.CategoryToolConnector:
			spans, plain := stripMarkerSpans(attrLines[i], "⎿")
			kept = append(kept, spans)
			keptPlain = append(keptPlain, plain)
		}
	}

	indent := len(commonLeadingWhitespace(nonMarkerLines(keptPlain)))
	return dedentSpans(kept, indent)
}

// nonMarkerLines excludes every line that starts with a space (all
// marker-stripped lines do, and so do indented content lines) from the
// common-indent computation so a short "⏺ " line doesn't wrongly zero the
// margin. If no line is left, all lines are used.
func nonMarkerLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, " ") || l == "" {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return lines
	}
	return out
}

func stripMarkerSpans(spans []vterm.CharSpan, marker string) ([]vterm.CharSpan, string) {
	var plain strings.Builder
	for _, s := range spans {
		plain.WriteString(s.Text)
	}
	full := plain.String()
	idx := strings.Index(full, marker)
	if idx < 0 {
		return spans, full
	}
	end := idx + len(marker)
	for end < len(full) && full[end] == ' ' {
		end++
	}
	width := utf8.RuneCountInString(full[:end])
	replaced := strings.Repeat(" ", width) + full[end:]

	out := replaceSpanPrefix(spans, width, ' ')
	return out, replaced
}

// replaceSpanPrefix rewrites the first n runes of the concatenated span
// text to the given fill byte, splitting spans at the boundary.
func replaceSpanPrefix(spans []vterm.CharSpan, n int, fill byte) []vterm.CharSpan {
	var out []vterm.CharSpan
	remaining := n
	for _, s := range spans {
		if remaining <= 0 {
			out = append(out, s)
			continue
		}
		runes := []rune(s.Text)
		if len(runes) <= remaining {
			remaining -= len(runes)
			out = append(out, vterm.CharSpan{Text: strings.Repeat(string(fill), len(runes)), Fg: s.Fg, Bold: s.Bold, Italic: s.Italic})
			continue
		}
		head := strings.Repeat(string(fill), remaining)
		tail := string(runes[remaining:])
		out = append(out, vterm.CharSpan{Text: head, Fg: s.Fg, Bold: s.Bold, Italic: s.Italic})
		out = append(out, vterm.CharSpan{Text: tail, Fg: s.Fg, Bold: s.Bold, Italic: s.Italic})
		remaining = 0
	}
	return out
}

func dedentSpans(lines [][]vterm.CharSpan, n int) [][]vterm.CharSpan {
	if n <= 0 {
		return lines
	}
	out := make([][]vterm.CharSpan, len(lines))
	for i, spans := range lines {
		out[i] = trimLeadingRunes(spans, n)
	}
	return out
}

func trimLeadingRunes(spans []vterm.CharSpan, n int) []vterm.CharSpan {
	var out []vterm.CharSpan
	remaining := n
	for _, s := range spans {
		if remaining <= 0 {
			out = append(out, s)
			continue
		}
		if len(s.Text) <= remaining {
			remaining -= len(s.Text)
			continue
		}
		out = append(out, vterm.CharSpan{Text: s.Text[remaining:], Fg: s.Fg, Bold: s.Bold, Italic: s.Italic})
		remaining = 0
	}
	return out
}
