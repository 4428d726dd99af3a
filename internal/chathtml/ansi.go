package chathtml

import (
	"html"
	"regexp"
	"strings"

	"cligate/internal/region"
	"cligate/internal/vterm"
)

// RenderANSI is render_ansi from spec.md §4.F: takes attributed lines
// already filtered to response spans (content.FilterResponseAttr), runs
// the region classifier, and emits HTML per region.
func RenderANSI(attrLines [][]vterm.CharSpan) string {
	regions := region.BuildRegions(attrLines)

	var blocks []string
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, reflow(paragraph))
		paragraph = nil
	}

	for _, r := range regions {
		switch r.Kind {
		case region.KindCode:
			flush()
			blocks = append(blocks, renderCodeRegion(r))
		case region.KindHeading:
			flush()
			blocks = append(blocks, renderHeadingRegion(r))
		case region.KindListItem:
			flush()
			blocks = append(blocks, renderListRegion(r))
		case region.KindSeparator:
			flush()
			blocks = append(blocks, "")
		case region.KindBlank:
			flush()
		case region.KindProse:
			for _, line := range r.Lines {
				paragraph = append(paragraph, spansToEscapedText(line))
			}
		}
	}
	flush()

	return strings.Join(blocks, "\n\n")
}

func renderCodeRegion(r region.ContentRegion) string {
	var lines []string
	for _, l := range r.Lines {
		lines = append(lines, spansToPlainText(l))
	}
	return "<pre><code>" + html.EscapeString(strings.Join(lines, "\n")) + "</code></pre>"
}

func renderHeadingRegion(r region.ContentRegion) string {
	var lines []string
	for _, l := range r.Lines {
		lines = append(lines, "<b>"+spansToEscapedText(l)+"</b>")
	}
	return strings.Join(lines, "\n")
}

func renderListRegion(r region.ContentRegion) string {
	var lines []string
	for _, l := range r.Lines {
		lines = append(lines, "• "+strings.TrimSpace(spansToEscapedText(l)))
	}
	return strings.Join(lines, "\n")
}

func spansToPlainText(spans []vterm.CharSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// spansToEscapedText HTML-escapes a span run's text but preserves
// already-inserted inline-code backtick markers as <code> tags.
func spansToEscapedText(spans []vterm.CharSpan) string {
	plain := spansToPlainText(spans)
	escaped := html.EscapeString(plain)
	return reInlineCode.ReplaceAllString(escaped, "<code>$1</code>")
}

var reSentenceEnd = regexp.MustCompile(`[.!?:;]["')\]]?$`)
var reHardBreak = regexp.MustCompile(`^(•|<pre>|<b>)`)

// reflow joins consecutive hard-wrapped terminal lines within a paragraph
// with single spaces, unless the previous line ended with sentence-final
// punctuation or the next line is a hard break token (spec.md §4.F).
func reflow(lines []string) string {
	var out strings.Builder
	for i, line := range lines {
		if i == 0 {
			out.WriteString(line)
			continue
		}
		prev := lines[i-1]
		if reSentenceEnd.MatchString(strings.TrimSpace(prev)) || reHardBreak.MatchString(strings.TrimSpace(line)) || strings.TrimSpace(prev) == "" {
			out.WriteString("\n")
		} else {
			out.WriteString(" ")
		}
		out.WriteString(strings.TrimLeft(line, " "))
	}
	return out.String()
}
