// Package region implements the Region Classifier (spec.md §4.E): it takes
// attributed lines and groups them into typed content regions the
// formatter's ANSI path renders directly.
package region

import (
	"regexp"
	"strings"

	"cligate/internal/vterm"
)

// Kind is the closed set of region types spec.md §4.E defines.
type Kind int

const (
	KindBlank Kind = iota
	KindSeparator
	KindListItem
	KindCode
	KindHeading
	KindProse
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindSeparator:
		return "separator"
	case KindListItem:
		return "list_item"
	case KindCode:
		return "code"
	case KindHeading:
		return "heading"
	case KindProse:
		return "prose"
	default:
		return "unknown"
	}
}

// ContentRegion is one merged run of same-kind lines.
type ContentRegion struct {
	Kind  Kind
	Lines [][]vterm.CharSpan
}

// codeColors is the fixed syntax-highlight foreground set spec.md §4.E
// names: its presence on any non-whitespace span is ground truth that the
// TUI painted this line as code, beating any text heuristic.
var codeColors = map[string]bool{
	"blue": true, "red": true, "cyan": true, "brown": true, "green": true,
	"lightblue": true, "lightred": true, "lightcyan": true, "lightgreen": true,
}

var (
	reSeparatorText = regexp.MustCompile(`^[─━═╌\s]+$`)
	reListMarker    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s`)
)

// ClassifyLines classifies each attributed line into a Kind (step 1 of the
// region grouping algorithm), without gap-tolerance or merging yet.
func ClassifyLines(lines [][]vterm.CharSpan) []Kind {
	kinds := make([]Kind, len(lines))
	for i, spans := range lines {
		kinds[i] = classifyLine(spans)
	}
	return kinds
}

func classifyLine(spans []vterm.CharSpan) Kind {
	plain := joinText(spans)
	if strings.TrimSpace(plain) == "" {
		return KindBlank
	}
	if reSeparatorText.MatchString(plain) {
		return KindSeparator
	}
	if reListMarker.MatchString(plain) {
		return KindListItem
	}
	if hasCodeColor(spans) {
		return KindCode
	}
	if isHeading(spans) {
		return KindHeading
	}
	return KindProse
}

func hasCodeColor(spans []vterm.CharSpan) bool {
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if codeColors[s.Fg] {
			return true
		}
	}
	return false
}

func isHeading(spans []vterm.CharSpan) bool {
	firstNonBlank := -1
	for i, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if s.Fg != "default" {
			return false
		}
		if firstNonBlank < 0 {
			firstNonBlank = i
		}
	}
	if firstNonBlank < 0 {
		return false
	}
	return spans[firstNonBlank].Bold
}

func joinText(spans []vterm.CharSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// GapTolerance reclassifies a prose/blank line surrounded by code lines as
// code (step 2), so unhighlighted comments stay inside code blocks.
func GapTolerance(kinds []Kind) []Kind {
	out := append([]Kind(nil), kinds...)
	for i := 1; i < len(kinds)-1; i++ {
		if (kinds[i] == KindProse || kinds[i] == KindBlank) && kinds[i-1] == KindCode && kinds[i+1] == KindCode {
			out[i] = KindCode
		}
	}
	return out
}

// BuildRegions runs the full grouping algorithm: classify, gap-tolerance,
// inline-code marker insertion, then merge adjacent same-kind lines (blank
// and separator lines always become their own one-line region).
func BuildRegions(lines [][]vterm.CharSpan) []ContentRegion {
	kinds := GapTolerance(ClassifyLines(lines))

	processed := make([][]vterm.CharSpan, len(lines))
	for i, spans := range lines {
		if kinds[i] == KindProse || kinds[i] == KindListItem {
			processed[i] = insertInlineCodeMarkers(spans)
		} else {
			processed[i] = spans
		}
	}

	var regions []ContentRegion
	for i, k := range kinds {
		if k == KindBlank || k == KindSeparator {
			regions = append(regions, ContentRegion{Kind: k, Lines: [][]vterm.CharSpan{processed[i]}})
			continue
		}
		if n := len(regions); n > 0 && regions[n-1].Kind == k {
			regions[n-1].Lines = append(regions[n-1].Lines, processed[i])
			continue
		}
		regions = append(regions, ContentRegion{Kind: k, Lines: [][]vterm.CharSpan{processed[i]}})
	}
	return regions
}

// insertInlineCodeMarkers wraps any colored, non-whitespace run shorter
// than 60 chars in backticks, preserving surrounding whitespace, for
// prose/list lines (step 4).
func insertInlineCodeMarkers(spans []vterm.CharSpan) []vterm.CharSpan {
	out := make([]vterm.CharSpan, 0, len(spans))
	for _, s := range spans {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed == "" || s.Fg == "default" || len(trimmed) >= 60 {
			out = append(out, s)
			continue
		}
		lead := s.Text[:strings.Index(s.Text, trimmed)]
		trail := s.Text[strings.Index(s.Text, trimmed)+len(trimmed):]
		out = append(out, vterm.CharSpan{Text: lead + "`" + trimmed + "`" + trail, Fg: s.Fg, Bold: s.Bold, Italic: s.Italic})
	}
	return out
}
