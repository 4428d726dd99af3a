package chathtml

import (
	"html"
	"regexp"
	"strings"
)

// codeSignature patterns spec.md §4.F names as "obvious code block at line
// starts" detectors.
var codeSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^def `),
	regexp.MustCompile(`(?m)^async def `),
	regexp.MustCompile(`(?m)^class `),
	regexp.MustCompile(`(?m)^import `),
	regexp.MustCompile(`(?m)^from .+ import`),
	regexp.MustCompile(`(?m)^function `),
	regexp.MustCompile(`(?m)^const `),
	regexp.MustCompile(`(?m)^@\w+`),
	regexp.MustCompile(`(?m)^#!/`),
}

var (
	reBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reFencedCode = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	reListLabel  = regexp.MustCompile(`^-\s+(.+?)\s+—\s+(.+)$`)
	reListPlain  = regexp.MustCompile(`^-\s+(.+)$`)
	reSectionHdr = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 '/()]+:$`)
	reURL        = regexp.MustCompile(`^\w+://`)
)

// RenderHeuristic is render_heuristic from spec.md §4.F: detects obvious
// code blocks in plain text, wraps them in fences, then applies
// text-level markdown-ish transforms into the safe chat HTML tag subset.
func RenderHeuristic(plainText string) string {
	text := plainText
	if looksLikeCode(text) && !strings.Contains(text, "```") {
		text = "```\n" + text + "\n```"
	}

	var out strings.Builder
	remaining := text
	for {
		loc := reFencedCode.FindStringSubmatchIndex(remaining)
		if loc == nil {
			out.WriteString(renderInline(remaining))
			break
		}
		out.WriteString(renderInline(remaining[:loc[0]]))
		lang := remaining[loc[2]:loc[3]]
		body := remaining[loc[4]:loc[5]]
		out.WriteString(renderFence(lang, body))
		remaining = remaining[loc[1]:]
	}
	return out.String()
}

func looksLikeCode(text string) bool {
	for _, re := range codeSignatures {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func renderFence(lang, body string) string {
	class := ""
	if lang != "" {
		class = ` class="language-` + html.EscapeString(lang) + `"`
	}
	return `<pre><code` + class + `>` + html.EscapeString(strings.Trim(body, "\n")) + `</code></pre>`
}

func renderInline(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, renderLine(line))
	}
	return strings.Join(lines, "\n")
}

func renderLine(line string) string {
	if m := reListLabel.FindStringSubmatch(line); m != nil {
		return "• <b>" + escapeKeepTags(m[1]) + "</b> — " + escapeKeepTags(m[2])
	}
	if m := reListPlain.FindStringSubmatch(line); m != nil {
		return "• " + escapeKeepTags(m[1])
	}
	if reSectionHdr.MatchString(line) && !reURL.MatchString(line) {
		return "<b>" + escapeKeepTags(strings.TrimSuffix(line, ":")) + "</b>:"
	}
	return escapeKeepTags(line)
}

// escapeKeepTags escapes HTML special characters then re-applies the safe
// inline transforms (bold/italic/inline-code), so escaping never happens
// inside an already-emitted tag.
func escapeKeepTags(s string) string {
	escaped := html.EscapeString(s)
	escaped = reInlineCode.ReplaceAllString(escaped, "<code>$1</code>")
	escaped = reBold.ReplaceAllString(escaped, "<b>$1</b>")
	escaped = reItalic.ReplaceAllStringFunc(escaped, func(m string) string {
		sub := reItalic.FindStringSubmatch(m)
		if strings.Contains(sub[1], "<b>") || strings.Contains(sub[1], "</b>") {
			return m
		}
		return "<i>" + sub[1] + "</i>"
	})
	return escaped
}
