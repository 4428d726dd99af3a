// Package classify turns plain terminal lines into the closed-set
// categories the rest of the pipeline reasons about: a per-line
// LineCategory (used for dedup and content extraction) and a per-screen
// ScreenEvent (used to drive the pipeline's transition table).
package classify

import "regexp"

// LineCategory is the closed set of line categories spec.md §4.B defines.
type LineCategory int

const (
	CategoryEmpty LineCategory = iota
	CategorySeparator
	CategoryDiffDelimiter
	CategoryStatusBar
	CategoryStartup
	CategoryThinking
	CategoryToolHeader
	CategoryResponse
	CategoryToolConnector
	CategoryTodoItem
	CategoryAgentTree
	CategoryPrompt
	CategoryBox
	CategoryLogo
	CategoryContent
)

func (c LineCategory) String() string {
	switch c {
	case CategoryEmpty:
		return "empty"
	case CategorySeparator:
		return "separator"
	case CategoryDiffDelimiter:
		return "diff_delimiter"
	case CategoryStatusBar:
		return "status_bar"
	case CategoryStartup:
		return "startup"
	case CategoryThinking:
		return "thinking"
	case CategoryToolHeader:
		return "tool_header"
	case CategoryResponse:
		return "response"
	case CategoryToolConnector:
		return "tool_connector"
	case CategoryTodoItem:
		return "todo_item"
	case CategoryAgentTree:
		return "agent_tree"
	case CategoryPrompt:
		return "prompt"
	case CategoryBox:
		return "box"
	case CategoryLogo:
		return "logo"
	case CategoryContent:
		return "content"
	default:
		return "unknown"
	}
}

// ChromeCategories is the set consulted by dedup snapshotting (spec.md
// §4.B): lines in this set are UI furniture, never user-meaningful content.
var ChromeCategories = map[LineCategory]bool{
	CategorySeparator:     true,
	CategoryDiffDelimiter: true,
	CategoryStatusBar:     true,
	CategoryPrompt:        true,
	CategoryThinking:      true,
	CategoryStartup:       true,
	CategoryLogo:          true,
	CategoryBox:           true,
	CategoryEmpty:         true,
}

var (
	reSeparatorStrict = regexp.MustCompile(`^[─━═]{4,}\x{FFFD}*$`)
	reSeparatorBleed  = regexp.MustCompile(`^[─━═]{20,}.+$`)
	reDiffDelimiter   = regexp.MustCompile(`^[╌]{4,}`)
	reStartup         = regexp.MustCompile(`Claude Code v\d+\.\d+\.\d+`)

	reStatusBranch   = regexp.MustCompile(`⎇`)
	reStatusUsage    = regexp.MustCompile(`Usage:`)
	reStatusBarFull  = regexp.MustCompile(`[\w-]+\s*│\s*(?:⎇\s*[\w\-/]+\*?)?\s*(?:⇡\d+\s*)?│?\s*(?:Usage:\s*\d+%)?`)
	reStatusTip      = regexp.MustCompile(`^(\w+ )?[Tt]ip: `)
	reStatusTime     = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	reStatusPR       = regexp.MustCompile(`^PR\s*#\d+$`)
	reStatusBlockBar = regexp.MustCompile(`^[\x{2580}-\x{259F}\s]+$`)
	reStatusTimer    = regexp.MustCompile(`↻ \d+:\d+`)
	reStatusFiles    = regexp.MustCompile(`\d+ files? \+\d+ -\d+`)
	reStatusExtra    = regexp.MustCompile(`·.*(\d+ bash|\d+ local agents?)`)

	reThinking = regexp.MustCompile(`^[✶✳✻✽✢·]\s+.+…(\s*\(.+\))?$`)

	reToolHeader = regexp.MustCompile(`^(⏺ )?(Bash|Write|Update|Read)\(.*|^(⏺ )?Read \d+ files? \(ctrl\+o|^(⏺ )?Searched for .*\(ctrl\+o`)

	reResponse      = regexp.MustCompile(`^⏺`)
	reToolConnector = regexp.MustCompile(`^\s*⎿`)
	reTodoItem      = regexp.MustCompile(`^[◻◼✔] `)
	reAgentTree     = regexp.MustCompile(`^[├└]\s*─+\s+\w`)
	rePrompt        = regexp.MustCompile(`^❯(\s|$)`)

	reBoxGlyph   = regexp.MustCompile(`[─━═│┃┆┇┊┋┌┍┎┏┐┑┒┓└┕┖┗┘┙┚┛├┝┞┟┠┡┢┣┤┥┦┧┨┩┪┫┬┭┮┯┰┱┲┳┴┵┶┷┸┹┺┻┼┽┾┿╀╁╂╃╄╅╆╇╈╉╊╋]`)
	reAlpha      = regexp.MustCompile(`[A-Za-z]`)
	reLogoGlyph  = regexp.MustCompile(`[▐▛▜▌▝▘█▞▚]`)
)

func countMatches(re *regexp.Regexp, s string) int {
	return len(re.FindAllString(s, -1))
}

// ClassifyTextLine is the pure function spec.md §4.B calls
// classify_text_line. line must already be right-stripped (callers get
// that from vterm.GetDisplay/GetFullDisplay).
func ClassifyTextLine(line string) LineCategory {
	if line == "" {
		return CategoryEmpty
	}
	if reSeparatorStrict.MatchString(line) || reSeparatorBleed.MatchString(line) {
		return CategorySeparator
	}
	if reDiffDelimiter.MatchString(line) {
		return CategoryDiffDelimiter
	}
	if reStartup.MatchString(line) {
		return CategoryStartup
	}
	if isStatusBar(line) {
		return CategoryStatusBar
	}
	if reThinking.MatchString(line) {
		return CategoryThinking
	}
	if reToolHeader.MatchString(line) {
		return CategoryToolHeader
	}
	if reResponse.MatchString(line) {
		return CategoryResponse
	}
	if reToolConnector.MatchString(line) {
		return CategoryToolConnector
	}
	if reTodoItem.MatchString(line) {
		return CategoryTodoItem
	}
	if reAgentTree.MatchString(line) {
		return CategoryAgentTree
	}
	if rePrompt.MatchString(line) {
		return CategoryPrompt
	}
	if countMatches(reBoxGlyph, line) >= 2 && len(line) > 10 && countMatches(reAlpha, line) <= 3 {
		return CategoryBox
	}
	if countMatches(reLogoGlyph, line) >= 3 {
		return CategoryLogo
	}
	return CategoryContent
}

func isStatusBar(line string) bool {
	if reStatusTip.MatchString(line) || reStatusTime.MatchString(line) || reStatusPR.MatchString(line) {
		return true
	}
	if reStatusBlockBar.MatchString(line) && reLogoGlyph.MatchString(line) == false && countMatches(reBoxGlyph, line) == 0 {
		if len(line) > 0 {
			return true
		}
	}
	if reStatusTimer.MatchString(line) || reStatusFiles.MatchString(line) || reStatusExtra.MatchString(line) {
		return true
	}
	// Require a distinctive marker (branch glyph or "Usage:") before trying
	// the composite regex, to avoid false positives on table rows that
	// merely contain "│" — and require the composite match too, so a
	// prose line that happens to mention "Usage:" without the project│branch
	// shape doesn't get misclassified as chrome.
	if (reStatusBranch.MatchString(line) || reStatusUsage.MatchString(line)) && reStatusBarFull.MatchString(line) {
		return true
	}
	return false
}
