package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// ScreenEventKind is the closed set of screen-level events spec.md §4.C
// (and the GLOSSARY's TerminalView) defines.
type ScreenEventKind int

const (
	EventIdle ScreenEventKind = iota
	EventThinking
	EventStreaming
	EventUserMessage
	EventToolRequest
	EventToolRunning
	EventToolResult
	EventBackgroundTask
	EventParallelAgents
	EventTodoList
	EventAuthRequired
	EventStartup
	EventError
	EventUnknown
)

func (k ScreenEventKind) String() string {
	switch k {
	case EventIdle:
		return "IDLE"
	case EventThinking:
		return "THINKING"
	case EventStreaming:
		return "STREAMING"
	case EventUserMessage:
		return "USER_MESSAGE"
	case EventToolRequest:
		return "TOOL_REQUEST"
	case EventToolRunning:
		return "TOOL_RUNNING"
	case EventToolResult:
		return "TOOL_RESULT"
	case EventBackgroundTask:
		return "BACKGROUND_TASK"
	case EventParallelAgents:
		return "PARALLEL_AGENTS"
	case EventTodoList:
		return "TODO_LIST"
	case EventAuthRequired:
		return "AUTH_REQUIRED"
	case EventStartup:
		return "STARTUP"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ToolRequestOption is one numbered choice in a tool-approval menu.
type ToolRequestOption struct {
	Number int
	Label  string
}

// TodoItem is one line of a TODO list screen.
type TodoItem struct {
	Text   string
	Status string // pending, in_progress, completed
}

// ScreenEvent is the classifier's output: a Kind plus whichever payload
// fields that kind populates. Unused fields stay zero.
type ScreenEvent struct {
	Kind ScreenEventKind

	// TOOL_REQUEST
	Question       string
	Options        []ToolRequestOption
	SelectedIndex  int
	HasCancelHint  bool

	// TODO_LIST
	TodoDone       int
	TodoInProgress int
	TodoOpen       int
	Todos          []TodoItem

	// PARALLEL_AGENTS
	AgentCount     int
	Agents         []string
	CompletedAgent string

	// THINKING
	ElapsedSeconds int

	// TOOL_RUNNING / TOOL_RESULT
	Tool    string
	Target  string
	Added   int
	Removed int

	// STREAMING / USER_MESSAGE / ERROR
	Text string

	// IDLE
	Placeholder string
}

var (
	reQuestionLine   = regexp.MustCompile(`\?\s*$`)
	reSelectedOption = regexp.MustCompile(`^❯\s*(\d+)\.\s*(.+)$`)
	rePlainOption    = regexp.MustCompile(`^\s{3}(\d+)\.\s*(.+)$`)
	reEscHint        = regexp.MustCompile(`Esc to cancel`)

	reTodoHeader = regexp.MustCompile(`^(\d+) tasks? \((\d+) done(?:,\s*(\d+) in progress)?,\s*(\d+) open\)`)
	reTodoStatus = regexp.MustCompile(`^([◻◼✔])\s+(.*)$`)

	reAgentsLaunched = regexp.MustCompile(`(\d+) agents? launched`)
	reAgentTreeItem  = regexp.MustCompile(`^├─\s+(.+?)\s+\((.+)\)$`)
	reAgentCompleted = regexp.MustCompile(`Agent "(.+?)" completed`)

	reThinkingElapsed = regexp.MustCompile(`\(thought for (\d+)s\)`)

	reToolRunning = regexp.MustCompile(`⎿\s*(Running|Waiting)…`)
	reToolResult  = regexp.MustCompile(`⎿\s*Added (\d+) lines?, removed (\d+) lines?`)
	reBackground  = regexp.MustCompile(`in the background`)

	reAuthSignIn = regexp.MustCompile(`(?i)sign in|log in`)
	reAuthPaste  = regexp.MustCompile(`Paste code here`)
	reAuthURL    = regexp.MustCompile(`claude\.ai/oauth/authorize`)

	reErrorMCP   = regexp.MustCompile(`MCP server failed`)
	reErrorLoose = regexp.MustCompile(`Error:|ENOENT|EPERM`)

	reToolHeaderTarget = regexp.MustCompile(`^(?:⏺ )?(Bash|Write|Update|Read)\((.*?)\)`)
)

// ClassifyScreenState is classify_screen_state from spec.md §4.C. lines is
// the full display (scrollback + visible), oldest first, as vterm would
// return from GetFullDisplay; callers that only have the visible screen
// may pass GetDisplay's output instead — passes operate purely on slices
// of the given lines.
func ClassifyScreenState(lines []string) ScreenEvent {
	if ev, ok := screenWide(lines); ok {
		return withAuthOverride(lines, ev)
	}
	if ev, ok := bottomUp(lines); ok {
		return withAuthOverride(lines, ev)
	}
	return withAuthOverride(lines, lastLine(lines))
}

func withAuthOverride(lines []string, ev ScreenEvent) ScreenEvent {
	if isAuthRequired(lines) && ev.Kind != EventToolRequest {
		return ScreenEvent{Kind: EventAuthRequired}
	}
	return ev
}

func isAuthRequired(lines []string) bool {
	for _, l := range lines {
		if reAuthSignIn.MatchString(l) || reAuthPaste.MatchString(l) || reAuthURL.MatchString(l) {
			return true
		}
	}
	return false
}

// screenWide implements Pass 1: tool approval menu, TODO list, parallel agents.
func screenWide(lines []string) (ScreenEvent, bool) {
	if ev, ok := toolApprovalMenu(lines); ok {
		return ev, true
	}
	if ev, ok := todoList(lines); ok {
		return ev, true
	}
	if ev, ok := parallelAgents(lines); ok {
		return ev, true
	}
	return ScreenEvent{}, false
}

func toolApprovalMenu(lines []string) (ScreenEvent, bool) {
	questionIdx := -1
	for i, l := range lines {
		if reQuestionLine.MatchString(strings.TrimSpace(l)) {
			questionIdx = i
		}
	}
	if questionIdx < 0 {
		return ScreenEvent{}, false
	}

	seen := map[int]bool{}
	var options []ToolRequestOption
	selected := -1
	hasHint := false

	for i := questionIdx + 1; i < len(lines); i++ {
		l := lines[i]
		if reEscHint.MatchString(l) {
			hasHint = true
		}
		if m := reSelectedOption.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			if !seen[n] {
				seen[n] = true
				options = append(options, ToolRequestOption{Number: n, Label: strings.TrimSpace(m[2])})
			}
			selected = n
			continue
		}
		if m := rePlainOption.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			if !seen[n] {
				seen[n] = true
				options = append(options, ToolRequestOption{Number: n, Label: strings.TrimSpace(m[2])})
			}
		}
	}

	if selected < 0 || len(options) < 2 || !hasHint {
		return ScreenEvent{}, false
	}

	return ScreenEvent{
		Kind:          EventToolRequest,
		Question:      strings.TrimSpace(lines[questionIdx]),
		Options:       options,
		SelectedIndex: selected,
		HasCancelHint: hasHint,
	}, true
}

func todoList(lines []string) (ScreenEvent, bool) {
	headerIdx := -1
	var m []string
	for i, l := range lines {
		if mm := reTodoHeader.FindStringSubmatch(l); mm != nil {
			headerIdx, m = i, mm
		}
	}
	if headerIdx < 0 {
		return ScreenEvent{}, false
	}

	done, _ := strconv.Atoi(m[2])
	inProgress := 0
	if m[3] != "" {
		inProgress, _ = strconv.Atoi(m[3])
	}
	open, _ := strconv.Atoi(m[4])

	var items []TodoItem
	for _, l := range lines[headerIdx+1:] {
		mm := reTodoStatus.FindStringSubmatch(l)
		if mm == nil {
			continue
		}
		status := "pending"
		switch mm[1] {
		case "◼":
			status = "in_progress"
		case "✔":
			status = "completed"
		}
		items = append(items, TodoItem{Text: strings.TrimSpace(mm[2]), Status: status})
	}
	if len(items) == 0 {
		return ScreenEvent{}, false
	}

	return ScreenEvent{
		Kind:           EventTodoList,
		TodoDone:       done,
		TodoInProgress: inProgress,
		TodoOpen:       open,
		Todos:          items,
	}, true
}

func parallelAgents(lines []string) (ScreenEvent, bool) {
	count := -1
	var agents []string
	completed := ""
	found := false

	for _, l := range lines {
		if m := reAgentsLaunched.FindStringSubmatch(l); m != nil {
			count, _ = strconv.Atoi(m[1])
			found = true
		}
		if m := reAgentTreeItem.FindStringSubmatch(l); m != nil {
			agents = append(agents, strings.TrimSpace(m[1])+" ("+strings.TrimSpace(m[2])+")")
			found = true
		}
		if m := reAgentCompleted.FindStringSubmatch(l); m != nil {
			completed = m[1]
			found = true
		}
	}
	if !found {
		return ScreenEvent{}, false
	}
	return ScreenEvent{Kind: EventParallelAgents, AgentCount: count, Agents: agents, CompletedAgent: completed}, true
}

// bottomUp implements Pass 2: scan upward past chrome/transient lines,
// take the last ~8 meaningful lines as the bottom region.
func bottomUp(lines []string) (ScreenEvent, bool) {
	region := bottomRegion(lines, 8)
	if len(region) == 0 {
		return ScreenEvent{}, false
	}

	for i := len(region) - 1; i >= 0; i-- {
		l := region[i]
		if reThinking.MatchString(l) {
			elapsed := 0
			if m := reThinkingElapsed.FindStringSubmatch(l); m != nil {
				elapsed, _ = strconv.Atoi(m[1])
			}
			return ScreenEvent{Kind: EventThinking, ElapsedSeconds: elapsed}, true
		}
	}

	for i := len(region) - 1; i >= 0; i-- {
		l := region[i]
		if reToolRunning.MatchString(l) {
			tool, target := nearestToolHeader(lines, region, i)
			return ScreenEvent{Kind: EventToolRunning, Tool: tool, Target: target}, true
		}
	}

	for i := len(region) - 1; i >= 0; i-- {
		l := region[i]
		if m := reToolResult.FindStringSubmatch(l); m != nil {
			added, _ := strconv.Atoi(m[1])
			removed, _ := strconv.Atoi(m[2])
			return ScreenEvent{Kind: EventToolResult, Added: added, Removed: removed}, true
		}
	}

	for i := len(region) - 1; i >= 0; i-- {
		if reBackground.MatchString(region[i]) {
			return ScreenEvent{Kind: EventBackgroundTask}, true
		}
	}

	return ScreenEvent{}, false
}

// bottomRegion scans upward past chrome-or-transient categories to find the
// last meaningful line, then returns up to n lines ending there.
func bottomRegion(lines []string, n int) []string {
	end := len(lines)
	for end > 0 {
		cat := ClassifyTextLine(strings.TrimRight(lines[end-1], " "))
		if isTransientChrome(cat, lines[end-1]) {
			end--
			continue
		}
		break
	}
	if end == 0 {
		return nil
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}

func isTransientChrome(cat LineCategory, raw string) bool {
	switch cat {
	case CategoryStatusBar, CategorySeparator, CategoryDiffDelimiter, CategoryEmpty:
		return true
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return true
	}
	return false
}

func nearestToolHeader(full []string, region []string, regionIdx int) (tool, target string) {
	// Search backward through the full display from the matched region
	// line for the nearest tool_header, since the header may be outside
	// the 8-line bottom region on a long-running tool.
	start := len(full) - len(region) + regionIdx
	for i := start; i >= 0; i-- {
		if m := reToolHeaderTarget.FindStringSubmatch(full[i]); m != nil {
			return m[1], m[2]
		}
	}
	return "", ""
}

// lastLine implements Pass 3. It reuses bottomRegion's trailing-chrome
// skip (activeIndex) rather than the literal last line, so a prompt
// followed by a separator and a status bar — the screen still counts as
// idle even though the status bar, not the prompt, occupies lines[n-1].
func lastLine(lines []string) ScreenEvent {
	trimmed := rstripEmpty(lines)
	n := len(trimmed)
	if n == 0 {
		return ScreenEvent{Kind: EventUnknown}
	}

	activeIdx := activeIndex(trimmed)
	if activeIdx < 0 {
		return ScreenEvent{Kind: EventUnknown}
	}
	active := trimmed[activeIdx]

	if rePrompt.MatchString(active) {
		above := withinSeparator(trimmed, activeIdx, -3)
		below := withinSeparator(trimmed, activeIdx, 3)
		if above && below {
			placeholder := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(active), "❯"))
			return ScreenEvent{Kind: EventIdle, Placeholder: placeholder}
		}
	}

	if idx := lastPromptIndex(trimmed); idx >= 0 {
		for i := idx + 1; i < n; i++ {
			if reResponse.MatchString(trimmed[i]) {
				text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed[i]), "⏺"))
				return ScreenEvent{Kind: EventStreaming, Text: text}
			}
		}
	}

	// User message: ❯ followed by text, not bracketed by separators (the
	// IDLE check above already claimed the bracketed case).
	if rePrompt.MatchString(active) {
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(active), "❯"))
		if text != "" {
			return ScreenEvent{Kind: EventUserMessage, Text: text}
		}
	}

	if !hasResponseMarker(trimmed) && (reStartup.MatchString(strings.Join(trimmed, "\n")) || countMatches(reLogoGlyph, strings.Join(trimmed, "\n")) >= 3) {
		return ScreenEvent{Kind: EventStartup}
	}

	for _, l := range trimmed {
		if reErrorMCP.MatchString(l) || reErrorLoose.MatchString(l) {
			return ScreenEvent{Kind: EventError, Text: strings.TrimSpace(l)}
		}
	}

	return ScreenEvent{Kind: EventUnknown}
}

// activeIndex returns the index of the last non-chrome line, skipping
// the same trailing status-bar/separator/blank run bottomRegion skips —
// shared so Pass 2 and Pass 3 agree on where the "meaningful" bottom of
// the screen is.
func activeIndex(lines []string) int {
	end := len(lines)
	for end > 0 {
		cat := ClassifyTextLine(strings.TrimRight(lines[end-1], " "))
		if isTransientChrome(cat, lines[end-1]) {
			end--
			continue
		}
		break
	}
	return end - 1
}

func rstripEmpty(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

func lastPromptIndex(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if rePrompt.MatchString(lines[i]) {
			return i
		}
	}
	return -1
}

func hasResponseMarker(lines []string) bool {
	for _, l := range lines {
		if reResponse.MatchString(l) {
			return true
		}
	}
	return false
}

// withinSeparator reports whether a separator line exists within the
// tolerance window [idx+1, idx+delta] (or [idx+delta, idx-1] for negative
// delta), absorbing blank/artifact rows the emulator inserts around prompts.
func withinSeparator(lines []string, idx, delta int) bool {
	lo, hi := idx+1, idx+delta
	if delta < 0 {
		lo, hi = idx+delta, idx-1
	}
	if lo < 0 {
		lo = 0
	}
	if hi >= len(lines) {
		hi = len(lines) - 1
	}
	for i := lo; i <= hi; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		if ClassifyTextLine(strings.TrimSpace(lines[i])) == CategorySeparator {
			return true
		}
	}
	return false
}
