package pipeline

import (
	"context"
	"errors"
	"strings"

	"cligate/internal/chatapi"
	"cligate/internal/classify"
	"cligate/internal/content"
	"cligate/internal/chathtml"
	"cligate/internal/streammsg"
	"cligate/internal/vterm"
)

// KeyboardSender sends the approval-menu chat message with an inline
// keyboard (spec.md §4.H send_keyboard). Implemented by the chat-bridge
// layer, since the numbered-option-to-callback-data wiring is a chat
// platform concern, not the pipeline's.
type KeyboardSender interface {
	SendApprovalMenu(ctx context.Context, question string, options []classify.ToolRequestOption, selectedIndex int) error
}

// Notifier sends a one-shot plain-text chat notification, used for the
// auth-required warning.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Logger is the narrow logging surface the runner uses for non-fatal
// action failures.
type Logger interface {
	Warn(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Deps bundles a Runner's external collaborators.
type Deps struct {
	Message   *streammsg.Message
	Terminal  *vterm.Terminal
	Keyboard  KeyboardSender
	Notifier  Notifier
	Logger    Logger
	// Kill is invoked when an action reports chatapi.ErrForbidden or the
	// auth-required warning fires; the gateway wires this to its
	// session teardown.
	Kill func()
}

// Runner is one session's Pipeline Runner (spec.md §4.H): consumes
// ScreenEvents, advances Phase, fires actions.
type Runner struct {
	deps Deps

	phase         Phase
	toolActed     bool
	authWarned    bool
	sawNonStartup bool
	sentLines     map[string]bool
	killed        bool
}

// New creates a Runner starting in PhaseDormant.
func New(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Runner{deps: deps, sentLines: map[string]bool{}}
}

// MarkToolActed records that the user has already accepted/denied a
// pending tool-approval menu via chat, so a stale TOOL_REQUEST screen
// (still painted while the CLI redraws) doesn't re-fire send_keyboard.
func (r *Runner) MarkToolActed() { r.toolActed = true }

// Phase reports the current phase, mainly for tests and diagnostics.
func (r *Runner) Phase() Phase { return r.phase }

// Process is the runner's single entry point: apply overrides, look up
// the transition, fire actions, handle the exception policy.
func (r *Runner) Process(ctx context.Context, ev classify.ScreenEvent) error {
	if r.killed {
		return nil
	}

	ev = r.applyOverrides(ev)

	if ev.Kind == classify.EventUserMessage {
		r.sentLines = map[string]bool{}
	}
	if ev.Kind == classify.EventStartup || ev.Kind == classify.EventIdle {
		r.seedSentLines()
	}

	next, actions := lookup(r.phase, ev.Kind)
	r.phase = next

	for _, a := range actions {
		if err := r.fire(ctx, a, ev); err != nil {
			if errors.Is(err, chatapi.ErrForbidden) {
				r.killed = true
				if r.deps.Kill != nil {
					r.deps.Kill()
				}
				return err
			}
			r.deps.Logger.Warn("pipeline action failed", "action", string(a), "err", err)
		}
	}
	return nil
}

// applyOverrides implements spec.md §4.H's two overrides, applied to the
// observed event before the table lookup.
func (r *Runner) applyOverrides(ev classify.ScreenEvent) classify.ScreenEvent {
	if ev.Kind == classify.EventStartup && r.sawNonStartup {
		ev = classify.ScreenEvent{Kind: classify.EventUnknown}
	} else if ev.Kind != classify.EventStartup {
		r.sawNonStartup = true
	}

	if ev.Kind == classify.EventToolRequest && r.toolActed {
		ev = classify.ScreenEvent{Kind: classify.EventUnknown}
	}
	if ev.Kind != classify.EventToolRequest {
		r.toolActed = false
	}
	return ev
}

func (r *Runner) fire(ctx context.Context, action ActionName, ev classify.ScreenEvent) error {
	switch action {
	case ActionSendThinking:
		return r.deps.Message.StartThinking(ctx)
	case ActionSendKeyboard:
		r.toolActed = false
		return r.deps.Keyboard.SendApprovalMenu(ctx, ev.Question, ev.Options, ev.SelectedIndex)
	case ActionSendAuthWarning:
		return r.sendAuthWarning(ctx)
	case ActionExtractAndSend:
		return r.extractAndSend(ctx)
	case ActionFinalize:
		return r.finalize(ctx)
	default:
		return nil
	}
}

func (r *Runner) sendAuthWarning(ctx context.Context) error {
	if r.authWarned {
		return nil
	}
	r.authWarned = true
	err := r.deps.Notifier.Notify(ctx, "Your CLI session needs you to sign in. Complete the login flow on the host, then start a new session.")
	if r.deps.Kill != nil {
		r.deps.Kill()
	}
	r.killed = true
	return err
}

// extractAndSend is the rendering path of spec.md §4.H's extract_and_send:
// pull just the attributed delta from the emulator, not the full display
// (full-display rendering is finalize's job, on the final tick only).
func (r *Runner) extractAndSend(ctx context.Context) error {
	attrChanges := r.deps.Terminal.GetAttributedChanges()
	if len(attrChanges) == 0 {
		return nil
	}

	plainChanges := make([]string, len(attrChanges))
	for i, spans := range attrChanges {
		plainChanges[i] = plainTextOfSpans(spans)
	}
	filtered := content.FilterResponseAttr(plainChanges, attrChanges)

	html := chathtml.RenderANSI(filtered)
	if strings.TrimSpace(html) == "" {
		return nil
	}

	deduped := r.dedup(html)
	if deduped == "" {
		return nil
	}
	return r.deps.Message.AppendContent(ctx, deduped)
}

// finalize implements spec.md §4.H's finalize action.
func (r *Runner) finalize(ctx context.Context) error {
	if r.deps.Message.HasContent() {
		display := r.deps.Terminal.GetDisplay()
		attrLines := r.deps.Terminal.GetAttributedLines()
		filtered := content.FilterResponseAttr(display, attrLines)
		html := chathtml.RenderANSI(filtered)
		if strings.TrimSpace(html) != "" {
			r.deps.Message.ReplaceContent(html)
		}
	}
	err := r.deps.Message.Finalize(ctx)
	r.deps.Terminal.ClearHistory()
	return err
}

// plainTextOfSpans concatenates a line's attributed spans back into plain
// text, the form classify/content's line-category logic expects.
func plainTextOfSpans(spans []vterm.CharSpan) string {
	var b strings.Builder
	for _, sp := range spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// dedup splits html into logical lines, drops ones already sent, and adds
// the rest to sentLines (spec.md §4.H content dedup).
func (r *Runner) dedup(html string) string {
	var kept []string
	for _, line := range strings.Split(html, "\n") {
		key := strings.TrimSpace(line)
		if key == "" {
			kept = append(kept, line)
			continue
		}
		if r.sentLines[key] {
			continue
		}
		r.sentLines[key] = true
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// seedSentLines seeds the dedup set from the current full visible display
// on STARTUP and IDLE transitions, so old banner/prior-response text is
// never re-sent if the emulator scrolls.
func (r *Runner) seedSentLines() {
	for _, line := range r.deps.Terminal.GetDisplay() {
		key := strings.TrimSpace(line)
		if key != "" {
			r.sentLines[key] = true
		}
	}
}
