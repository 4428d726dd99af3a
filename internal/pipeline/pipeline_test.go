package pipeline

import (
	"context"
	"errors"
	"testing"

	"cligate/internal/chatapi"
	"cligate/internal/classify"
	"cligate/internal/streammsg"
	"cligate/internal/vterm"
)

type mockSender struct {
	sent  []string
	edits []string
}

func (m *mockSender) Send(_ context.Context, _, html string) (string, error) {
	m.sent = append(m.sent, html)
	return "msg1", nil
}
func (m *mockSender) Edit(_ context.Context, _, _, html string) error {
	m.edits = append(m.edits, html)
	return nil
}
func (m *mockSender) SendTyping(_ context.Context, _ string) error { return nil }

type mockKeyboard struct {
	calls int
}

func (m *mockKeyboard) SendApprovalMenu(_ context.Context, _ string, _ []classify.ToolRequestOption, _ int) error {
	m.calls++
	return nil
}

type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) Notify(_ context.Context, text string) error {
	m.notified = append(m.notified, text)
	return nil
}

func newTestRunner(t *testing.T) (*Runner, *mockSender, *mockKeyboard, *mockNotifier, *vterm.Terminal) {
	t.Helper()
	sender := &mockSender{}
	kb := &mockKeyboard{}
	notifier := &mockNotifier{}
	term := vterm.New(vterm.Config{Rows: 10, Cols: 60})
	msg := streammsg.New(sender, "chat1", 0, nil)
	killed := false
	r := New(Deps{
		Message:  msg,
		Terminal: term,
		Keyboard: kb,
		Notifier: notifier,
		Kill:     func() { killed = true },
	})
	_ = killed
	return r, sender, kb, notifier, term
}

func TestLookupTableDormantThinking(t *testing.T) {
	next, actions := lookup(PhaseDormant, classify.EventThinking)
	if next != PhaseThinking {
		t.Fatalf("next = %v, want THINKING", next)
	}
	if len(actions) != 1 || actions[0] != ActionSendThinking {
		t.Fatalf("actions = %v", actions)
	}
}

func TestLookupUnknownPairKeepsPhase(t *testing.T) {
	next, actions := lookup(PhaseStreaming, classify.EventUnknown)
	if next != PhaseStreaming {
		t.Fatalf("next = %v, want unchanged STREAMING", next)
	}
	if actions != nil {
		t.Fatalf("actions = %v, want nil", actions)
	}
}

func TestProcessDormantToThinkingSendsThinking(t *testing.T) {
	r, sender, _, _, _ := newTestRunner(t)
	if err := r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventThinking}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if r.Phase() != PhaseThinking {
		t.Fatalf("Phase() = %v, want THINKING", r.Phase())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one sent message (Thinking placeholder), got %v", sender.sent)
	}
}

func TestProcessToolRequestSendsKeyboard(t *testing.T) {
	r, _, kb, _, _ := newTestRunner(t)
	ev := classify.ScreenEvent{
		Kind:     classify.EventToolRequest,
		Question: "Proceed?",
		Options:  []classify.ToolRequestOption{{Number: 1, Label: "Yes"}, {Number: 2, Label: "No"}},
	}
	if err := r.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if r.Phase() != PhaseToolPending {
		t.Fatalf("Phase() = %v, want TOOL_PENDING", r.Phase())
	}
	if kb.calls != 1 {
		t.Fatalf("kb.calls = %d, want 1", kb.calls)
	}
}

func TestProcessToolRequestCoercedWhenToolActed(t *testing.T) {
	r, _, kb, _, _ := newTestRunner(t)
	r.MarkToolActed()
	ev := classify.ScreenEvent{Kind: classify.EventToolRequest}
	if err := r.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if kb.calls != 0 {
		t.Fatalf("expected no keyboard send for a stale acted-upon menu, got %d calls", kb.calls)
	}
}

func TestProcessStartupCoercedAfterNonStartupObserved(t *testing.T) {
	r, _, _, _, _ := newTestRunner(t)
	_ = r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventThinking})
	before := r.Phase()
	_ = r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventStartup})
	if r.Phase() != before {
		t.Fatalf("STARTUP after non-STARTUP must be a no-op, phase changed from %v to %v", before, r.Phase())
	}
}

func TestProcessAuthRequiredWarnsOnce(t *testing.T) {
	r, _, _, notifier, _ := newTestRunner(t)
	_ = r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventAuthRequired})
	_ = r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventAuthRequired})
	if len(notifier.notified) != 1 {
		t.Fatalf("expected exactly one auth warning, got %d", len(notifier.notified))
	}
}

func TestProcessForbiddenKillsSession(t *testing.T) {
	term := vterm.New(vterm.Config{Rows: 10, Cols: 60})
	forbiddenSender := &forbiddenMockSender{}
	msg := streammsg.New(forbiddenSender, "chat1", 0, nil)
	killed := false
	r := New(Deps{
		Message:  msg,
		Terminal: term,
		Keyboard: &mockKeyboard{},
		Notifier: &mockNotifier{},
		Kill:     func() { killed = true },
	})

	err := r.Process(context.Background(), classify.ScreenEvent{Kind: classify.EventThinking})
	if !errors.Is(err, chatapi.ErrForbidden) {
		t.Fatalf("Process() error = %v, want ErrForbidden", err)
	}
	if !killed {
		t.Fatal("expected Kill() to be called")
	}
}

type forbiddenMockSender struct{}

func (forbiddenMockSender) Send(context.Context, string, string) (string, error) {
	return "", chatapi.ErrForbidden
}
func (forbiddenMockSender) Edit(context.Context, string, string, string) error { return nil }
func (forbiddenMockSender) SendTyping(context.Context, string) error          { return nil }
