package streammsg

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cligate/internal/chatapi"
)

// mockSender records Send/Edit/SendTyping calls, same pattern as the
// teacher's bridgeservice mockSender/mockTypingBridge.
type mockSender struct {
	mu        sync.Mutex
	nextID    int
	sent      []string
	edits     []string
	typing    int
	editErr   error
	sendErr   error
}

func (m *mockSender) Send(_ context.Context, _, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, html)
	return string(rune('a' + m.nextID)), nil
}

func (m *mockSender) Edit(_ context.Context, _, _, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, html)
	return nil
}

func (m *mockSender) SendTyping(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return nil
}

func TestStartThinkingSendsPlaceholder(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 1, nil)

	if err := msg.StartThinking(context.Background()); err != nil {
		t.Fatalf("StartThinking() error = %v", err)
	}
	if msg.State() != StateThinking {
		t.Fatalf("State() = %v, want thinking", msg.State())
	}
	if len(m.sent) != 1 || m.sent[0] != "Thinking…" {
		t.Fatalf("sent = %v", m.sent)
	}
	msg.stopTypingLoopLocked()
}

func TestAppendContentEditsExistingMessage(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 0, nil) // 0 rate limit = always due

	if err := msg.StartThinking(context.Background()); err != nil {
		t.Fatalf("StartThinking() error = %v", err)
	}
	if err := msg.AppendContent(context.Background(), "hello"); err != nil {
		t.Fatalf("AppendContent() error = %v", err)
	}
	if msg.State() != StateStreaming {
		t.Fatalf("State() = %v, want streaming", msg.State())
	}
	if len(m.edits) != 1 || m.edits[0] != "hello" {
		t.Fatalf("edits = %v", m.edits)
	}
	msg.stopTypingLoopLocked()
}

func TestAppendContentSkipsEditWhenIdle(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 1, nil)

	if err := msg.AppendContent(context.Background(), "fresh content"); err != nil {
		t.Fatalf("AppendContent() error = %v", err)
	}
	if len(m.sent) != 1 || m.sent[0] != "fresh content" {
		t.Fatalf("expected a new message sent when idle, got sent=%v edits=%v", m.sent, m.edits)
	}
}

func TestFinalizeResetsToIdle(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 0, nil)

	_ = msg.StartThinking(context.Background())
	_ = msg.AppendContent(context.Background(), "content")
	if err := msg.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if msg.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", msg.State())
	}
}

func TestEditNotModifiedIgnoredSilently(t *testing.T) {
	m := &mockSender{editErr: chatapi.ErrNotModified}
	msg := New(m, "chat1", 0, nil)

	_ = msg.StartThinking(context.Background())
	if err := msg.AppendContent(context.Background(), "content"); err != nil {
		t.Fatalf("AppendContent() error = %v, want nil (not-modified ignored)", err)
	}
}

func TestEditForbiddenPropagates(t *testing.T) {
	m := &mockSender{editErr: chatapi.ErrForbidden}
	msg := New(m, "chat1", 0, nil)

	_ = msg.StartThinking(context.Background())
	err := msg.AppendContent(context.Background(), "content")
	if !errors.Is(err, chatapi.ErrForbidden) {
		t.Fatalf("AppendContent() error = %v, want ErrForbidden", err)
	}
}

func TestFlushIfDueEditsBufferedContent(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 0, nil) // 0 rate limit = always due

	_ = msg.StartThinking(context.Background())
	_ = msg.AppendContent(context.Background(), "buffered")
	m.edits = nil // discard the edit AppendContent already issued

	if err := msg.FlushIfDue(context.Background()); err != nil {
		t.Fatalf("FlushIfDue() error = %v", err)
	}
	if len(m.edits) != 1 || m.edits[0] != "buffered" {
		t.Fatalf("edits = %v, want one flush of the buffered content", m.edits)
	}
}

func TestFlushIfDueNoopWhenIdle(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 1, nil)

	if err := msg.FlushIfDue(context.Background()); err != nil {
		t.Fatalf("FlushIfDue() error = %v", err)
	}
	if len(m.edits) != 0 {
		t.Fatalf("edits = %v, want none while idle", m.edits)
	}
}

func TestFlushIfDueNoopWithoutAccumulatedContent(t *testing.T) {
	m := &mockSender{}
	msg := New(m, "chat1", 1000, nil)

	_ = msg.StartThinking(context.Background())
	if err := msg.FlushIfDue(context.Background()); err != nil {
		t.Fatalf("FlushIfDue() error = %v", err)
	}
	if len(m.edits) != 0 {
		t.Fatalf("edits = %v, want none before any content arrives", m.edits)
	}
}
