// Package streammsg implements the edit-in-place streaming chat message
// lifecycle of spec.md §4.G, generalized from the teacher's typing-loop
// and delivery-ticker shapes (bridgeservice/service.go's runTypingLoop,
// message/delivery.go's RunDelivery) to "accumulate HTML, flush on a rate
// limit, finalize on turn end" instead of "drain a PTY queue".
package streammsg

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cligate/internal/chatapi"
)

// State is the closed IDLE/THINKING/STREAMING enum spec.md §4.G defines.
type State int

const (
	StateIdle State = iota
	StateThinking
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateThinking:
		return "thinking"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// TypingInterval is how often the typing indicator refreshes while a
// response is in flight; matches the teacher's typingTickInterval cadence.
var TypingInterval = 4 * time.Second

// OverflowThreshold and overflowSplitFallback mirror spec.md §4.G's
// "_overflow" constants.
const (
	OverflowThreshold    = 4096
	overflowSplitFallback = 4000
)

// Logger is the narrow logging surface Message uses; satisfied by
// *slog.Logger or any adapter with the same Warn method.
type Logger interface {
	Warn(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Message is one session's edit-in-place chat message state machine.
type Message struct {
	sender        chatapi.MessageSender
	chatID        string
	editRateLimit float64 // edits per second
	logger        Logger

	mu              sync.Mutex
	state           State
	messageID       string
	accumulatedHTML string
	lastEditTime    time.Time

	typingCancel context.CancelFunc
	typingDone   chan struct{}
}

// New creates a Message bound to chatID, sending through sender, at most
// editRateLimit edits per second.
func New(sender chatapi.MessageSender, chatID string, editRateLimit float64, logger Logger) *Message {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Message{sender: sender, chatID: chatID, editRateLimit: editRateLimit, logger: logger}
}

func (m *Message) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasContent reports whether any content has accumulated since the last
// Finalize, used by the pipeline runner's finalize action (spec.md §4.H)
// to decide whether a final render is needed at all.
func (m *Message) HasContent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accumulatedHTML != ""
}

// StartThinking sends a typing indicator and a "Thinking…" placeholder,
// finalizing any unfinalized prior stream first (safety net against a
// missed IDLE transition).
func (m *Message) StartThinking(ctx context.Context) error {
	m.mu.Lock()
	wasStreaming := m.state == StateStreaming
	m.mu.Unlock()
	if wasStreaming {
		if err := m.Finalize(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.sender.SendTyping(ctx, m.chatID)

	id, err := m.sender.Send(ctx, m.chatID, "Thinking…")
	if err != nil {
		return classifySendErr(err)
	}
	m.messageID = id
	m.state = StateThinking
	m.accumulatedHTML = ""
	m.lastEditTime = time.Time{}

	m.startTypingLoop(ctx)
	return nil
}

func (m *Message) startTypingLoop(ctx context.Context) {
	m.stopTypingLoopLocked()
	typingCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.typingCancel = cancel
	m.typingDone = done
	go func() {
		defer close(done)
		ticker := time.NewTicker(TypingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				_ = m.sender.SendTyping(typingCtx, m.chatID)
			}
		}
	}()
}

func (m *Message) stopTypingLoopLocked() {
	if m.typingCancel != nil {
		m.typingCancel()
		m.typingCancel = nil
	}
}

// AppendContent appends an HTML fragment to the accumulated message,
// editing the live message if the rate limit allows (spec.md §4.G).
func (m *Message) AppendContent(ctx context.Context, htmlFragment string) error {
	m.mu.Lock()
	m.stopTypingLoopLocked()

	if m.state == StateIdle || m.messageID == "" {
		id, err := m.sender.Send(ctx, m.chatID, htmlFragment)
		if err != nil {
			m.mu.Unlock()
			return classifySendErr(err)
		}
		m.messageID = id
		m.accumulatedHTML = htmlFragment
		m.state = StateStreaming
		m.lastEditTime = time.Now()
		m.mu.Unlock()
		return nil
	}

	m.accumulatedHTML += htmlFragment
	m.state = StateStreaming

	if len(m.accumulatedHTML) > OverflowThreshold {
		err := m.overflowLocked(ctx)
		m.mu.Unlock()
		return err
	}

	due := m.editRateLimit <= 0 || time.Since(m.lastEditTime) >= time.Duration(float64(time.Second)/m.editRateLimit)
	html := m.accumulatedHTML
	id := m.messageID
	chatID := m.chatID
	m.mu.Unlock()

	if !due {
		return nil
	}
	return m.edit(ctx, chatID, id, html)
}

// FlushIfDue performs a debounced edit of whatever HTML has accumulated
// since the last edit, without appending anything new. The supervisor's
// Session Output Loop calls this on ticks where the PTY produced no new
// output (spec.md §4.I): AppendContent may have buffered content behind
// the edit rate limit with nothing further arriving to trigger another
// edit attempt, so the loop itself has to give that buffered content a
// chance to flush once the debounce window elapses.
func (m *Message) FlushIfDue(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateStreaming || m.accumulatedHTML == "" || m.messageID == "" {
		m.mu.Unlock()
		return nil
	}
	due := m.editRateLimit <= 0 || time.Since(m.lastEditTime) >= time.Duration(float64(time.Second)/m.editRateLimit)
	html := m.accumulatedHTML
	id := m.messageID
	chatID := m.chatID
	m.mu.Unlock()

	if !due {
		return nil
	}
	return m.edit(ctx, chatID, id, html)
}

// ReplaceContent replaces the accumulated HTML without immediately editing.
func (m *Message) ReplaceContent(html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accumulatedHTML = html
}

// Finalize performs one last edit if content has accumulated, then resets
// to IDLE.
func (m *Message) Finalize(ctx context.Context) error {
	m.mu.Lock()
	m.stopTypingLoopLocked()
	html := m.accumulatedHTML
	id := m.messageID
	chatID := m.chatID
	m.mu.Unlock()

	var err error
	if html != "" && id != "" {
		err = m.edit(ctx, chatID, id, html)
	}

	m.mu.Lock()
	m.state = StateIdle
	m.messageID = ""
	m.accumulatedHTML = ""
	m.lastEditTime = time.Time{}
	m.mu.Unlock()

	return err
}

func (m *Message) overflowLocked(ctx context.Context) error {
	html := m.accumulatedHTML
	cut := strings.LastIndex(html[:min(len(html), OverflowThreshold)], "\n")
	if cut <= 0 {
		cut = overflowSplitFallback
		if cut > len(html) {
			cut = len(html)
		}
	}
	left, right := html[:cut], html[cut:]

	id := m.messageID
	chatID := m.chatID
	m.mu.Unlock()
	editErr := m.edit(ctx, chatID, id, left)
	m.mu.Lock()

	newID, sendErr := m.sender.Send(ctx, chatID, right)
	if sendErr != nil {
		return classifySendErr(sendErr)
	}
	m.messageID = newID
	m.accumulatedHTML = right
	return editErr
}

// edit applies §4.G's _edit failure-handling matrix.
func (m *Message) edit(ctx context.Context, chatID, messageID, html string) error {
	err := m.sender.Edit(ctx, chatID, messageID, html)
	if err == nil {
		m.mu.Lock()
		m.lastEditTime = time.Now()
		m.mu.Unlock()
		return nil
	}

	var parseErr *chatapi.ParseError
	if errors.As(err, &parseErr) {
		m.logger.Warn("chat html parse error, retrying with inline tags stripped", "err", err)
		if retryErr := m.sender.Edit(ctx, chatID, messageID, stripTags(html)); retryErr == nil {
			m.mu.Lock()
			m.lastEditTime = time.Now()
			m.mu.Unlock()
			return nil
		}
		return nil
	}

	if errors.Is(err, chatapi.ErrNotModified) {
		return nil
	}

	var rateErr *chatapi.RateLimitError
	if errors.As(err, &rateErr) {
		m.mu.Lock()
		m.lastEditTime = time.Now().Add(rateErr.RetryAfter)
		m.mu.Unlock()
		return nil
	}

	if errors.Is(err, chatapi.ErrForbidden) {
		return err
	}

	m.logger.Warn("chat edit failed, will retry on next content", "err", err)
	return nil
}

func classifySendErr(err error) error {
	if errors.Is(err, chatapi.ErrForbidden) {
		return chatapi.ErrForbidden
	}
	return err
}

var reTag = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "", "<code>", "", "</code>", "")

func stripTags(s string) string {
	return reTag.Replace(s)
}
