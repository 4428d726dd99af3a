// Package activitylog writes one JSON line per pipeline event to a file,
// reconstructed from the teacher's activitylog.Logger (its logger_test.go
// was retrieved but logger.go itself was not) and repurposed from
// Claude-Code-hook auditing to rendering-pipeline auditing: phase
// transitions, tool-approval decisions, and classified screen events,
// one append per call, for later per-session audit of the pipeline's
// behavior.
package activitylog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger appends JSONL activity records to a file. A disabled or Nop
// Logger is a safe no-op, so callers never need a nil check.
type Logger struct {
	enabled   bool
	actor     string
	sessionID string

	mu   sync.Mutex
	file *os.File
}

// New opens (creating if necessary) the log file at path and returns a
// Logger tagging every record with actor and sessionID. If enabled is
// false, the returned Logger discards every call without creating path.
func New(enabled bool, path, actor, sessionID string) *Logger {
	l := &Logger{enabled: enabled, actor: actor, sessionID: sessionID}
	if !enabled {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// Degrade to a no-op logger rather than fail session startup over
		// an audit trail.
		l.enabled = false
		return l
	}
	l.file = f
	return l
}

// Nop returns a Logger that discards every call.
func Nop() *Logger {
	return &Logger{enabled: false}
}

// Close releases the underlying file handle, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type record struct {
	Timestamp string  `json:"ts"`
	Actor     string  `json:"actor"`
	SessionID string  `json:"session_id"`
	Event     string  `json:"event"`
	Phase     string  `json:"phase,omitempty"`
	From      string  `json:"from,omitempty"`
	To        string  `json:"to,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	ToolName  string  `json:"tool_name,omitempty"`
	Decision  string  `json:"decision,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	EditCount int     `json:"edit_count,omitempty"`
	DurationS float64 `json:"duration_s,omitempty"`
}

// PhaseTransition records the pipeline runner moving from one Phase to
// another in response to a classified screen event kind.
func (l *Logger) PhaseTransition(from, to, kind string) {
	l.write(record{Event: "phase_transition", From: from, To: to, Kind: kind})
}

// ScreenEvent records a classified screen event kind observed on a poll
// tick, independent of whether it caused a phase transition.
func (l *Logger) ScreenEvent(kind string) {
	l.write(record{Event: "screen_event", Kind: kind})
}

// ToolDecision records a tool-approval menu decision (e.g. the keyboard
// sequence the runner sent in response to a TOOL_REQUEST event).
func (l *Logger) ToolDecision(toolName, decision, reason string) {
	l.write(record{Event: "tool_decision", ToolName: toolName, Decision: decision, Reason: reason})
}

// StateChange records a session-level state transition, such as the
// supervisor marking a session idle or reaping it.
func (l *Logger) StateChange(from, to string) {
	l.write(record{Event: "state_change", From: from, To: to})
}

// MessageDelivered records a streamed chat message finalizing, including
// how many edit-in-place updates it went through and its total lifetime.
func (l *Logger) MessageDelivered(editCount int, duration time.Duration) {
	l.write(record{Event: "message_delivered", EditCount: editCount, DurationS: duration.Seconds()})
}

func (l *Logger) write(r record) {
	if !l.enabled {
		return
	}
	r.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	r.Actor = l.actor
	r.SessionID = l.sessionID

	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	l.file.Write(data)
}
