// Package supervisor runs the Session Output Loop (spec.md §4.I): a
// single polling loop that reads each live session's screen, classifies
// it, and drives that session's Pipeline Runner. Grounded on the
// teacher's bridgeservice.Service (Run(ctx)'s accept-loop/typing-loop
// shape, its mutex-guarded status counters, and its log.Printf style),
// generalized from "one bridge routing to many agent sockets" to "one
// loop multiplexing many PTY sessions", and supplemented with the
// original implementation's session registry semantics
// (original_source/src/session_manager.py: per-user concurrent-session
// caps and idle reaping) that spec.md's distillation named in its
// callback-data grammar (switch:<id>, kill:<id>) but never specified.
package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cligate/internal/cliproc"
	"cligate/internal/pipeline"
	"cligate/internal/streammsg"
)

// Session is one user's live CLI process plus everything the output loop
// needs to drive it: the PTY process (and its vterm.Terminal), the
// pipeline runner, and the streaming chat message it renders into.
type Session struct {
	ID     string
	User   string
	ChatID string

	Process  *cliproc.Process
	Runner   *pipeline.Runner
	Message  *streammsg.Message
	Started  time.Time
	lastSeen time.Time
}

// Registry tracks live sessions, enforcing a per-user concurrency cap
// and exposing an idle-reap sweep, per original_source/src/session_manager.py.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	byUser      map[string][]string
	maxPerUser  int
	idleTimeout time.Duration
}

// NewRegistry creates a Registry enforcing maxPerUser concurrent
// sessions and reaping sessions idle longer than idleTimeout.
func NewRegistry(maxPerUser int, idleTimeout time.Duration) *Registry {
	if maxPerUser <= 0 {
		maxPerUser = 50
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Registry{
		sessions:    map[string]*Session{},
		byUser:      map[string][]string{},
		maxPerUser:  maxPerUser,
		idleTimeout: idleTimeout,
	}
}

// ErrTooManySessions is returned by Register when user already has
// maxPerUser concurrent sessions.
var ErrTooManySessions = fmt.Errorf("supervisor: too many concurrent sessions for user")

// Register adds a new session for user, assigning it a fresh ID, after
// checking the per-user cap.
func (r *Registry) Register(user, chatID string, proc *cliproc.Process, runner *pipeline.Runner, msg *streammsg.Message) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byUser[user]) >= r.maxPerUser {
		return nil, ErrTooManySessions
	}

	sess := &Session{
		ID:       uuid.NewString(),
		User:     user,
		ChatID:   chatID,
		Process:  proc,
		Runner:   runner,
		Message:  msg,
		Started:  time.Now(),
		lastSeen: time.Now(),
	}
	r.sessions[sess.ID] = sess
	r.byUser[user] = append(r.byUser[user], sess.ID)
	return sess, nil
}

// Get returns the session with id, or nil if none exists.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Switch resolves the session a user's "switch:<id>" callback refers to,
// restricted to that user's own sessions.
func (r *Registry) Switch(user, id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok || sess.User != user {
		return nil, false
	}
	return sess, true
}

// Remove tears down the session's process and removes it from the
// registry, as "kill:<id>" and idle reaping both do.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.byUser[sess.User] = removeID(r.byUser[sess.User], id)
	}
	r.mu.Unlock()

	if ok {
		sess.Process.Kill()
		sess.Process.Close()
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Snapshot returns a point-in-time copy of all live sessions, so the
// output loop can iterate without holding the registry lock across PTY
// reads and chat API calls (teacher's own "iterate a snapshot" policy
// for concurrent-modification safety, spec.md §5 Shared-resource policy).
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// touch records activity on a session, resetting its idle clock.
func (r *Registry) touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = time.Now()
	}
}

// ReapIdle removes and kills every session that has produced no PTY
// output for longer than idleTimeout, returning their IDs.
func (r *Registry) ReapIdle() []string {
	r.mu.Lock()
	var stale []*Session
	now := time.Now()
	for _, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idleTimeout {
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		r.Remove(s.ID)
		ids = append(ids, s.ID)
	}
	return ids
}
