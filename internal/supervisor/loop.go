package supervisor

import (
	"context"
	"time"

	"cligate/internal/activitylog"
	"cligate/internal/classify"
)

// Logger is the narrow logging surface the loop uses for tick-level
// operational trace.
type Logger interface {
	Printf(format string, v ...any)
}

// Loop is the Session Output Loop of spec.md §4.I: every PollInterval,
// snapshot the registry and, per session, classify the screen and drive
// its pipeline runner.
type Loop struct {
	Registry     *Registry
	PollInterval time.Duration
	Activity     *activitylog.Logger
	Logger       Logger
}

// NewLoop creates a Loop polling at interval (falling back to the
// spec-mandated 300ms if interval is non-positive).
func NewLoop(registry *Registry, interval time.Duration, activity *activitylog.Logger, logger Logger) *Loop {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	if activity == nil {
		activity = activitylog.Nop()
	}
	return &Loop{Registry: registry, PollInterval: interval, Activity: activity, Logger: logger}
}

// Run blocks, ticking every PollInterval, until ctx is cancelled. One
// misbehaving session's action failure never stops the loop (spec.md §7:
// "all unhandled exceptions inside an action are caught and logged").
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()

	idleSweep := time.NewTicker(l.PollInterval * 100)
	defer idleSweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idleSweep.C:
			for _, id := range l.Registry.ReapIdle() {
				l.logf("session %s reaped for inactivity", id)
				l.Activity.StateChange("active", "reaped")
			}
		case <-ticker.C:
			for _, sess := range l.Registry.Snapshot() {
				l.tick(ctx, sess)
			}
		}
	}
}

// tick processes one session's current screen state and, if the PTY
// has produced no output for cliproc.IdleThreshold, gives any rate-limited-but-buffered
// chat content a chance to flush (spec.md §4.I's second bullet).
func (l *Loop) tick(ctx context.Context, sess *Session) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logf("session %s: action panicked: %v", sess.ID, rec)
		}
	}()

	exited, _ := sess.Process.Exited()
	if exited {
		l.Registry.Remove(sess.ID)
		return
	}

	display := sess.Process.Terminal.GetDisplay()
	ev := classify.ClassifyScreenState(display)
	l.Activity.ScreenEvent(ev.Kind.String())

	beforePhase := sess.Runner.Phase()
	if err := sess.Runner.Process(ctx, ev); err != nil {
		l.logf("session %s: pipeline action failed: %v", sess.ID, err)
	}
	if sess.Runner.Phase() != beforePhase {
		l.Activity.PhaseTransition(beforePhase.String(), sess.Runner.Phase().String(), ev.Kind.String())
	}

	if sess.Process.IsIdle() {
		if err := sess.Message.FlushIfDue(ctx); err != nil {
			l.logf("session %s: flush failed: %v", sess.ID, err)
		}
	} else {
		l.Registry.touch(sess.ID)
	}
}

func (l *Loop) logf(format string, v ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, v...)
	}
}
