// Package cliproc spawns and drives the CLI coding-assistant process under
// a PTY, adapted from the teacher's virtualterminal.VT (StartPTY/PipeOutput/
// WritePTY/IsIdle) but feeding a cligate/internal/vterm.Terminal instead of
// a raw midterm.Terminal, since this repo's screen reconstruction lives in
// vterm rather than inline on the PTY wrapper.
package cliproc

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"

	"cligate/internal/vterm"
)

// SubmitPause is the pause between writing a line of input and sending the
// terminal Enter keystroke. Kept as a named, tunable constant rather than
// hardcoded — an Open Question resolved in DESIGN.md — mirroring the
// teacher's own empirical-constant treatment of typingTickInterval.
var SubmitPause = 150 * time.Millisecond

// WriteTimeout bounds a single PTY write, matching the teacher's
// WritePTY/ErrPTYWriteTimeout pattern: if the child isn't reading stdin,
// the kernel PTY buffer fills and Write blocks indefinitely.
var WriteTimeout = 2 * time.Second

// ErrWriteTimeout is returned by WritePTY when the write does not complete
// within WriteTimeout.
var ErrWriteTimeout = fmt.Errorf("cliproc: pty write timed out")

// IdleThreshold is how long without output before IsIdle reports true.
var IdleThreshold = 2 * time.Second

// Process owns the PTY lifecycle for one CLI child process, plus the
// Terminal that reconstructs its screen.
type Process struct {
	Terminal *vterm.Terminal

	mu      sync.Mutex
	ptm     *os.File
	cmd     *exec.Cmd
	lastOut time.Time

	exited    bool
	exitError error
}

// Config describes how to launch the CLI and size its PTY.
type Config struct {
	Command string
	Args    []string
	Rows    int
	Cols    int
	Env     map[string]string
}

// New creates a Process with a Terminal sized to cfg.
func New(cfg Config) *Process {
	rows, cols := cfg.Rows, cfg.Cols
	if rows <= 0 {
		rows = vterm.DefaultRows
	}
	if cols <= 0 {
		cols = vterm.DefaultCols
	}
	return &Process{Terminal: vterm.New(vterm.Config{Rows: rows, Cols: cols})}
}

// ParseCommand splits a shell command line the way the teacher's
// bridge.ExecCommand does, for commands configured as a single string.
func ParseCommand(line string) (string, []string, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return parts[0], parts[1:], nil
}

// Start launches the child process under a PTY sized per cfg.
func (p *Process) Start(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cmd = exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		env := make([]string, 0, len(os.Environ())+len(cfg.Env))
		for _, e := range os.Environ() {
			key := e
			if idx := strings.Index(e, "="); idx >= 0 {
				key = e[:idx]
			}
			if _, override := cfg.Env[key]; !override {
				env = append(env, e)
			}
		}
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		p.cmd.Env = env
	}

	rows, cols := cfg.Rows, cfg.Cols
	if rows <= 0 {
		rows = vterm.DefaultRows
	}
	if cols <= 0 {
		cols = vterm.DefaultCols
	}

	var err error
	p.ptm, err = pty.StartWithSize(p.cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	return nil
}

// PipeOutput reads child PTY output into the Terminal and calls onData
// after each write so the caller can re-poll the screen. Blocks until the
// PTY closes (child exit); runs in its own goroutine.
func (p *Process) PipeOutput(onData func()) {
	buf := make([]byte, 4096)
	for {
		n, err := p.ptm.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.lastOut = time.Now()
			p.mu.Unlock()
			p.Terminal.Feed(buf[:n])
			if onData != nil {
				onData()
			}
		}
		if err != nil {
			p.mu.Lock()
			p.exited = true
			p.exitError = err
			p.mu.Unlock()
			return
		}
	}
}

// WritePTY writes to the child PTY with a timeout (teacher's WritePTY).
func (p *Process) WritePTY(data []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := p.ptm.Write(data)
		ch <- result{n, err}
	}()
	timer := time.NewTimer(WriteTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-timer.C:
		return 0, ErrWriteTimeout
	}
}

// Submit writes text then, after SubmitPause, sends a carriage return —
// giving the CLI's paste-detection time to settle before the Enter
// keystroke lands, the same "write then pause then \r" pattern the
// teacher's message/delivery.go deliver() uses (there with a 50ms pause).
func (p *Process) Submit(text string) error {
	if _, err := p.WritePTY([]byte(text)); err != nil {
		return err
	}
	time.Sleep(SubmitPause)
	_, err := p.WritePTY([]byte("\r"))
	return err
}

// SendKey writes a raw key sequence (e.g. "\r" for Enter, "\x1b" for
// Escape, "\x1b[A"/"\x1b[B" for arrow navigation) with no pause — used by
// the tool-approval keyboard callback path.
func (p *Process) SendKey(seq string) error {
	_, err := p.WritePTY([]byte(seq))
	return err
}

// Resize updates the PTY window size. The Terminal keeps the geometry it
// was created with.
func (p *Process) Resize(rows, cols int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pty.Setsize(p.ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// IsIdle reports whether the child has produced no output for
// IdleThreshold.
func (p *Process) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.lastOut.IsZero() && time.Since(p.lastOut) > IdleThreshold
}

// Exited reports whether the child process has exited, and its error if any.
func (p *Process) Exited() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited, p.exitError
}

// Kill sends SIGKILL to the child process.
func (p *Process) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

// Close releases the PTY master file descriptor.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ptm != nil {
		return p.ptm.Close()
	}
	return nil
}
