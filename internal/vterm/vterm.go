// Package vterm reconstructs a coherent screen and scrollback from raw PTY
// bytes using an ANSI-aware terminal emulator, and exposes both a plain-text
// projection and a per-character attributed projection of every line.
package vterm

import (
	"strings"
	"sync"

	"github.com/vito/midterm"
)

// DefaultRows, DefaultCols, and DefaultScrollbackRows match the CLI's
// expected terminal geometry. The PTY spawned for the CLI must be sized
// exactly this way or the wrapping assumptions the content extractor and
// formatter make will drift.
const (
	DefaultRows           = 40
	DefaultCols           = 120
	DefaultScrollbackRows = 1000
)

// CharSpan is an immutable run of cells sharing identical attributes.
type CharSpan struct {
	Text   string
	Fg     string
	Bold   bool
	Italic bool
}

// Config sizes a Terminal. Zero values fall back to the defaults above.
type Config struct {
	Rows           int
	Cols           int
	ScrollbackRows int
}

func (c Config) normalized() Config {
	if c.Rows <= 0 {
		c.Rows = DefaultRows
	}
	if c.Cols <= 0 {
		c.Cols = DefaultCols
	}
	if c.ScrollbackRows <= 0 {
		c.ScrollbackRows = DefaultScrollbackRows
	}
	return c
}

// Terminal wraps a visible ANSI terminal emulator paired with a second,
// taller append-only emulator fed the same bytes so that rows scrolled off
// the top of the visible screen remain addressable as bounded scrollback —
// the same dual-terminal pattern the teacher's virtualterminal.VT uses for
// Vt/Scrollback.
type Terminal struct {
	mu  sync.Mutex
	cfg Config

	vt         *midterm.Terminal
	scrollback *midterm.Terminal

	// prevDisplay is the last snapshot of visible plain lines, used by
	// GetChanges/GetAttributedChanges for change detection. Shared between
	// both so that calling one immediately after the other returns no
	// further changes (spec invariant: get_changes(); get_changes() == []).
	prevDisplay []string
}

// New creates a Terminal sized per cfg (defaults applied for zero fields).
func New(cfg Config) *Terminal {
	cfg = cfg.normalized()
	t := &Terminal{cfg: cfg}
	t.resetLocked()
	return t
}

// Feed decodes bytes as UTF-8 with replacement for invalid sequences and
// advances both the visible and scrollback screens. Never fails on
// malformed input (spec.md §4.A, §7).
func (t *Terminal) Feed(data []byte) {
	clean := data
	if !isValidUTF8(data) {
		clean = []byte(strings.ToValidUTF8(string(data), "�"))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vt.Write(clean)
	t.scrollback.Write(clean)
}

func isValidUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "�") == string(b)
}

// GetDisplay returns the visible rows, right-stripped.
func (t *Terminal) GetDisplay() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return plainLines(t.vt, t.cfg.Rows)
}

// GetFullDisplay returns scrollback (oldest first) followed by the visible
// rows.
func (t *Terminal) GetFullDisplay() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return plainLines(t.scrollback, len(t.scrollback.Content))
}

// GetAttributedLines returns the visible rows with per-character attributes.
func (t *Terminal) GetAttributedLines() [][]CharSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return attributedLines(t.vt, t.cfg.Rows)
}

// GetFullAttributedLines returns scrollback + visible rows with attributes.
func (t *Terminal) GetFullAttributedLines() [][]CharSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return attributedLines(t.scrollback, len(t.scrollback.Content))
}

// GetChanges returns non-blank visible lines whose text differs from the
// previous snapshot, then updates the snapshot.
func (t *Terminal) GetChanges() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := plainLines(t.vt, t.cfg.Rows)
	changed := diffNonBlank(t.prevDisplay, current)
	t.prevDisplay = current
	return changed
}

// GetAttributedChanges returns the attributed form of the same indices
// GetChanges would report, sharing the same snapshot (calling GetChanges
// immediately before or after does not double-report a line).
func (t *Terminal) GetAttributedChanges() [][]CharSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := plainLines(t.vt, t.cfg.Rows)
	idx := changedIndices(t.prevDisplay, current)
	t.prevDisplay = current
	attr := attributedLines(t.vt, t.cfg.Rows)
	out := make([][]CharSpan, 0, len(idx))
	for _, i := range idx {
		if i < len(attr) {
			out = append(out, attr[i])
		}
	}
	return out
}

// ClearHistory discards scrollback only.
func (t *Terminal) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollback = midterm.NewTerminal(t.cfg.Rows+t.cfg.ScrollbackRows, t.cfg.Cols)
}

// Reset clears the screen, scrollback, and change-detection snapshot.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Terminal) resetLocked() {
	t.vt = midterm.NewTerminal(t.cfg.Rows, t.cfg.Cols)
	t.scrollback = midterm.NewTerminal(t.cfg.Rows+t.cfg.ScrollbackRows, t.cfg.Cols)
	t.prevDisplay = nil
}

func diffNonBlank(prev, current []string) []string {
	idx := changedIndices(prev, current)
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, current[i])
	}
	return out
}

func changedIndices(prev, current []string) []int {
	var idx []int
	for i, line := range current {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if i >= len(prev) || prev[i] != line {
			idx = append(idx, i)
		}
	}
	return idx
}
