package vterm

import (
	"strconv"
	"strings"

	"github.com/vito/midterm"
)

// parseFormat extracts the {fg, bold, italic} triple spec.md §3 requires
// from a midterm.Format's rendered SGR prefix. The teacher's own
// RenderLineFrom (client/render.go) treats Format only as an opaque,
// comparable, ANSI-renderable value ("\033[0m" + f.Render()); parseFormat
// follows that same contract rather than reaching into Format's internal
// fields, so it stays correct across whatever color representation the
// emulator uses internally, the same way the teacher's own
// CapturePlainHistory byte scanner (vt.go) parses ANSI structurally instead
// of depending on emulator internals.
func parseFormat(f midterm.Format) (fg string, bold, italic bool) {
	fg = "default"
	ansi := f.Render()
	for _, seq := range splitSGRSequences(ansi) {
		codes := sgrCodes(seq)
		for i := 0; i < len(codes); i++ {
			switch n := codes[i]; {
			case n == 0:
				fg, bold, italic = "default", false, false
			case n == 1:
				bold = true
			case n == 22:
				bold = false
			case n == 3:
				italic = true
			case n == 23:
				italic = false
			case n == 39:
				fg = "default"
			case n >= 30 && n <= 37:
				fg = ansiColorName(n-30, false)
			case n >= 90 && n <= 97:
				fg = ansiColorName(n-90, true)
			case n == 38:
				// Extended color: 38;5;<idx> (256-color) or 38;2;<r>;<g>;<b> (truecolor).
				if i+1 < len(codes) {
					switch codes[i+1] {
					case 5:
						if i+2 < len(codes) {
							fg = palette256Name(codes[i+2])
							i += 2
						}
					case 2:
						if i+4 < len(codes) {
							fg = rgbName(codes[i+2], codes[i+3], codes[i+4])
							i += 4
						}
					}
				}
			}
		}
	}
	return fg, bold, italic
}

// splitSGRSequences splits a string that may contain more than one
// "\033[...m" escape sequence (Format.Render() may emit several) into the
// individual sequences' parameter bodies.
func splitSGRSequences(s string) []string {
	var out []string
	for {
		i := strings.Index(s, "\033[")
		if i < 0 {
			return out
		}
		s = s[i+2:]
		j := strings.IndexByte(s, 'm')
		if j < 0 {
			return out
		}
		out = append(out, s[:j])
		s = s[j+1:]
	}
}

func sgrCodes(body string) []int {
	if body == "" {
		return []int{0}
	}
	parts := strings.Split(body, ";")
	codes := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			codes = append(codes, 0)
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		codes = append(codes, n)
	}
	return codes
}

// ansiColorName maps a 3-bit ANSI color index (0-7) to the fg name set
// spec.md §3 uses. light reflects whether the bright (90-97) variant fired.
func ansiColorName(idx int, light bool) string {
	var base string
	switch idx {
	case 0:
		base = "black"
	case 1:
		base = "red"
	case 2:
		base = "green"
	case 3:
		base = "brown" // conventional name for ANSI "yellow" in terminal palettes
	case 4:
		base = "blue"
	case 5:
		base = "magenta"
	case 6:
		base = "cyan"
	case 7:
		base = "default"
	default:
		base = "default"
	}
	if light && base != "default" {
		return "light" + base
	}
	return base
}

// palette256Name approximates a 256-color palette index down to the same
// named set, since the region classifier (spec.md §4.E) only needs to
// distinguish "is this colorized like code" from prose/heading.
func palette256Name(idx int) string {
	if idx < 16 {
		return ansiColorName(idx%8, idx >= 8)
	}
	if idx >= 232 {
		return "default" // grayscale ramp: treat as prose, not syntax color
	}
	idx -= 16
	r := (idx / 36) % 6
	g := (idx / 6) % 6
	b := idx % 6
	return rgbName(r*51, g*51, b*51)
}

// rgbName buckets an RGB triple into the nearest named color by dominant
// channel and brightness.
func rgbName(r, g, b int) string {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	if max < 64 {
		return "black"
	}
	light := max >= 180
	switch {
	case r == max && g == max && b == max:
		return "default"
	case r == max && g > b:
		if light {
			return "lightbrown"
		}
		return "brown"
	case r == max:
		if light {
			return "lightred"
		}
		return "red"
	case g == max:
		if light {
			return "lightgreen"
		}
		return "green"
	case b == max && r > g:
		return "magenta"
	case b == max:
		if light {
			return "lightcyan"
		}
		return "cyan"
	default:
		return "default"
	}
}
