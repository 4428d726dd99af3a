package chathtml

import "strings"

// DefaultMaxLen is the chat message length ceiling spec.md §4.F names.
const DefaultMaxLen = 4096

// SplitMessage is split_message from spec.md §4.F, adapted from the
// teacher's bridge.SplitMessage (same rightmost-split-point search over a
// maxLen window) to the three-tier separator preference spec.md requires:
// "\n\n", then "\n", then " ", falling back to a hard cut at max.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxLen
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= max {
			chunks = append(chunks, strings.TrimRight(text, " \t\n"))
			break
		}
		cut := findSplit(text, max)
		chunk := strings.TrimRight(text[:cut], " \t\n")
		chunks = append(chunks, chunk)
		text = strings.TrimLeft(text[cut:], " \t\n")
	}
	return chunks
}

// findSplit returns the rightmost preferred split point within [0, max).
func findSplit(text string, max int) int {
	window := text[:max]
	if cut := strings.LastIndex(window, "\n\n"); cut > 0 {
		return cut + 2
	}
	if cut := strings.LastIndex(window, "\n"); cut > 0 {
		return cut + 1
	}
	if cut := strings.LastIndex(window, " "); cut > 0 {
		return cut + 1
	}
	return max
}
