// Package tui provides a Bubble Tea terminal UI for the quest simulator.
package tui

import "strings"

// History keeps the terminal commands entered this session, newest last.
// Repeat aliases are not recorded since they would shadow the command they
// repeat.
type History struct {
	entries []string
	limit   int
	back    int // 0 = editing fresh input, n = n-th most recent entry
}

// NewHistory creates a history that keeps at most limit entries.
func NewHistory(limit int) *History {
	return &History{entries: make([]string, 0, limit), limit: limit}
}

// Push records a command. Consecutive duplicates and repeat aliases are
// skipped.
func (h *History) Push(cmd string) {
	switch strings.ToLower(cmd) {
	case "again", "g":
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.limit {
		h.entries = append(h.entries[:0], h.entries[len(h.entries)-h.limit:]...)
	}
}

// Prev steps to the next older entry, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.back < len(h.entries) {
		h.back++
	}
	return h.at(h.back), true
}

// Next steps to the next newer entry. It reports false once navigation is
// back at fresh input.
func (h *History) Next() (string, bool) {
	if h.back <= 1 {
		h.back = 0
		return "", false
	}
	h.back--
	return h.at(h.back), true
}

// Complete returns the most recent entry that extends prefix.
func (h *History) Complete(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; len(e) > len(prefix) && strings.HasPrefix(e, prefix) {
			return e, true
		}
	}
	return "", false
}

// ResetCursor returns navigation to fresh input.
func (h *History) ResetCursor() {
	h.back = 0
}

func (h *History) at(back int) string {
	return h.entries[len(h.entries)-back]
}
