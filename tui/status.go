package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// renderStatusBar produces a full-width inverted status line showing the
// connected host, the active quest, unread mail and credits.
func (m Model) renderStatusBar() string {
	st := m.sim.State()

	host := m.sim.Host()
	if host == "" {
		host = "localhost"
	}
	left := " " + host

	active := state.ActiveQuests(st)
	if len(active) > 0 {
		title := active[0]
		if q := m.sim.Corpus().Quest(active[0]); q != nil && q.Title != "" {
			title = q.Title
		}
		if len(active) > 1 {
			title += fmt.Sprintf(" (+%d)", len(active)-1)
		}
		left += " | " + title
	}

	right := fmt.Sprintf("Mail:%d Cr:%d ", len(st.Mailbox), st.Credits)
	if done := completedCount(st); done > 0 {
		right = fmt.Sprintf("Done:%d ", done) + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

func completedCount(st *types.PlayerState) int {
	n := 0
	for _, s := range st.Statuses {
		if s == types.QuestCompleted {
			n++
		}
	}
	return n
}
