package rules

import (
	"github.com/nathoo/netquest/types"
)

// Gate carries the inputs an eligibility check needs besides the quest.
type Gate struct {
	Completed      map[string]bool
	Flags          map[string]string
	TerminalOpened bool
	IncludeDrafts  bool
}

// Eligible reports whether a quest may be offered to (or accepted by) a
// player whose lifecycle status for it is status.
//
// The quest must be published (unless drafts are allowed), not already in
// progress or completed, meet all requirements and have its trigger
// satisfied. ON_FIRST_TERMINAL_OPEN additionally needs the one-shot terminal
// signal from the session.
func Eligible(q *types.QuestDefinition, status types.QuestStatus, g Gate) bool {
	if q == nil {
		return false
	}
	if !g.IncludeDrafts && IsDraft(q) {
		return false
	}
	if status == types.QuestInProgress || status == types.QuestCompleted {
		return false
	}
	if !RequirementsSatisfied(q.Requirements, g.Completed, g.Flags) {
		return false
	}
	t := NormalizeTrigger(q.Trigger)
	if t.Type == types.TriggerFirstTerminalOpen && !g.TerminalOpened {
		return false
	}
	return IsTriggerSatisfied(&t, g.Completed, g.Flags)
}

// IsDraft reports whether the quest is unpublished. An empty status counts
// as published so hand-written content does not need to spell it out.
func IsDraft(q *types.QuestDefinition) bool {
	return q.Status == types.StatusDraft
}
