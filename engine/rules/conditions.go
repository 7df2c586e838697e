// Package rules implements trigger evaluation, requirement checks and
// terminal event matching. Every function here is pure.
package rules

import (
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/types"
)

// NormalizeTrigger returns a copy of t with a canonical type. A nil trigger
// becomes ON_FIRST_TERMINAL_OPEN. Quest ids and the flag key are trimmed and
// empty quest ids dropped.
func NormalizeTrigger(t *types.Trigger) types.Trigger {
	if t == nil {
		return types.Trigger{Type: types.TriggerFirstTerminalOpen}
	}
	n := types.Trigger{
		Type:      strings.ToUpper(strings.TrimSpace(t.Type)),
		FlagKey:   strings.TrimSpace(t.FlagKey),
		FlagValue: strings.TrimSpace(t.FlagValue),
	}
	if n.Type == "" {
		n.Type = types.TriggerFirstTerminalOpen
	}
	for _, id := range t.QuestIDs {
		if id = strings.TrimSpace(id); id != "" {
			n.QuestIDs = append(n.QuestIDs, id)
		}
	}
	return n
}

// KnownTrigger reports whether the trigger type is supported.
func KnownTrigger(triggerType string) bool {
	switch triggerType {
	case types.TriggerFirstTerminalOpen, types.TriggerQuestCompletion, types.TriggerFlagSet:
		return true
	default:
		return false
	}
}

// IsTriggerSatisfied decides whether a quest's activation condition holds.
//
// ON_FIRST_TERMINAL_OPEN is always eligible; the once-only guarantee belongs
// to the runtime. ON_QUEST_COMPLETION holds when any listed quest is
// completed; an empty list never holds. ON_FLAG_SET holds when the key is
// present and, if a value is given, equal to it.
func IsTriggerSatisfied(t *types.Trigger, completed map[string]bool, store map[string]string) bool {
	n := NormalizeTrigger(t)
	switch n.Type {
	case types.TriggerFirstTerminalOpen:
		return true

	case types.TriggerQuestCompletion:
		for _, id := range n.QuestIDs {
			if completed[id] {
				return true
			}
		}
		return false

	case types.TriggerFlagSet:
		if n.FlagKey == "" {
			return false
		}
		return flags.Matches(store, n.FlagKey, n.FlagValue)

	default:
		return false
	}
}

// RequirementsSatisfied returns true if every required quest is completed and
// every required flag is present (AND logic). Empty requirements are
// vacuously true.
func RequirementsSatisfied(req types.Requirements, completed map[string]bool, store map[string]string) bool {
	for _, id := range req.RequiredQuests {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		if !completed[id] {
			return false
		}
	}
	for _, raw := range req.RequiredFlags {
		f, ok := flags.ParseFlag(raw)
		if !ok {
			continue
		}
		want := f.Value
		// A bare key only asks for presence.
		if !strings.ContainsAny(raw, ":=") {
			want = ""
		}
		if !flags.Matches(store, f.Key, want) {
			return false
		}
	}
	return true
}
