// Package mail decides when in-game mail is delivered to a player.
package mail

import (
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/types"
)

// Transition is the flag store before and after an evaluation. flag_set
// delivery fires only on the edge between the two.
type Transition struct {
	Before map[string]string
	After  map[string]string
}

// NormalizeCondition lowercases and trims a delivery condition.
func NormalizeCondition(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// KnownCondition reports whether the delivery condition is supported.
func KnownCondition(c string) bool {
	switch NormalizeCondition(c) {
	case types.DeliverGameStart, types.DeliverAfterQuest, types.DeliverFlagSet, types.DeliverManual:
		return true
	default:
		return false
	}
}

// ShouldDeliver decides whether a mail with delivery rule d is delivered in
// reaction to a lifecycle event.
//
//	game_start   on the game start event (once per save)
//	after_quest  on completion of d.QuestID
//	flag_set     when d.FlagKey moves into the matching value
//	manual       never
func ShouldDeliver(d *types.MailDelivery, ev types.LifecycleEvent, tr Transition) bool {
	if d == nil {
		return false
	}
	switch NormalizeCondition(d.Condition) {
	case types.DeliverGameStart:
		return ev.Type == types.LifecycleGameStart

	case types.DeliverAfterQuest:
		id := strings.TrimSpace(d.QuestID)
		return id != "" && ev.Type == types.LifecycleComplete && ev.QuestID == id

	case types.DeliverFlagSet:
		key := strings.TrimSpace(d.FlagKey)
		if key == "" {
			return false
		}
		want := strings.TrimSpace(d.FlagValue)
		return !flags.Matches(tr.Before, key, want) && flags.Matches(tr.After, key, want)

	default:
		return false
	}
}

// AutoDeliver returns the ids from list that are not yet in the mailbox,
// in list order and without duplicates. Delivering an id twice is a no-op.
func AutoDeliver(list, mailbox []string) []string {
	seen := make(map[string]bool, len(mailbox)+len(list))
	for _, id := range mailbox {
		seen[id] = true
	}
	var out []string
	for _, id := range list {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IntroStartsQuest reports whether delivering a quest's intro mail accepts
// the quest. Unset behavior means startQuest.
func IntroStartsQuest(q *types.QuestDefinition) bool {
	b := strings.TrimSpace(q.IntroMailStartBehavior)
	return b == "" || b == types.IntroStartQuest
}

// KnownStartBehavior reports whether an intro start behavior is valid.
// Empty is valid and means startQuest.
func KnownStartBehavior(b string) bool {
	switch strings.TrimSpace(b) {
	case "", types.IntroStartQuest, types.IntroLoreOnly:
		return true
	default:
		return false
	}
}
