// Package state manages the per-player quest runtime state and flag store
// lookups. Readers never mutate; writers go through engine/effects.
package state

import (
	"sort"

	"github.com/nathoo/netquest/types"
)

// NewState creates a fresh runtime state for a player.
func NewState(playerID string) *types.PlayerState {
	return &types.PlayerState{
		PlayerID:         playerID,
		Statuses:         map[string]types.QuestStatus{},
		Progress:         map[string]types.QuestProgress{},
		Offered:          map[string]bool{},
		Flags:            map[string]string{},
		Mailbox:          []string{},
		UnlockedCommands: []string{},
	}
}

// Ensure fills in nil maps and slices so a decoded state is safe to write.
func Ensure(s *types.PlayerState) {
	if s.Statuses == nil {
		s.Statuses = map[string]types.QuestStatus{}
	}
	if s.Progress == nil {
		s.Progress = map[string]types.QuestProgress{}
	}
	if s.Offered == nil {
		s.Offered = map[string]bool{}
	}
	if s.Flags == nil {
		s.Flags = map[string]string{}
	}
	if s.Mailbox == nil {
		s.Mailbox = []string{}
	}
	if s.UnlockedCommands == nil {
		s.UnlockedCommands = []string{}
	}
}

// Clone returns a deep copy of s.
func Clone(s *types.PlayerState) *types.PlayerState {
	if s == nil {
		return nil
	}
	c := *s
	c.Statuses = make(map[string]types.QuestStatus, len(s.Statuses))
	for k, v := range s.Statuses {
		c.Statuses[k] = v
	}
	c.Progress = make(map[string]types.QuestProgress, len(s.Progress))
	for k, v := range s.Progress {
		c.Progress[k] = v
	}
	c.Offered = make(map[string]bool, len(s.Offered))
	for k, v := range s.Offered {
		c.Offered[k] = v
	}
	c.Flags = CopyFlags(s.Flags)
	c.Mailbox = append([]string{}, s.Mailbox...)
	c.UnlockedCommands = append([]string{}, s.UnlockedCommands...)
	return &c
}

// CopyFlags returns a copy of a flag store.
func CopyFlags(flags map[string]string) map[string]string {
	out := make(map[string]string, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}

// Status returns the lifecycle status of a quest. Unknown quests are
// not started.
func Status(s *types.PlayerState, questID string) types.QuestStatus {
	if st, ok := s.Statuses[questID]; ok && st != "" {
		return st
	}
	return types.QuestNotStarted
}

// CompletedSet returns the ids of every completed quest.
func CompletedSet(s *types.PlayerState) map[string]bool {
	out := make(map[string]bool, len(s.Statuses))
	for id, st := range s.Statuses {
		if st == types.QuestCompleted {
			out[id] = true
		}
	}
	return out
}

// ActiveQuests returns the ids of every in-progress quest, sorted.
func ActiveQuests(s *types.PlayerState) []string {
	var out []string
	for id, st := range s.Statuses {
		if st == types.QuestInProgress {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// GetFlag returns the stored value of a flag and whether it is set.
func GetFlag(s *types.PlayerState, key string) (string, bool) {
	v, ok := s.Flags[key]
	return v, ok
}

// HasMail returns true if the mail id is already in the player's mailbox.
func HasMail(s *types.PlayerState, mailID string) bool {
	for _, id := range s.Mailbox {
		if id == mailID {
			return true
		}
	}
	return false
}

// HasCommand returns true if the command has been unlocked.
func HasCommand(s *types.PlayerState, cmd string) bool {
	for _, c := range s.UnlockedCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

// ActiveStep returns the progress of an in-progress quest.
func ActiveStep(s *types.PlayerState, questID string) (types.QuestProgress, bool) {
	if Status(s, questID) != types.QuestInProgress {
		return types.QuestProgress{}, false
	}
	return s.Progress[questID], true
}
