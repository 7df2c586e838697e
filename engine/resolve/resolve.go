// Package resolve maps quest names typed by a player to quest ids.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// AmbiguityError indicates multiple quests matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no quest matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no quest matches %q", e.Name)
}

// Event rewrites the quest reference of an accept or confirm event from a
// typed name to a quest id. Events without a quest reference pass through.
func Event(c *corpus.Corpus, s *types.PlayerState, ev types.Event) (types.Event, error) {
	if ev.QuestID == "" {
		return ev, nil
	}
	switch ev.Type {
	case types.EventAccept, types.EventStepConfirmed, types.EventStepCompleted:
		id, err := Quest(c, s, ev.QuestID)
		if err != nil {
			return ev, err
		}
		ev.QuestID = id
	}
	return ev, nil
}

// Quest resolves a name to a quest id. An exact id always wins; otherwise
// titles of quests the player can see (offered or in progress) are
// searched.
func Quest(c *corpus.Corpus, s *types.PlayerState, name string) (string, error) {
	name = strings.TrimSpace(name)

	// 1. Exact quest ID match.
	if c.HasQuest(name) {
		return name, nil
	}

	// 2. Search by title among visible quests.
	nameLower := strings.ToLower(name)
	var matches []string
	for _, q := range c.Quests() {
		if !isVisible(s, q.ID) {
			continue
		}
		if matchesName(q, nameLower) {
			matches = append(matches, q.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// isVisible returns true if the quest has been offered and is not completed.
func isVisible(s *types.PlayerState, questID string) bool {
	if s == nil {
		return false
	}
	switch state.Status(s, questID) {
	case types.QuestInProgress:
		return true
	case types.QuestCompleted:
		return false
	}
	return s.Offered[questID]
}

// matchesName checks a quest title against the query (case-insensitive).
// Supports exact match, word-based partial match, and quest ID match.
func matchesName(q *types.QuestDefinition, nameLower string) bool {
	titleLower := strings.ToLower(q.Title)
	if titleLower == nameLower {
		return true
	}
	// Word-based partial match: "relay" matches "Crack the Relay".
	for _, word := range strings.Fields(titleLower) {
		if word == nameLower {
			return true
		}
	}
	idLower := strings.ToLower(q.ID)
	if idLower == nameLower {
		return true
	}
	// Underscore normalization: "cold boot" matches quest ID "cold_boot".
	return strings.ReplaceAll(nameLower, " ", "_") == idLower
}
