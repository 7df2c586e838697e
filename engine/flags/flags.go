// Package flags resolves the completion flag of a quest and the full set of
// flags a quest emits when it completes.
package flags

import (
	"strings"

	"github.com/nathoo/netquest/types"
)

// MaxEmitted caps the number of flags a single quest may emit.
const MaxEmitted = 25

// CompletionPrefix prefixes the canonical completion flag id.
const CompletionPrefix = "quest_completed_"

// DefaultValue is the value stored for a bare flag key.
const DefaultValue = "true"

// ResolveCompletionFlagID returns the quest's completion flag override if it
// is non-empty after trimming, otherwise "quest_completed_<id>".
func ResolveCompletionFlagID(q *types.QuestDefinition) string {
	if q == nil {
		return ""
	}
	if cf := strings.TrimSpace(q.CompletionFlag); cf != "" {
		return cf
	}
	return CompletionPrefix + q.ID
}

// EmittedFlags returns the completion flag followed by the sanitized reward
// flags, deduplicated by (key, value) and capped at MaxEmitted entries.
func EmittedFlags(q *types.QuestDefinition) []types.RewardFlag {
	if q == nil {
		return nil
	}
	out := []types.RewardFlag{{Key: ResolveCompletionFlagID(q), Value: DefaultValue}}
	seen := map[string]bool{signature(out[0]): true}
	for _, f := range Sanitize(q.Rewards.Flags) {
		if len(out) >= MaxEmitted {
			break
		}
		sig := signature(f)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, f)
	}
	return out
}

// Sanitize trims keys and values, splits "key=value" / "key:value" keys,
// fills bare keys with "true", drops empty keys and removes duplicate
// signatures. Order of first appearance is kept.
func Sanitize(in []types.RewardFlag) []types.RewardFlag {
	var out []types.RewardFlag
	seen := map[string]bool{}
	for _, raw := range in {
		f, ok := normalize(raw)
		if !ok {
			continue
		}
		sig := signature(f)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, f)
	}
	return out
}

// ParseFlag parses a bare flag string. The first ':' or '=' separates key
// from value. Returns false if the key is empty.
func ParseFlag(s string) (types.RewardFlag, bool) {
	return normalize(types.RewardFlag{Key: s})
}

// Matches reports whether the flag store satisfies f: the key must be
// present and, when want is non-empty, hold exactly that value.
func Matches(store map[string]string, key, want string) bool {
	got, ok := store[key]
	if !ok {
		return false
	}
	return want == "" || got == want
}

func normalize(f types.RewardFlag) (types.RewardFlag, bool) {
	key := strings.TrimSpace(f.Key)
	value := strings.TrimSpace(f.Value)
	if value == "" {
		if i := strings.IndexAny(key, ":="); i >= 0 {
			value = strings.TrimSpace(key[i+1:])
			key = strings.TrimSpace(key[:i])
		}
	}
	if key == "" {
		return types.RewardFlag{}, false
	}
	if value == "" {
		value = DefaultValue
	}
	return types.RewardFlag{Key: key, Value: value}, true
}

func signature(f types.RewardFlag) string {
	return f.Key + "\x00" + f.Value
}
