package flags

import (
	"fmt"
	"testing"

	"github.com/nathoo/netquest/types"
)

func TestResolveCompletionFlagID(t *testing.T) {
	tests := []struct {
		name string
		q    types.QuestDefinition
		want string
	}{
		{"default", types.QuestDefinition{ID: "q1"}, "quest_completed_q1"},
		{"override", types.QuestDefinition{ID: "q1", CompletionFlag: "breach_done"}, "breach_done"},
		{"override trimmed", types.QuestDefinition{ID: "q1", CompletionFlag: "  breach_done \t"}, "breach_done"},
		{"blank override falls back", types.QuestDefinition{ID: "q1", CompletionFlag: "   "}, "quest_completed_q1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCompletionFlagID(&tt.q)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if again := ResolveCompletionFlagID(&tt.q); again != got {
				t.Errorf("not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestEmittedFlags_CompletionFlagFirst(t *testing.T) {
	q := &types.QuestDefinition{
		ID: "q1",
		Rewards: types.Rewards{Flags: []types.RewardFlag{
			{Key: "access_level", Value: "2"},
			{Key: "met_ghost"},
		}},
	}
	got := EmittedFlags(q)
	want := []types.RewardFlag{
		{Key: "quest_completed_q1", Value: "true"},
		{Key: "access_level", Value: "2"},
		{Key: "met_ghost", Value: "true"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flag %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmittedFlags_NoDuplicateSignatures(t *testing.T) {
	q := &types.QuestDefinition{
		ID: "q1",
		Rewards: types.Rewards{Flags: []types.RewardFlag{
			{Key: "quest_completed_q1"},
			{Key: "tier", Value: "1"},
			{Key: " tier ", Value: "1"},
			{Key: "tier=1"},
			{Key: "tier:2"},
		}},
	}
	got := EmittedFlags(q)
	seen := map[types.RewardFlag]bool{}
	for _, f := range got {
		if seen[f] {
			t.Fatalf("duplicate signature %v in %v", f, got)
		}
		seen[f] = true
	}
	if len(got) != 3 {
		t.Errorf("expected 3 flags (completion, tier=1, tier=2), got %v", got)
	}
}

func TestEmittedFlags_Cap(t *testing.T) {
	for _, n := range []int{0, 10, 24, 25, 26, 100} {
		q := &types.QuestDefinition{ID: "q"}
		for i := 0; i < n; i++ {
			q.Rewards.Flags = append(q.Rewards.Flags, types.RewardFlag{Key: fmt.Sprintf("f%d", i)})
		}
		got := EmittedFlags(q)
		want := n + 1
		if want > MaxEmitted {
			want = MaxEmitted
		}
		if len(got) != want {
			t.Errorf("n=%d: got %d flags, want %d", n, len(got), want)
		}
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in     string
		want   types.RewardFlag
		wantOK bool
	}{
		{"door_open", types.RewardFlag{Key: "door_open", Value: "true"}, true},
		{"level=3", types.RewardFlag{Key: "level", Value: "3"}, true},
		{"level:3", types.RewardFlag{Key: "level", Value: "3"}, true},
		{"url=http://x", types.RewardFlag{Key: "url", Value: "http://x"}, true},
		{"a:b=c", types.RewardFlag{Key: "a", Value: "b=c"}, true},
		{" spaced = value ", types.RewardFlag{Key: "spaced", Value: "value"}, true},
		{"", types.RewardFlag{}, false},
		{"=value", types.RewardFlag{}, false},
		{"   ", types.RewardFlag{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseFlag(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseFlag(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSanitize_DropsEmptyKeys(t *testing.T) {
	got := Sanitize([]types.RewardFlag{{Key: ""}, {Key: "  "}, {Key: "ok"}})
	if len(got) != 1 || got[0].Key != "ok" {
		t.Errorf("got %v", got)
	}
}

func TestMatches(t *testing.T) {
	store := map[string]string{"a": "true", "b": "2"}
	if !Matches(store, "a", "") {
		t.Error("present key with no wanted value should match")
	}
	if !Matches(store, "b", "2") {
		t.Error("exact value should match")
	}
	if Matches(store, "b", "3") {
		t.Error("different value should not match")
	}
	if Matches(store, "c", "") {
		t.Error("missing key should not match")
	}
}
