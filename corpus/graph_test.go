package corpus

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/nathoo/netquest/types"
)

func chainCorpus() *Corpus {
	q := func(id string, trig *types.Trigger, cf string) types.QuestDefinition {
		return types.QuestDefinition{ID: id, Title: id, Description: id, Trigger: trig, CompletionFlag: cf}
	}
	return New([]types.QuestDefinition{
		q("intro", nil, ""),
		q("scan", &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"intro"}}, ""),
		q("breach", &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "quest_completed_scan"}, ""),
		q("alt", &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"intro", "scan"}}, "quest_completed_scan"),
		q("root", &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "access", FlagValue: "root"}, ""),
	}, nil)
}

func TestRelationships(t *testing.T) {
	g := Build(chainCorpus())

	tests := []struct {
		id   string
		want Relationships
	}{
		{"intro", Relationships{Previous: []string{}, Next: []string{"alt", "scan"}, Shared: []string{}}},
		{"scan", Relationships{Previous: []string{"intro"}, Next: []string{"alt", "breach"}, Shared: []string{"alt"}}},
		{"breach", Relationships{Previous: []string{"alt", "scan"}, Next: []string{}, Shared: []string{}}},
		{"alt", Relationships{Previous: []string{"intro", "scan"}, Next: []string{"breach"}, Shared: []string{"scan"}}},
		{"root", Relationships{Previous: []string{}, Next: []string{}, Shared: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := g.Relationships(tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Relationships(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestEmitters_ValueFilter(t *testing.T) {
	c := New([]types.QuestDefinition{
		{ID: "a", Rewards: types.Rewards{Flags: []types.RewardFlag{{Key: "access", Value: "root"}}}},
		{ID: "b", Rewards: types.Rewards{Flags: []types.RewardFlag{{Key: "access=guest"}}}},
	}, nil)
	g := Build(c)

	if got := g.Emitters("access", ""); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("any value: got %v", got)
	}
	if got := g.Emitters("access", "root"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("root: got %v", got)
	}
	if got := g.Emitters("missing", ""); len(got) != 0 {
		t.Errorf("missing: got %v", got)
	}
}

func TestBuild_LargeCorpusIsLinear(t *testing.T) {
	var quests []types.QuestDefinition
	for i := 0; i < 500; i++ {
		q := types.QuestDefinition{ID: fmt.Sprintf("q%d", i)}
		if i > 0 {
			q.Trigger = &types.Trigger{Type: types.TriggerFlagSet, FlagKey: fmt.Sprintf("quest_completed_q%d", i-1)}
		}
		quests = append(quests, q)
	}
	g := Build(New(quests, nil))

	if got := g.Next("q10"); !reflect.DeepEqual(got, []string{"q11"}) {
		t.Errorf("expected q10 -> q11, got %v", got)
	}
	if got := g.Previous("q499"); !reflect.DeepEqual(got, []string{"q498"}) {
		t.Errorf("expected q498 -> q499, got %v", got)
	}
	if g.Cycle("q250") != nil {
		t.Error("chain has no cycles")
	}
}

func TestCycle(t *testing.T) {
	c := New([]types.QuestDefinition{
		{ID: "a", Trigger: &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"c"}}},
		{ID: "b", Trigger: &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"a"}}},
		{ID: "c", Trigger: &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"b"}}},
		{ID: "self", Trigger: &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"self"}}},
	}, nil)
	g := Build(c)

	if got := g.Cycle("b"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected cycle [a b c], got %v", got)
	}
	if got := g.Cycle("self"); got != nil {
		t.Errorf("self-dependency is not a cycle, got %v", got)
	}
}
