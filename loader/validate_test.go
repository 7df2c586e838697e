package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/types"
)

func TestCheckDocument_Valid(t *testing.T) {
	ve := &corpus.ValidationError{}
	doc := &Document{
		Quests: []types.QuestDefinition{{ID: "a"}},
		Mail:   []types.MailDefinition{{ID: "m"}},
	}
	checkDocument("a.yaml", doc, ve)
	if len(ve.Errors) != 0 {
		t.Errorf("expected no errors, got %v", ve.Errors)
	}
}

func TestCheckDocument_MissingIDs(t *testing.T) {
	ve := &corpus.ValidationError{}
	doc := &Document{
		Quests: []types.QuestDefinition{{ID: "a"}, {ID: "  "}},
		Mail:   []types.MailDefinition{{}},
	}
	checkDocument("c.json", doc, ve)

	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", ve.Errors)
	}
	if !strings.Contains(ve.Errors[0], "c.json: quest #2 has no id") {
		t.Errorf("unexpected error %q", ve.Errors[0])
	}
	if !strings.Contains(ve.Errors[1], "c.json: mail #1 has no id") {
		t.Errorf("unexpected error %q", ve.Errors[1])
	}
}
