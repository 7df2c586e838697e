package corpus

import (
	"strings"
	"testing"

	"github.com/nathoo/netquest/types"
)

// validQuest returns a quest with every required field present.
func validQuest() types.QuestDefinition {
	return types.QuestDefinition{
		ID:              "q1",
		Title:           "First Contact",
		Description:     "Scan the relay.",
		Status:          types.StatusPublished,
		Trigger:         &types.Trigger{Type: types.TriggerFirstTerminalOpen},
		DefaultSystemID: "relay",
		Steps: []types.QuestStep{
			{ID: "scan", Type: types.StepScanHost, Params: types.StepParams{TargetIP: "10.0.0.1"}},
		},
		Mail: types.QuestMail{BriefingMailID: "brief"},
	}
}

func validCorpus() *Corpus {
	return New(
		[]types.QuestDefinition{validQuest()},
		[]types.MailDefinition{{ID: "brief", Subject: "Hello"}},
	)
}

func assertContains(t *testing.T, list []string, substr string) {
	t.Helper()
	for _, s := range list {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected an entry containing %q, got %v", substr, list)
}

func assertNotContains(t *testing.T, list []string, substr string) {
	t.Helper()
	for _, s := range list {
		if strings.Contains(s, substr) {
			t.Errorf("did not expect an entry containing %q, got %q", substr, s)
		}
	}
}

func TestValidate_ValidQuest(t *testing.T) {
	r := ValidateAll(validCorpus())
	if !r.OK() {
		t.Fatalf("expected no errors, got: %v", r.Errors)
	}
	if r.Err() != nil {
		t.Fatal("expected nil error")
	}
}

func TestValidate_RoundTripOneNewError(t *testing.T) {
	tests := []struct {
		name   string
		remove func(q *types.QuestDefinition)
		want   string
	}{
		{"id", func(q *types.QuestDefinition) { q.ID = "" }, "missing id"},
		{"title", func(q *types.QuestDefinition) { q.Title = "" }, "missing title"},
		{"description", func(q *types.QuestDefinition) { q.Description = "" }, "missing description"},
		{"step id", func(q *types.QuestDefinition) { q.Steps[0].ID = "" }, "missing id"},
		{"target_ip", func(q *types.QuestDefinition) { q.Steps[0].Params.TargetIP = "" }, "target_ip"},
		{"system profile", func(q *types.QuestDefinition) { q.DefaultSystemID = "" }, "system profile"},
		{"steps", func(q *types.QuestDefinition) { q.Steps = nil }, "no steps"},
	}

	c := New(nil, []types.MailDefinition{{ID: "brief"}})
	base := validQuest()
	if r := Validate(&base, c); len(r.Errors) != 0 {
		t.Fatalf("baseline has errors: %v", r.Errors)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuest()
			q.Steps = append([]types.QuestStep(nil), q.Steps...)
			tt.remove(&q)
			r := Validate(&q, c)
			if len(r.Errors) != 1 {
				t.Fatalf("expected exactly one error, got %d: %v", len(r.Errors), r.Errors)
			}
			if !strings.Contains(r.Errors[0], tt.want) {
				t.Errorf("error %q does not name %q", r.Errors[0], tt.want)
			}
		})
	}
}

func TestValidate_NoStepsWarning(t *testing.T) {
	q := validQuest()
	q.Steps = []types.QuestStep{}
	q.Status = types.StatusDraft

	r := Validate(&q, validCorpus())
	assertContains(t, r.Warnings, "no steps")
	if !r.OK() {
		t.Errorf("draft quest with no steps should only warn, got errors %v", r.Errors)
	}
}

func TestValidate_ScanOnlyQuestHasNoCompletionWarning(t *testing.T) {
	r := ValidateAll(validCorpus())
	assertNotContains(t, r.Warnings, "completion-eligible")
}

func TestValidate_UnsupportedLastStep(t *testing.T) {
	q := validQuest()
	q.Steps = append(q.Steps, types.QuestStep{ID: "ping", Type: "PING_HOST"})

	r := Validate(&q, validCorpus())
	assertContains(t, r.Errors, "unsupported type")
	assertContains(t, r.Warnings, "not completion-eligible")
}

func TestValidate_SelfDependencyIsWarning(t *testing.T) {
	q := validQuest()
	q.Trigger = &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"q1"}}

	r := Validate(&q, validCorpus())
	assertContains(t, r.Warnings, "self-dependency")
	assertNotContains(t, r.Errors, "self")
}

func TestValidate_TriggerErrors(t *testing.T) {
	tests := []struct {
		name string
		trig *types.Trigger
		want string
	}{
		{"empty quest ids", &types.Trigger{Type: types.TriggerQuestCompletion}, "empty quest_ids"},
		{"unknown quest", &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"ghost"}}, `unknown quest "ghost"`},
		{"empty flag key", &types.Trigger{Type: types.TriggerFlagSet}, "empty flag_key"},
		{"unknown type", &types.Trigger{Type: "ON_REBOOT"}, "unknown trigger type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuest()
			q.ID = "q2"
			q.Trigger = tt.trig
			r := Validate(&q, validCorpus())
			assertContains(t, r.Errors, tt.want)
		})
	}
}

func TestValidate_StepErrors(t *testing.T) {
	q := validQuest()
	q.DefaultSystemID = ""
	q.Steps = []types.QuestStep{
		{ID: "a", Type: types.StepDeleteFile, TargetSystemID: "box", Params: types.StepParams{TargetIP: "10.0.0.2"}},
		{ID: "a", Type: types.StepDisconnectHost},
		{ID: "c", Type: types.StepConnectHost, Params: types.StepParams{TargetIP: "10.0.0.2"}},
	}

	r := Validate(&q, validCorpus())
	assertContains(t, r.Errors, "missing file_path")
	assertContains(t, r.Errors, `duplicate step id "a"`)
	assertContains(t, r.Errors, `step "c" (CONNECT_HOST) missing system profile`)
	if len(r.Errors) != 3 {
		t.Errorf("expected 3 errors, got %v", r.Errors)
	}
}

func TestValidate_ReferenceErrorsAllCollected(t *testing.T) {
	q := validQuest()
	q.Mail = types.QuestMail{
		BriefingMailID:        "nope1",
		CompletionMailID:      "nope2",
		AutoDeliverOnAccept:   []string{"nope3"},
		AutoDeliverOnComplete: []string{"brief", "nope4"},
		PreviewMailIDs:        []string{"nope5"},
	}
	q.IntroEmailID = "nope6"
	q.CompletionEmailID = "nope7"
	q.Requirements.RequiredQuests = []string{"ghost"}
	q.FollowUpQuestID = "phantom"
	q.Rewards.Flags = []types.RewardFlag{{Key: "  "}}

	r := Validate(&q, validCorpus())
	for i := 1; i <= 7; i++ {
		assertContains(t, r.Errors, `unknown mail "nope`+string(rune('0'+i))+`"`)
	}
	assertContains(t, r.Errors, `required_quests references unknown quest "ghost"`)
	assertContains(t, r.Errors, `followUpQuestId references unknown quest "phantom"`)
	assertContains(t, r.Errors, "reward flag 1 missing key")
	if len(r.Errors) != 10 {
		t.Errorf("expected 10 errors, got %d: %v", len(r.Errors), r.Errors)
	}
}

func TestValidate_IntroDelivery(t *testing.T) {
	q := validQuest()
	q.IntroMailStartBehavior = "startLater"
	q.IntroMailDelivery = &types.MailDelivery{Condition: "after_quest", QuestID: "ghost"}

	r := Validate(&q, validCorpus())
	assertContains(t, r.Errors, "invalid introMailStartBehavior")
	assertContains(t, r.Errors, `introMailDelivery references unknown quest "ghost"`)

	q.IntroMailStartBehavior = types.IntroLoreOnly
	q.IntroMailDelivery = &types.MailDelivery{Condition: "whenever"}
	r = Validate(&q, validCorpus())
	assertContains(t, r.Errors, "invalid condition")
}

func TestValidate_GraphWarnings(t *testing.T) {
	q1 := validQuest()
	q2 := validQuest()
	q2.ID = "q2"
	q2.Trigger = &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "quest_completed_q1"}
	q3 := validQuest()
	q3.ID = "q3"
	q3.Trigger = &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "never_set"}

	c := New([]types.QuestDefinition{q1, q2, q3}, []types.MailDefinition{{ID: "brief"}})
	r := ValidateAll(c)

	assertContains(t, r.Warnings, `quest "q3": ON_FLAG_SET flag "never_set" is never emitted`)
	assertContains(t, r.Warnings, `quest "q2": dead end`)
	assertNotContains(t, r.Warnings, `quest "q1": dead end`)
}

func TestValidate_CycleWarning(t *testing.T) {
	a := validQuest()
	a.ID = "a"
	a.Trigger = &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"b"}}
	b := validQuest()
	b.ID = "b"
	b.Trigger = &types.Trigger{Type: types.TriggerQuestCompletion, QuestIDs: []string{"a"}}

	r := ValidateAll(New([]types.QuestDefinition{a, b}, []types.MailDefinition{{ID: "brief"}}))
	assertContains(t, r.Warnings, "activation cycle a -> b")
	if !r.OK() {
		t.Errorf("cycles are warnings, got errors %v", r.Errors)
	}
}

func TestValidateAll_DuplicatesAndMail(t *testing.T) {
	q := validQuest()
	c := New(
		[]types.QuestDefinition{q, q},
		[]types.MailDefinition{
			{ID: "brief"},
			{ID: "brief"},
			{ID: "late", Delivery: &types.MailDelivery{Condition: "after_quest"}},
			{ID: "orphan", QuestID: "ghost"},
		},
	)
	r := ValidateAll(c)
	assertContains(t, r.Errors, `quest "q1": duplicate quest id`)
	assertContains(t, r.Errors, `mail "brief": duplicate mail id`)
	assertContains(t, r.Errors, `mail "late": delivery after_quest missing questId`)
	assertContains(t, r.Errors, `mail "orphan": questId references unknown quest "ghost"`)

	err := r.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if !strings.Contains(ve.Error(), "validation failed") {
		t.Errorf("unexpected message %q", ve.Error())
	}
}
