package progress

import (
	"strings"
	"testing"

	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

func boolPtr(b bool) *bool { return &b }

func threeStepQuest() *types.QuestDefinition {
	return &types.QuestDefinition{
		ID:    "breach",
		Title: "Breach",
		Steps: []types.QuestStep{
			{ID: "scan", Type: types.StepScanHost, Params: types.StepParams{TargetIP: "10.0.0.1"}},
			{ID: "connect", Type: types.StepConnectHost, Params: types.StepParams{TargetIP: "10.0.0.1"}},
			{ID: "wipe", Type: types.StepDeleteFile, Params: types.StepParams{TargetIP: "10.0.0.1", FilePath: "/var/log/auth.log"}},
		},
		Rewards: types.Rewards{Credits: 150, UnlocksCommands: []string{"nmap"}},
		Mail: types.QuestMail{
			BriefingMailID:        "breach_brief",
			CompletionMailID:      "breach_done",
			AutoDeliverOnAccept:   []string{"breach_tools"},
			AutoDeliverOnComplete: []string{"breach_bonus"},
		},
	}
}

func active(q *types.QuestDefinition, idx int, awaiting bool) *types.PlayerState {
	s := state.NewState("p1")
	s.Statuses[q.ID] = types.QuestInProgress
	s.Progress[q.ID] = types.QuestProgress{StepIndex: idx, AwaitingConfirm: awaiting}
	return s
}

func intentTypes(in []types.Intent) []string {
	var out []string
	for _, i := range in {
		out = append(out, i.Type)
	}
	return out
}

func hasIntent(in []types.Intent, typ, mailID string) bool {
	for _, i := range in {
		if i.Type == typ && (mailID == "" || i.MailID == mailID) {
			return true
		}
	}
	return false
}

func TestAccept(t *testing.T) {
	q := threeStepQuest()
	s := state.NewState("p1")

	intents, anomaly := Accept(q, s, rules.Gate{TerminalOpened: true})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if intents[0].Type != types.IntentAcceptQuest {
		t.Errorf("expected accept intent first, got %v", intentTypes(intents))
	}
	if !hasIntent(intents, types.IntentDeliverMail, "breach_brief") {
		t.Error("expected briefing mail")
	}
	if !hasIntent(intents, types.IntentDeliverMail, "breach_tools") {
		t.Error("expected auto-deliver-on-accept mail")
	}
	if hasIntent(intents, types.IntentCompleteQuest, "") {
		t.Error("quest with steps must not complete on accept")
	}
}

func TestAutoDeliverSkipsDeliveredAndDuplicateMail(t *testing.T) {
	q := threeStepQuest()
	q.Mail.AutoDeliverOnAccept = []string{"breach_tools", "breach_map", " "}
	q.Mail.AutoDeliverOnComplete = []string{"breach_bonus", "breach_bonus"}
	s := state.NewState("p1")
	s.Mailbox = []string{"breach_tools"}

	intents, _ := Accept(q, s, rules.Gate{TerminalOpened: true})
	if hasIntent(intents, types.IntentDeliverMail, "breach_tools") {
		t.Error("mail already in the mailbox should not be delivered again")
	}
	if !hasIntent(intents, types.IntentDeliverMail, "breach_map") {
		t.Error("expected breach_map on accept")
	}

	n := 0
	for _, in := range Complete(q) {
		if in.Type == types.IntentDeliverMail && in.MailID == "breach_bonus" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("breach_bonus delivered %d times, want 1", n)
	}
}

func TestAccept_Rejections(t *testing.T) {
	q := threeStepQuest()
	gate := rules.Gate{TerminalOpened: true}

	tests := []struct {
		name   string
		q      *types.QuestDefinition
		status types.QuestStatus
		gate   rules.Gate
		want   string
	}{
		{"unknown quest", nil, types.QuestNotStarted, gate, "unknown quest"},
		{"in progress", q, types.QuestInProgress, gate, "already in progress"},
		{"completed", q, types.QuestCompleted, gate, "already completed"},
		{"trigger not satisfied", q, types.QuestNotStarted, rules.Gate{}, "not eligible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.NewState("p1")
			if tt.q != nil {
				s.Statuses[tt.q.ID] = tt.status
			}
			intents, anomaly := Accept(tt.q, s, tt.gate)
			if len(intents) != 0 {
				t.Errorf("expected no intents, got %v", intentTypes(intents))
			}
			if !strings.Contains(anomaly, tt.want) {
				t.Errorf("anomaly %q does not contain %q", anomaly, tt.want)
			}
		})
	}
}

func TestAccept_ZeroStepsCompletesImmediately(t *testing.T) {
	q := &types.QuestDefinition{ID: "lore", Title: "Lore"}
	intents, anomaly := Accept(q, state.NewState("p1"), rules.Gate{TerminalOpened: true})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if !hasIntent(intents, types.IntentCompleteQuest, "") {
		t.Errorf("expected completion, got %v", intentTypes(intents))
	}
}

func TestStep_AutoAdvance(t *testing.T) {
	q := threeStepQuest()
	s := active(q, 0, false)

	intents, anomaly := Step(q, s, types.Event{Type: types.EventStepCompleted, StepType: types.StepScanHost, TargetIP: "10.0.0.1"})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if len(intents) != 1 || intents[0].Type != types.IntentAdvanceStep || intents[0].StepIndex != 1 {
		t.Errorf("expected advance to 1, got %+v", intents)
	}
}

func TestStep_LastStepCompletes(t *testing.T) {
	q := threeStepQuest()
	s := active(q, 2, false)

	intents, anomaly := Step(q, s, types.Event{
		Type:     types.EventStepCompleted,
		StepType: types.StepDeleteFile,
		TargetIP: "10.0.0.1",
		FilePath: "/var/log/auth.log",
	})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	want := []string{
		types.IntentCompleteQuest,
		types.IntentMergeFlags,
		types.IntentGrantReward,
		types.IntentDeliverMail,
		types.IntentDeliverMail,
	}
	got := intentTypes(intents)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if intents[1].Flags[0].Key != "quest_completed_breach" {
		t.Errorf("expected completion flag first, got %v", intents[1].Flags)
	}
	if intents[2].Credits != 150 || intents[2].Commands[0] != "nmap" {
		t.Errorf("unexpected reward %+v", intents[2])
	}
}

func TestStep_SingleScanCompletes(t *testing.T) {
	q := &types.QuestDefinition{
		ID:    "q1",
		Steps: []types.QuestStep{{ID: "s", Type: types.StepScanHost, Params: types.StepParams{TargetIP: "10.0.0.1"}}},
	}
	intents, anomaly := Step(q, active(q, 0, false), types.Event{Type: types.EventStepCompleted, StepType: types.StepScanHost, TargetIP: "10.0.0.1"})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if !hasIntent(intents, types.IntentCompleteQuest, "") {
		t.Errorf("expected completion, got %v", intentTypes(intents))
	}
}

func TestStep_StaleEventIgnored(t *testing.T) {
	q := threeStepQuest()
	s := active(q, 0, false)
	before := state.Clone(s)

	// Event for step index 2 while the machine is at index 0.
	ev := types.Event{
		Type:     types.EventStepCompleted,
		StepID:   "wipe",
		StepType: types.StepDeleteFile,
		TargetIP: "10.0.0.1",
		FilePath: "/var/log/auth.log",
	}
	intents, anomaly := Step(q, s, ev)
	if len(intents) != 0 {
		t.Errorf("expected no intents, got %v", intentTypes(intents))
	}
	if anomaly == "" {
		t.Error("expected an anomaly")
	}
	if s.Progress[q.ID] != before.Progress[q.ID] || s.Statuses[q.ID] != before.Statuses[q.ID] {
		t.Error("state changed")
	}

	// Same event without a step id is still rejected by param matching.
	ev.StepID = ""
	if intents, _ := Step(q, s, ev); len(intents) != 0 {
		t.Errorf("expected no intents, got %v", intentTypes(intents))
	}
}

func TestStep_InactiveOrCompleted(t *testing.T) {
	q := threeStepQuest()
	ev := types.Event{Type: types.EventStepCompleted, StepType: types.StepScanHost, TargetIP: "10.0.0.1"}

	if _, anomaly := Step(q, state.NewState("p1"), ev); !strings.Contains(anomaly, "not active") {
		t.Errorf("unexpected anomaly %q", anomaly)
	}

	s := state.NewState("p1")
	s.Statuses[q.ID] = types.QuestCompleted
	if _, anomaly := Step(q, s, ev); !strings.Contains(anomaly, "already completed") {
		t.Errorf("unexpected anomaly %q", anomaly)
	}
}

func TestStep_ManualAdvanceNeedsConfirm(t *testing.T) {
	q := threeStepQuest()
	q.Steps[0].AutoAdvance = boolPtr(false)
	s := active(q, 0, false)

	ev := types.Event{Type: types.EventStepCompleted, StepType: types.StepScanHost, TargetIP: "10.0.0.1"}
	intents, anomaly := Step(q, s, ev)
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if len(intents) != 1 || intents[0].Type != types.IntentArmConfirm {
		t.Fatalf("expected arm confirm, got %v", intentTypes(intents))
	}

	armed := active(q, 0, true)
	if AwaitingStep(q, armed) != "scan" {
		t.Errorf("expected awaiting scan, got %q", AwaitingStep(q, armed))
	}

	// Wrong step id.
	if intents, anomaly := Confirm(q, armed, types.Event{Type: types.EventStepConfirmed, StepID: "connect"}); len(intents) != 0 || anomaly == "" {
		t.Error("confirm with wrong step id should be dropped")
	}

	intents, anomaly = Confirm(q, armed, types.Event{Type: types.EventStepConfirmed, StepID: "scan"})
	if anomaly != "" {
		t.Fatalf("unexpected anomaly: %s", anomaly)
	}
	if len(intents) != 1 || intents[0].Type != types.IntentAdvanceStep || intents[0].StepIndex != 1 {
		t.Errorf("expected advance to 1, got %+v", intents)
	}
}

func TestConfirm_WithoutArm(t *testing.T) {
	q := threeStepQuest()
	_, anomaly := Confirm(q, active(q, 0, false), types.Event{Type: types.EventStepConfirmed, StepID: "scan"})
	if !strings.Contains(anomaly, "nothing to confirm") {
		t.Errorf("unexpected anomaly %q", anomaly)
	}
}

func TestStep_UnsupportedLastStepStays(t *testing.T) {
	q := &types.QuestDefinition{
		ID:    "odd",
		Steps: []types.QuestStep{{ID: "ping", Type: "PING_HOST"}},
	}
	intents, anomaly := Step(q, active(q, 0, false), types.Event{Type: types.EventStepCompleted, StepType: "PING_HOST"})
	if len(intents) != 0 {
		t.Errorf("expected no intents, got %v", intentTypes(intents))
	}
	if !strings.Contains(anomaly, "cannot complete") {
		t.Errorf("unexpected anomaly %q", anomaly)
	}
}

func TestMatches(t *testing.T) {
	q := threeStepQuest()
	ev := types.Event{Type: types.EventStepCompleted, StepType: types.StepScanHost, TargetIP: "10.0.0.1"}
	if !Matches(q, active(q, 0, false), ev) {
		t.Error("expected match on active step")
	}
	if Matches(q, active(q, 1, false), ev) {
		t.Error("did not expect match on a later step")
	}
	if Matches(q, active(q, 0, true), ev) {
		t.Error("did not expect match while awaiting confirmation")
	}
}
