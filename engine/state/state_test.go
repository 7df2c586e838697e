package state

import (
	"testing"

	"github.com/nathoo/netquest/types"
)

func TestNewState_Empty(t *testing.T) {
	s := NewState("p1")

	if s.PlayerID != "p1" {
		t.Errorf("expected player p1, got %q", s.PlayerID)
	}
	if s.Flags == nil || s.Statuses == nil || s.Progress == nil || s.Offered == nil {
		t.Fatal("expected maps to be initialized")
	}
	if len(s.Mailbox) != 0 {
		t.Errorf("expected empty mailbox, got %v", s.Mailbox)
	}
	if s.GameStarted || s.TerminalOpened {
		t.Error("expected fresh state to have no session signals")
	}
}

func TestStatus_DefaultsToNotStarted(t *testing.T) {
	s := NewState("p1")
	if got := Status(s, "nope"); got != types.QuestNotStarted {
		t.Errorf("expected not_started, got %q", got)
	}
	s.Statuses["q1"] = types.QuestInProgress
	if got := Status(s, "q1"); got != types.QuestInProgress {
		t.Errorf("expected in_progress, got %q", got)
	}
}

func TestCompletedSet(t *testing.T) {
	s := NewState("p1")
	s.Statuses["a"] = types.QuestCompleted
	s.Statuses["b"] = types.QuestInProgress
	s.Statuses["c"] = types.QuestCompleted

	got := CompletedSet(s)
	if len(got) != 2 || !got["a"] || !got["c"] {
		t.Errorf("expected {a, c}, got %v", got)
	}
}

func TestActiveQuests_Sorted(t *testing.T) {
	s := NewState("p1")
	s.Statuses["zeta"] = types.QuestInProgress
	s.Statuses["alpha"] = types.QuestInProgress
	s.Statuses["done"] = types.QuestCompleted

	got := ActiveQuests(s)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("expected [alpha zeta], got %v", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState("p1")
	s.Flags["k"] = "v"
	s.Mailbox = append(s.Mailbox, "m1")
	s.Statuses["q"] = types.QuestInProgress
	s.Progress["q"] = types.QuestProgress{StepIndex: 1}

	c := Clone(s)
	c.Flags["k"] = "changed"
	c.Mailbox[0] = "m2"
	c.Statuses["q"] = types.QuestCompleted
	c.Progress["q"] = types.QuestProgress{StepIndex: 2}

	if s.Flags["k"] != "v" {
		t.Error("clone shares flags with original")
	}
	if s.Mailbox[0] != "m1" {
		t.Error("clone shares mailbox with original")
	}
	if s.Statuses["q"] != types.QuestInProgress {
		t.Error("clone shares statuses with original")
	}
	if s.Progress["q"].StepIndex != 1 {
		t.Error("clone shares progress with original")
	}
}

func TestHasMail(t *testing.T) {
	s := NewState("p1")
	s.Mailbox = []string{"welcome"}
	if !HasMail(s, "welcome") {
		t.Error("expected welcome in mailbox")
	}
	if HasMail(s, "other") {
		t.Error("did not expect other in mailbox")
	}
}

func TestEnsure_FillsNilMaps(t *testing.T) {
	s := &types.PlayerState{PlayerID: "p1"}
	Ensure(s)
	s.Flags["k"] = "v"
	s.Offered["q"] = true
	if s.Mailbox == nil || s.UnlockedCommands == nil {
		t.Error("expected slices to be initialized")
	}
}

func TestActiveStep(t *testing.T) {
	s := NewState("p1")
	if _, ok := ActiveStep(s, "q"); ok {
		t.Error("inactive quest should have no active step")
	}
	s.Statuses["q"] = types.QuestInProgress
	s.Progress["q"] = types.QuestProgress{StepIndex: 3, AwaitingConfirm: true}
	p, ok := ActiveStep(s, "q")
	if !ok || p.StepIndex != 3 || !p.AwaitingConfirm {
		t.Errorf("unexpected progress %+v", p)
	}
}
