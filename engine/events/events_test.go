package events

import (
	"testing"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

func testCorpus() *corpus.Corpus {
	return corpus.New([]types.QuestDefinition{
		{
			ID:           "intro",
			Title:        "Intro",
			IntroEmailID: "welcome",
			Steps:        []types.QuestStep{{ID: "s", Type: types.StepScanHost}},
		},
		{
			ID:                     "lore",
			Title:                  "Lore",
			Trigger:                &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "vpn"},
			IntroEmailID:           "rumor",
			IntroMailStartBehavior: types.IntroLoreOnly,
			Steps:                  []types.QuestStep{{ID: "s", Type: types.StepScanHost}},
		},
		{
			ID:      "draft",
			Status:  types.StatusDraft,
			Trigger: &types.Trigger{Type: types.TriggerFlagSet, FlagKey: "vpn"},
		},
	}, []types.MailDefinition{
		{ID: "welcome"},
		{ID: "rumor"},
		{ID: "boot", Delivery: &types.MailDelivery{Condition: types.DeliverGameStart}},
		{ID: "congrats", Delivery: &types.MailDelivery{Condition: types.DeliverAfterQuest, QuestID: "intro"}},
		{ID: "vpn_up", Delivery: &types.MailDelivery{Condition: types.DeliverFlagSet, FlagKey: "vpn"}},
		{ID: "ops", Delivery: &types.MailDelivery{Condition: types.DeliverManual}},
	})
}

func find(intents []types.Intent, typ, id string) bool {
	for _, in := range intents {
		if in.Type != typ {
			continue
		}
		if in.QuestID == id || in.MailID == id {
			return true
		}
	}
	return false
}

func TestDispatch_OffersEligibleQuests(t *testing.T) {
	s := state.NewState("p1")
	ctx := Context{Corpus: testCorpus(), Before: map[string]string{}}

	if got := Dispatch(nil, s, ctx); find(got, types.IntentOfferQuest, "intro") {
		t.Error("intro offered before the terminal opened")
	}

	s.TerminalOpened = true
	got := Dispatch(nil, s, ctx)
	if !find(got, types.IntentOfferQuest, "intro") {
		t.Errorf("expected intro offered, got %+v", got)
	}
	if find(got, types.IntentOfferQuest, "lore") {
		t.Error("lore offered without its flag")
	}

	s.Offered["intro"] = true
	if got := Dispatch(nil, s, ctx); find(got, types.IntentOfferQuest, "intro") {
		t.Error("intro offered twice")
	}
}

func TestDispatch_DraftsOnlyWhenIncluded(t *testing.T) {
	s := state.NewState("p1")
	s.Flags["vpn"] = "true"

	got := Dispatch(nil, s, Context{Corpus: testCorpus()})
	if find(got, types.IntentOfferQuest, "draft") {
		t.Error("draft offered in strict mode")
	}
	got = Dispatch(nil, s, Context{Corpus: testCorpus(), IncludeDrafts: true})
	if !find(got, types.IntentOfferQuest, "draft") {
		t.Error("draft not offered with drafts included")
	}
}

func TestDispatch_IntroMailOnOffer(t *testing.T) {
	s := state.NewState("p1")
	s.TerminalOpened = true
	s.Offered["intro"] = true

	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleOffered, QuestID: "intro"}}, s, Context{Corpus: testCorpus()})
	if !find(got, types.IntentDeliverMail, "welcome") {
		t.Errorf("expected intro mail, got %+v", got)
	}
	if find(got, types.IntentAcceptQuest, "intro") {
		t.Error("quest accepted before intro mail was in the mailbox")
	}
}

func TestDispatch_IntroMailStartsQuest(t *testing.T) {
	s := state.NewState("p1")
	s.TerminalOpened = true
	s.Offered["intro"] = true
	s.Mailbox = []string{"welcome"}

	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleMail, MailID: "welcome"}}, s, Context{Corpus: testCorpus()})
	if !find(got, types.IntentAcceptQuest, "intro") {
		t.Errorf("expected intro accepted, got %+v", got)
	}
}

func TestDispatch_LoreOnlyIntroDoesNotStart(t *testing.T) {
	s := state.NewState("p1")
	s.Flags["vpn"] = "true"
	s.Offered["lore"] = true
	s.Mailbox = []string{"rumor"}

	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleMail, MailID: "rumor"}}, s, Context{Corpus: testCorpus()})
	if find(got, types.IntentAcceptQuest, "lore") {
		t.Error("loreOnly intro accepted its quest")
	}
}

func TestDispatch_AutoAccept(t *testing.T) {
	s := state.NewState("p1")
	s.TerminalOpened = true
	s.Offered["intro"] = true

	ctx := Context{Corpus: testCorpus(), AutoAccept: true}
	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleOffered, QuestID: "intro"}}, s, ctx)

	accepts := 0
	for _, in := range got {
		if in.Type == types.IntentAcceptQuest {
			accepts++
		}
	}
	if accepts != 1 {
		t.Errorf("expected one accept, got %d in %+v", accepts, got)
	}
}

func TestDispatch_MailConditions(t *testing.T) {
	c := testCorpus()

	tests := []struct {
		name   string
		ev     types.LifecycleEvent
		before map[string]string
		after  map[string]string
		want   string
		not    []string
	}{
		{
			name: "game start",
			ev:   types.LifecycleEvent{Type: types.LifecycleGameStart},
			want: "boot",
			not:  []string{"congrats", "vpn_up", "ops"},
		},
		{
			name: "after quest",
			ev:   types.LifecycleEvent{Type: types.LifecycleComplete, QuestID: "intro"},
			want: "congrats",
			not:  []string{"boot", "ops"},
		},
		{
			name:   "flag edge",
			ev:     types.LifecycleEvent{Type: types.LifecycleFlagChanged, FlagKey: "vpn"},
			before: map[string]string{},
			after:  map[string]string{"vpn": "true"},
			want:   "vpn_up",
			not:    []string{"ops"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.NewState("p1")
			for k, v := range tt.after {
				s.Flags[k] = v
			}
			ctx := Context{Corpus: c, Before: tt.before}
			got := Dispatch([]types.LifecycleEvent{tt.ev}, s, ctx)
			if !find(got, types.IntentDeliverMail, tt.want) {
				t.Errorf("expected %s delivered, got %+v", tt.want, got)
			}
			for _, id := range tt.not {
				if find(got, types.IntentDeliverMail, id) {
					t.Errorf("did not expect %s", id)
				}
			}
		})
	}
}

func TestDispatch_FlagHeldIsNotAnEdge(t *testing.T) {
	s := state.NewState("p1")
	s.Flags["vpn"] = "true"
	ctx := Context{Corpus: testCorpus(), Before: map[string]string{"vpn": "true"}}

	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleFlagChanged, FlagKey: "other"}}, s, ctx)
	if find(got, types.IntentDeliverMail, "vpn_up") {
		t.Error("flag_set mail delivered while the flag was already held")
	}
}

func TestDispatch_DeliveredMailNotRepeated(t *testing.T) {
	s := state.NewState("p1")
	s.Mailbox = []string{"boot"}
	got := Dispatch([]types.LifecycleEvent{{Type: types.LifecycleGameStart}}, s, Context{Corpus: testCorpus()})
	if find(got, types.IntentDeliverMail, "boot") {
		t.Error("mail delivered twice")
	}
}
