// Package events implements the lifecycle dispatch pass: after intents are
// applied, newly eligible quests are offered, intro mail is delivered and
// the mail conditioner reacts to the emitted lifecycle events.
//
// Dispatch does not recurse. The engine calls it again with the events
// produced by its intents until nothing new happens.
package events

import (
	"strings"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine/mail"
	"github.com/nathoo/netquest/engine/progress"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// Mail reasons produced by dispatch.
const (
	ReasonIntro = "intro"
)

// Context carries what the pass needs besides the player state.
type Context struct {
	Corpus        *corpus.Corpus
	IncludeDrafts bool
	AutoAccept    bool

	// Before is the flag store as it was when the evaluation started.
	Before map[string]string
}

type pass struct {
	ctx      Context
	s        *types.PlayerState
	gate     rules.Gate
	tr       mail.Transition
	out      []types.Intent
	mail     map[string]bool
	accepted map[string]bool
}

// Dispatch returns the intents triggered by the given lifecycle events on
// the current state. The state is read, never written.
func Dispatch(events []types.LifecycleEvent, s *types.PlayerState, ctx Context) []types.Intent {
	if ctx.Corpus == nil {
		return nil
	}
	p := &pass{
		ctx: ctx,
		s:   s,
		gate: rules.Gate{
			Completed:      state.CompletedSet(s),
			Flags:          s.Flags,
			TerminalOpened: s.TerminalOpened,
			IncludeDrafts:  ctx.IncludeDrafts,
		},
		tr:       mail.Transition{Before: ctx.Before, After: s.Flags},
		mail:     map[string]bool{},
		accepted: map[string]bool{},
	}

	p.offer()
	for _, ev := range events {
		switch ev.Type {
		case types.LifecycleOffered:
			p.onOffered(ev.QuestID)
		case types.LifecycleMail:
			p.onMail(ev.MailID)
		}
		p.condition(ev)
	}
	return p.out
}

// offer marks every quest that just became eligible as offered. Offered is
// an edge: a quest is reported once.
func (p *pass) offer() {
	for _, q := range p.ctx.Corpus.Quests() {
		if p.s.Offered[q.ID] {
			continue
		}
		if rules.Eligible(q, state.Status(p.s, q.ID), p.gate) {
			p.out = append(p.out, types.Intent{Type: types.IntentOfferQuest, QuestID: q.ID})
		}
	}
}

func (p *pass) onOffered(questID string) {
	q := p.ctx.Corpus.Quest(questID)
	if q == nil {
		return
	}
	intro := strings.TrimSpace(q.IntroEmailID)
	if intro != "" && q.IntroMailDelivery == nil {
		p.deliver(q.ID, intro, ReasonIntro)
	}
	if intro != "" && state.HasMail(p.s, intro) && mail.IntroStartsQuest(q) {
		p.accept(q)
	}
	if p.ctx.AutoAccept {
		p.accept(q)
	}
}

// onMail accepts quests whose intro mail just arrived, if they are already
// offered and start on intro.
func (p *pass) onMail(mailID string) {
	for _, id := range p.ctx.Corpus.IntroQuests(mailID) {
		q := p.ctx.Corpus.Quest(id)
		if q == nil || !mail.IntroStartsQuest(q) || !p.s.Offered[id] {
			continue
		}
		p.accept(q)
	}
}

// condition runs the mail conditioner for one lifecycle event over every
// mail delivery rule and every quest intro delivery rule.
func (p *pass) condition(ev types.LifecycleEvent) {
	for _, m := range p.ctx.Corpus.Mails() {
		if m.Delivery != nil && mail.ShouldDeliver(m.Delivery, ev, p.tr) {
			p.deliver(m.QuestID, m.ID, mail.NormalizeCondition(m.Delivery.Condition))
		}
	}
	for _, q := range p.ctx.Corpus.Quests() {
		intro := strings.TrimSpace(q.IntroEmailID)
		if intro == "" || q.IntroMailDelivery == nil {
			continue
		}
		if mail.ShouldDeliver(q.IntroMailDelivery, ev, p.tr) {
			p.deliver(q.ID, intro, ReasonIntro)
		}
	}
}

func (p *pass) deliver(questID, mailID, reason string) {
	if mailID == "" || p.mail[mailID] || state.HasMail(p.s, mailID) {
		return
	}
	p.mail[mailID] = true
	p.out = append(p.out, types.Intent{Type: types.IntentDeliverMail, QuestID: questID, MailID: mailID, Reason: reason})
}

func (p *pass) accept(q *types.QuestDefinition) {
	if p.accepted[q.ID] {
		return
	}
	intents, anomaly := progress.Accept(q, p.s, p.gate)
	if anomaly != "" {
		return
	}
	p.accepted[q.ID] = true
	p.out = append(p.out, intents...)
}
