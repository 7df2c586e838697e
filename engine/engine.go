// Package engine provides the Evaluate reducer that wires together step
// progression, effects, activation and mail delivery into a single
// evaluation of one runtime event, plus per-player sessions on top of it.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine/effects"
	"github.com/nathoo/netquest/engine/events"
	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/engine/progress"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// Options tune player-facing activation.
type Options struct {
	// IncludeDrafts offers draft quests. Off in strict deployments.
	IncludeDrafts bool
	// AutoAccept accepts every quest as soon as it is offered.
	AutoAccept bool
}

// Engine evaluates runtime events against an immutable corpus snapshot.
// It holds no player state and is safe for concurrent use.
type Engine struct {
	corpus *corpus.Corpus
	opts   Options
	log    *slog.Logger
}

// New creates an engine over a corpus snapshot. A nil logger discards.
func New(c *corpus.Corpus, opts Options, log *slog.Logger) *Engine {
	if c == nil {
		c = corpus.New(nil, nil)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{corpus: c, opts: opts, log: log}
}

// Corpus returns the snapshot the engine evaluates against.
func (e *Engine) Corpus() *corpus.Corpus { return e.corpus }

// Options returns the engine options.
func (e *Engine) Options() Options { return e.opts }

// Evaluate applies one event to a copy of st and returns the next state and
// what happened. st is never modified. Stale, unknown or out-of-order
// events are reported as anomalies and leave the state unchanged.
func (e *Engine) Evaluate(st *types.PlayerState, ev types.Event) (*types.PlayerState, types.Result) {
	var result types.Result

	next := state.Clone(st)
	if next == nil {
		next = state.NewState("")
	}
	state.Ensure(next)
	before := state.CopyFlags(next.Flags)

	// 1. Reduce the event to intents.
	intents, anomalies := e.reduce(next, ev)
	result.Anomalies = append(result.Anomalies, anomalies...)

	// 2. Apply intents, then run the activation and mail pass until it
	// settles. Each round can only offer, accept or deliver something new,
	// so the bound is never reached on a consistent corpus.
	ctx := events.Context{
		Corpus:        e.corpus,
		IncludeDrafts: e.opts.IncludeDrafts,
		AutoAccept:    e.opts.AutoAccept,
		Before:        before,
	}
	limit := 2*e.corpus.Len() + len(e.corpus.Mails()) + 2
	lifecycle := e.apply(next, intents, &result)
	for round := 0; ; round++ {
		more := events.Dispatch(lifecycle, next, ctx)
		if len(more) == 0 {
			break
		}
		if round >= limit {
			result.Anomalies = append(result.Anomalies, "activation did not settle; remaining intents dropped")
			break
		}
		lifecycle = e.apply(next, more, &result)
	}

	if len(result.Intents) > 0 {
		next.Revision++
	}

	for _, a := range result.Anomalies {
		e.log.Warn("runtime anomaly",
			"player", next.PlayerID,
			"event", string(ev.Type),
			"quest", ev.QuestID,
			"detail", a,
		)
	}
	if len(result.Activated)+len(result.Completed) > 0 {
		e.log.Info("quest lifecycle",
			"player", next.PlayerID,
			"activated", result.Activated,
			"completed", result.Completed,
		)
	}
	return next, result
}

// apply mutates next with intents and folds the produced lifecycle events
// into the result.
func (e *Engine) apply(next *types.PlayerState, intents []types.Intent, result *types.Result) []types.LifecycleEvent {
	if len(intents) == 0 {
		return nil
	}
	lifecycle := effects.Apply(next, intents)
	result.Intents = append(result.Intents, intents...)
	result.Events = append(result.Events, lifecycle...)
	for _, ev := range lifecycle {
		switch ev.Type {
		case types.LifecycleOffered:
			result.Activated = append(result.Activated, ev.QuestID)
		case types.LifecycleAccept:
			result.Accepted = append(result.Accepted, ev.QuestID)
		case types.LifecycleComplete:
			result.Completed = append(result.Completed, ev.QuestID)
		case types.LifecycleFlagChanged:
			result.Flags = append(result.Flags, types.RewardFlag{Key: ev.FlagKey, Value: ev.FlagValue})
		case types.LifecycleMail:
			result.Mail = append(result.Mail, types.MailDecision{MailID: ev.MailID, QuestID: ev.QuestID, Reason: ev.Reason})
		}
	}
	return lifecycle
}

// reduce turns one inbound event into intents. It never mutates s.
func (e *Engine) reduce(s *types.PlayerState, ev types.Event) ([]types.Intent, []string) {
	switch ev.Type {
	case types.EventGameStart:
		if s.GameStarted {
			return nil, []string{"game already started"}
		}
		return []types.Intent{{Type: types.IntentStartGame}}, nil

	case types.EventTerminalOpen:
		if s.TerminalOpened {
			return nil, nil
		}
		return []types.Intent{{Type: types.IntentOpenTerminal}}, nil

	case types.EventAccept:
		q := e.corpus.Quest(strings.TrimSpace(ev.QuestID))
		if q == nil {
			return nil, []string{fmt.Sprintf("accept: unknown quest %q", ev.QuestID)}
		}
		return one(progress.Accept(q, s, e.gate(s)))

	case types.EventStepCompleted:
		return e.reduceStep(s, ev, progress.Step, e.matchesActive)

	case types.EventStepConfirmed:
		return e.reduceStep(s, ev, progress.Confirm, e.awaits)

	case types.EventSetFlags:
		keys := make([]string, 0, len(ev.Flags))
		for k := range ev.Flags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var raw []types.RewardFlag
		for _, k := range keys {
			raw = append(raw, types.RewardFlag{Key: k, Value: ev.Flags[k]})
		}
		fl := flags.Sanitize(raw)
		if len(fl) == 0 {
			return nil, []string{"set_flags: no valid flags"}
		}
		return []types.Intent{{Type: types.IntentMergeFlags, Flags: fl, Reason: "external"}}, nil

	case types.EventDeliverMail:
		id := strings.TrimSpace(ev.MailID)
		m := e.corpus.Mail(id)
		if m == nil {
			return nil, []string{fmt.Sprintf("deliver_mail: unknown mail %q", ev.MailID)}
		}
		if state.HasMail(s, id) {
			return nil, nil
		}
		return []types.Intent{{Type: types.IntentDeliverMail, QuestID: m.QuestID, MailID: id, Reason: "manual"}}, nil

	default:
		return nil, []string{fmt.Sprintf("unknown event type %q", ev.Type)}
	}
}

type stepReducer func(*types.QuestDefinition, *types.PlayerState, types.Event) ([]types.Intent, string)

// reduceStep routes a step event. An event naming a quest goes to that
// quest. A quest-agnostic terminal event goes to every in-progress quest
// whose active step it fits.
func (e *Engine) reduceStep(s *types.PlayerState, ev types.Event, reduce stepReducer, fits func(*types.QuestDefinition, *types.PlayerState, types.Event) bool) ([]types.Intent, []string) {
	if id := strings.TrimSpace(ev.QuestID); id != "" {
		q := e.corpus.Quest(id)
		if q == nil {
			return nil, []string{fmt.Sprintf("%s: unknown quest %q", ev.Type, ev.QuestID)}
		}
		return one(reduce(q, s, ev))
	}

	var (
		intents   []types.Intent
		anomalies []string
		matched   bool
	)
	for _, id := range state.ActiveQuests(s) {
		q := e.corpus.Quest(id)
		if q == nil || !fits(q, s, ev) {
			continue
		}
		matched = true
		in, a := reduce(q, s, ev)
		intents = append(intents, in...)
		if a != "" {
			anomalies = append(anomalies, a)
		}
	}
	if !matched {
		anomalies = append(anomalies, fmt.Sprintf("%s: no active quest step matches", ev.Type))
	}
	return intents, anomalies
}

func (e *Engine) matchesActive(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) bool {
	return progress.Matches(q, s, ev)
}

func (e *Engine) awaits(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) bool {
	id := progress.AwaitingStep(q, s)
	return id != "" && id == strings.TrimSpace(ev.StepID)
}

func (e *Engine) gate(s *types.PlayerState) rules.Gate {
	return rules.Gate{
		Completed:      state.CompletedSet(s),
		Flags:          s.Flags,
		TerminalOpened: s.TerminalOpened,
		IncludeDrafts:  e.opts.IncludeDrafts,
	}
}

func one(intents []types.Intent, anomaly string) ([]types.Intent, []string) {
	if anomaly != "" {
		return nil, []string{anomaly}
	}
	return intents, nil
}
