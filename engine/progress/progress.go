// Package progress implements the per-quest step state machine:
// Inactive -> Active(i) -> Completed. Reducers read the player state and
// return intents; they never mutate it.
package progress

import (
	"fmt"
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/engine/mail"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// Mail reasons attached to deliver intents.
const (
	ReasonBriefing       = "briefing"
	ReasonAutoOnAccept   = "auto_on_accept"
	ReasonCompletion     = "completion"
	ReasonAutoOnComplete = "auto_on_complete"
)

// Accept moves an inactive quest to Active(0). A quest with no steps
// completes immediately. Returns an anomaly string instead of intents when
// the quest cannot be accepted.
func Accept(q *types.QuestDefinition, s *types.PlayerState, g rules.Gate) ([]types.Intent, string) {
	if q == nil {
		return nil, "accept: unknown quest"
	}
	switch state.Status(s, q.ID) {
	case types.QuestInProgress:
		return nil, fmt.Sprintf("accept %s: already in progress", q.ID)
	case types.QuestCompleted:
		return nil, fmt.Sprintf("accept %s: already completed", q.ID)
	}
	if !rules.Eligible(q, state.Status(s, q.ID), g) {
		return nil, fmt.Sprintf("accept %s: not eligible", q.ID)
	}

	intents := []types.Intent{{Type: types.IntentAcceptQuest, QuestID: q.ID}}
	if id := strings.TrimSpace(q.Mail.BriefingMailID); id != "" {
		intents = append(intents, deliver(q.ID, id, ReasonBriefing))
	}
	for _, id := range mail.AutoDeliver(q.Mail.AutoDeliverOnAccept, s.Mailbox) {
		intents = append(intents, deliver(q.ID, id, ReasonAutoOnAccept))
	}
	if len(q.Steps) == 0 {
		intents = append(intents, Complete(q)...)
	}
	return intents, ""
}

// Step handles a step-completion event from the terminal runtime against
// the quest's active step.
func Step(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) ([]types.Intent, string) {
	step, idx, anomaly := activeStep(q, s, ev)
	if anomaly != "" {
		return nil, anomaly
	}
	if s.Progress[q.ID].AwaitingConfirm {
		return nil, fmt.Sprintf("step %s/%s: awaiting confirmation", q.ID, step.ID)
	}
	if !rules.MatchesStep(step, ev) {
		return nil, fmt.Sprintf("step %s/%s: event does not match active step", q.ID, step.ID)
	}
	if !rules.AutoAdvances(step) {
		return []types.Intent{{Type: types.IntentArmConfirm, QuestID: q.ID, StepIndex: idx}}, ""
	}
	return advance(q, idx)
}

// Confirm handles an explicit confirmation for a step that does not
// auto-advance. The event must carry the active step's id.
func Confirm(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) ([]types.Intent, string) {
	step, idx, anomaly := activeStep(q, s, ev)
	if anomaly != "" {
		return nil, anomaly
	}
	if !s.Progress[q.ID].AwaitingConfirm {
		return nil, fmt.Sprintf("confirm %s/%s: nothing to confirm", q.ID, step.ID)
	}
	if strings.TrimSpace(ev.StepID) != step.ID {
		return nil, fmt.Sprintf("confirm %s: step %q is not the active step %q", q.ID, ev.StepID, step.ID)
	}
	return advance(q, idx)
}

// Complete returns the intents for Active -> Completed: mark completed,
// merge emitted flags, grant rewards, deliver completion mail.
func Complete(q *types.QuestDefinition) []types.Intent {
	intents := []types.Intent{
		{Type: types.IntentCompleteQuest, QuestID: q.ID},
		{Type: types.IntentMergeFlags, QuestID: q.ID, Flags: flags.EmittedFlags(q), Reason: ReasonCompletion},
	}
	if q.Rewards.Credits != 0 || len(q.Rewards.UnlocksCommands) > 0 {
		intents = append(intents, types.Intent{
			Type:     types.IntentGrantReward,
			QuestID:  q.ID,
			Credits:  q.Rewards.Credits,
			Commands: append([]string(nil), q.Rewards.UnlocksCommands...),
		})
	}
	for _, id := range []string{q.Mail.CompletionMailID, q.CompletionEmailID} {
		if id = strings.TrimSpace(id); id != "" {
			intents = append(intents, deliver(q.ID, id, ReasonCompletion))
		}
	}
	for _, id := range mail.AutoDeliver(q.Mail.AutoDeliverOnComplete, nil) {
		intents = append(intents, deliver(q.ID, id, ReasonAutoOnComplete))
	}
	return intents
}

// Matches reports whether a quest-agnostic step event matches the quest's
// active step. Used to route terminal events that do not name a quest.
func Matches(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) bool {
	step, _, anomaly := activeStep(q, s, ev)
	if anomaly != "" || s.Progress[q.ID].AwaitingConfirm {
		return false
	}
	return rules.MatchesStep(step, ev)
}

// AwaitingStep returns the id of the step waiting for confirmation, or "".
func AwaitingStep(q *types.QuestDefinition, s *types.PlayerState) string {
	p, ok := state.ActiveStep(s, q.ID)
	if !ok || !p.AwaitingConfirm || p.StepIndex < 0 || p.StepIndex >= len(q.Steps) {
		return ""
	}
	return q.Steps[p.StepIndex].ID
}

func activeStep(q *types.QuestDefinition, s *types.PlayerState, ev types.Event) (types.QuestStep, int, string) {
	if q == nil {
		return types.QuestStep{}, 0, fmt.Sprintf("step: unknown quest %q", ev.QuestID)
	}
	switch state.Status(s, q.ID) {
	case types.QuestCompleted:
		return types.QuestStep{}, 0, fmt.Sprintf("step %s: quest already completed", q.ID)
	case types.QuestNotStarted:
		return types.QuestStep{}, 0, fmt.Sprintf("step %s: quest not active", q.ID)
	}
	idx := s.Progress[q.ID].StepIndex
	if idx < 0 || idx >= len(q.Steps) {
		return types.QuestStep{}, 0, fmt.Sprintf("step %s: step index %d out of range", q.ID, idx)
	}
	step := q.Steps[idx]
	if id := strings.TrimSpace(ev.StepID); id != "" && ev.Type == types.EventStepCompleted && id != step.ID {
		return types.QuestStep{}, 0, fmt.Sprintf("step %s: stale event for step %q, active step is %q", q.ID, id, step.ID)
	}
	return step, idx, ""
}

func advance(q *types.QuestDefinition, idx int) ([]types.Intent, string) {
	if idx < len(q.Steps)-1 {
		return []types.Intent{{Type: types.IntentAdvanceStep, QuestID: q.ID, StepIndex: idx + 1}}, ""
	}
	last := q.Steps[idx]
	if !rules.CompletionEligible(last.Type) {
		return nil, fmt.Sprintf("complete %s: last step type %q cannot complete a quest", q.ID, last.Type)
	}
	return Complete(q), ""
}

func deliver(questID, mailID, reason string) types.Intent {
	return types.Intent{Type: types.IntentDeliverMail, QuestID: questID, MailID: mailID, Reason: reason}
}
