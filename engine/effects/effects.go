// Package effects implements centralized state mutation via the Apply function.
// Every intent type is one atomic operation. No rule logic in effects.
package effects

import (
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// Apply applies a list of intents to the player state, mutating it.
// Returns the lifecycle events produced. Intents that would not change the
// state (a mail already delivered, a quest already accepted) produce no
// event.
func Apply(s *types.PlayerState, intents []types.Intent) []types.LifecycleEvent {
	var events []types.LifecycleEvent

	for _, in := range intents {
		switch in.Type {
		case types.IntentStartGame:
			if s.GameStarted {
				continue
			}
			s.GameStarted = true
			events = append(events, types.LifecycleEvent{Type: types.LifecycleGameStart})

		case types.IntentOpenTerminal:
			s.TerminalOpened = true

		case types.IntentOfferQuest:
			if s.Offered[in.QuestID] {
				continue
			}
			s.Offered[in.QuestID] = true
			events = append(events, types.LifecycleEvent{Type: types.LifecycleOffered, QuestID: in.QuestID})

		case types.IntentAcceptQuest:
			if state.Status(s, in.QuestID) != types.QuestNotStarted {
				continue
			}
			s.Offered[in.QuestID] = true
			s.Statuses[in.QuestID] = types.QuestInProgress
			s.Progress[in.QuestID] = types.QuestProgress{StepIndex: 0}
			events = append(events, types.LifecycleEvent{Type: types.LifecycleAccept, QuestID: in.QuestID})

		case types.IntentAdvanceStep:
			s.Progress[in.QuestID] = types.QuestProgress{StepIndex: in.StepIndex}

		case types.IntentArmConfirm:
			s.Progress[in.QuestID] = types.QuestProgress{StepIndex: in.StepIndex, AwaitingConfirm: true}

		case types.IntentCompleteQuest:
			if state.Status(s, in.QuestID) == types.QuestCompleted {
				continue
			}
			s.Statuses[in.QuestID] = types.QuestCompleted
			delete(s.Progress, in.QuestID)
			events = append(events, types.LifecycleEvent{Type: types.LifecycleComplete, QuestID: in.QuestID})

		case types.IntentMergeFlags:
			for _, f := range in.Flags {
				if old, ok := state.GetFlag(s, f.Key); ok && old == f.Value {
					continue
				}
				s.Flags[f.Key] = f.Value
				events = append(events, types.LifecycleEvent{
					Type:      types.LifecycleFlagChanged,
					QuestID:   in.QuestID,
					FlagKey:   f.Key,
					FlagValue: f.Value,
					Reason:    in.Reason,
				})
			}

		case types.IntentDeliverMail:
			if in.MailID == "" || state.HasMail(s, in.MailID) {
				continue
			}
			s.Mailbox = append(s.Mailbox, in.MailID)
			events = append(events, types.LifecycleEvent{
				Type:    types.LifecycleMail,
				QuestID: in.QuestID,
				MailID:  in.MailID,
				Reason:  in.Reason,
			})

		case types.IntentGrantReward:
			s.Credits += in.Credits
			for _, cmd := range in.Commands {
				if !state.HasCommand(s, cmd) {
					s.UnlockedCommands = append(s.UnlockedCommands, cmd)
				}
			}

		default:
			// Unknown intent type: ignore.
		}
	}

	return events
}
