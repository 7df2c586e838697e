// Package types defines the shared data structures for the NetQuest engine.
// This package contains only type definitions: no logic, no methods.
package types

import "time"

// Trigger types.
const (
	TriggerFirstTerminalOpen = "ON_FIRST_TERMINAL_OPEN"
	TriggerQuestCompletion   = "ON_QUEST_COMPLETION"
	TriggerFlagSet           = "ON_FLAG_SET"
)

// Step types.
const (
	StepScanHost       = "SCAN_HOST"
	StepConnectHost    = "CONNECT_HOST"
	StepDeleteFile     = "DELETE_FILE"
	StepDisconnectHost = "DISCONNECT_HOST"
)

// Quest publication status.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Mail delivery conditions.
const (
	DeliverGameStart  = "game_start"
	DeliverAfterQuest = "after_quest"
	DeliverFlagSet    = "flag_set"
	DeliverManual     = "manual"
)

// Intro mail start behaviors.
const (
	IntroStartQuest = "startQuest"
	IntroLoreOnly   = "loreOnly"
)

// Trigger is the activation condition of a quest.
type Trigger struct {
	Type      string   `json:"type" yaml:"type"`
	QuestIDs  []string `json:"quest_ids,omitempty" yaml:"quest_ids,omitempty"`
	FlagKey   string   `json:"flag_key,omitempty" yaml:"flag_key,omitempty"`
	FlagValue string   `json:"flag_value,omitempty" yaml:"flag_value,omitempty"` // empty = any value
}

// StepParams are the terminal parameters a step event must match.
type StepParams struct {
	TargetIP string `json:"target_ip,omitempty" yaml:"target_ip,omitempty"`
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// StepHints are player-facing hints for a step.
type StepHints struct {
	Prompt         string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	CommandExample string `json:"command_example,omitempty" yaml:"command_example,omitempty"`
}

// QuestStep is a single ordered objective of a quest.
type QuestStep struct {
	ID             string     `json:"id" yaml:"id"`
	Type           string     `json:"type" yaml:"type"`
	Params         StepParams `json:"params" yaml:"params"`
	TargetSystemID string     `json:"target_system_id,omitempty" yaml:"target_system_id,omitempty"`
	AutoAdvance    *bool      `json:"auto_advance,omitempty" yaml:"auto_advance,omitempty"` // nil = true
	Hints          StepHints  `json:"hints" yaml:"hints"`
}

// RewardFlag is a flag granted on completion. An empty Value stores "true".
type RewardFlag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Rewards granted on quest completion.
type Rewards struct {
	Credits         int          `json:"credits" yaml:"credits"`
	Flags           []RewardFlag `json:"flags,omitempty" yaml:"flags,omitempty"`
	UnlocksCommands []string     `json:"unlocks_commands,omitempty" yaml:"unlocks_commands,omitempty"`
}

// Requirements must all hold before a quest is offered.
type Requirements struct {
	RequiredQuests []string `json:"required_quests,omitempty" yaml:"required_quests,omitempty"`
	RequiredFlags  []string `json:"required_flags,omitempty" yaml:"required_flags,omitempty"` // "key", "key=value" or "key:value"
}

// QuestMail lists the mail ids a quest references.
type QuestMail struct {
	BriefingMailID        string   `json:"briefingMailId,omitempty" yaml:"briefingMailId,omitempty"`
	CompletionMailID      string   `json:"completionMailId,omitempty" yaml:"completionMailId,omitempty"`
	AutoDeliverOnAccept   []string `json:"autoDeliverOnAccept,omitempty" yaml:"autoDeliverOnAccept,omitempty"`
	AutoDeliverOnComplete []string `json:"autoDeliverOnComplete,omitempty" yaml:"autoDeliverOnComplete,omitempty"`
	PreviewMailIDs        []string `json:"previewMailIds,omitempty" yaml:"previewMailIds,omitempty"`
}

// MailDelivery decides when a single mail is delivered.
type MailDelivery struct {
	Condition string `json:"condition" yaml:"condition"`
	QuestID   string `json:"questId,omitempty" yaml:"questId,omitempty"`
	FlagKey   string `json:"flagKey,omitempty" yaml:"flagKey,omitempty"`
	FlagValue string `json:"flagValue,omitempty" yaml:"flagValue,omitempty"`
}

// QuestDefinition is an authored quest.
type QuestDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Faction     string   `json:"faction,omitempty" yaml:"faction,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty"`

	Trigger      *Trigger     `json:"trigger,omitempty" yaml:"trigger,omitempty"` // nil = ON_FIRST_TERMINAL_OPEN
	Steps        []QuestStep  `json:"steps" yaml:"steps"`
	Rewards      Rewards      `json:"rewards" yaml:"rewards"`
	Requirements Requirements `json:"requirements" yaml:"requirements"`

	DefaultSystemID string    `json:"default_system_id,omitempty" yaml:"default_system_id,omitempty"`
	CompletionFlag  string    `json:"completion_flag,omitempty" yaml:"completion_flag,omitempty"`
	Mail            QuestMail `json:"mail" yaml:"mail"`

	IntroEmailID           string        `json:"introEmailId,omitempty" yaml:"introEmailId,omitempty"`
	IntroMailDelivery      *MailDelivery `json:"introMailDelivery,omitempty" yaml:"introMailDelivery,omitempty"`
	IntroMailStartBehavior string        `json:"introMailStartBehavior,omitempty" yaml:"introMailStartBehavior,omitempty"`
	FollowUpQuestID        string        `json:"followUpQuestId,omitempty" yaml:"followUpQuestId,omitempty"`
	CompletionEmailID      string        `json:"completionEmailId,omitempty" yaml:"completionEmailId,omitempty"`
}

// MailDefinition is an authored in-game email.
type MailDefinition struct {
	ID       string        `json:"id" yaml:"id"`
	From     string        `json:"from,omitempty" yaml:"from,omitempty"`
	Subject  string        `json:"subject,omitempty" yaml:"subject,omitempty"`
	Body     string        `json:"body,omitempty" yaml:"body,omitempty"`
	QuestID  string        `json:"questId,omitempty" yaml:"questId,omitempty"`
	Delivery *MailDelivery `json:"delivery,omitempty" yaml:"delivery,omitempty"`
}

// QuestStatus is a player's lifecycle status for one quest.
type QuestStatus string

const (
	QuestNotStarted QuestStatus = "not_started"
	QuestInProgress QuestStatus = "in_progress"
	QuestCompleted  QuestStatus = "completed"
)

// QuestProgress tracks the active step of an in-progress quest.
type QuestProgress struct {
	StepIndex       int  `json:"step_index"`
	AwaitingConfirm bool `json:"awaiting_confirm,omitempty"`
}

// PlayerState is the complete per-player quest runtime state, including the
// flag store. It is owned by a single writer.
type PlayerState struct {
	PlayerID         string                   `json:"player_id"`
	Statuses         map[string]QuestStatus   `json:"statuses"`
	Progress         map[string]QuestProgress `json:"progress"`
	Offered          map[string]bool          `json:"offered"`
	Flags            map[string]string        `json:"flags"`
	Mailbox          []string                 `json:"mailbox"`
	Credits          int                      `json:"credits"`
	UnlockedCommands []string                 `json:"unlocked_commands"`
	GameStarted      bool                     `json:"game_started"`
	TerminalOpened   bool                     `json:"terminal_opened"`
	SnapshotAt       time.Time                `json:"snapshot_at"`
	Revision         int64                    `json:"revision"`
}

// EventType identifies an inbound runtime event.
type EventType string

const (
	EventGameStart     EventType = "game_start"
	EventTerminalOpen  EventType = "terminal_open"
	EventAccept        EventType = "accept"
	EventStepCompleted EventType = "step_completed"
	EventStepConfirmed EventType = "step_confirmed"
	EventSetFlags      EventType = "set_flags"
	EventDeliverMail   EventType = "deliver_mail"
)

// Event is an inbound event from the session, the terminal runtime or
// external scripting.
type Event struct {
	ID       string            `json:"id,omitempty"`
	Type     EventType         `json:"type"`
	QuestID  string            `json:"quest_id,omitempty"`
	StepID   string            `json:"step_id,omitempty"`
	StepType string            `json:"step_type,omitempty"`
	TargetIP string            `json:"target_ip,omitempty"`
	FilePath string            `json:"file_path,omitempty"`
	MailID   string            `json:"mail_id,omitempty"`
	Flags    map[string]string `json:"flags,omitempty"`
}

// Lifecycle event types seen by the mail conditioner and dispatch.
const (
	LifecycleGameStart   = "game_start"
	LifecycleAccept      = "accept"
	LifecycleComplete    = "complete"
	LifecycleFlagChanged = "flag_changed"
	LifecycleMail        = "mail_delivered"
	LifecycleOffered     = "offered"
)

// LifecycleEvent is emitted after intents are applied.
type LifecycleEvent struct {
	Type      string
	QuestID   string
	MailID    string
	FlagKey   string
	FlagValue string
	Reason    string
}

// Intent types.
const (
	IntentStartGame     = "start_game"
	IntentOpenTerminal  = "open_terminal"
	IntentOfferQuest    = "offer_quest"
	IntentAcceptQuest   = "accept_quest"
	IntentAdvanceStep   = "advance_step"
	IntentArmConfirm    = "arm_confirm"
	IntentCompleteQuest = "complete_quest"
	IntentMergeFlags    = "merge_flags"
	IntentDeliverMail   = "deliver_mail"
	IntentGrantReward   = "grant_reward"
)

// Intent is a single atomic state mutation instruction produced by a reducer.
type Intent struct {
	Type      string
	QuestID   string
	MailID    string
	StepIndex int
	Flags     []RewardFlag
	Credits   int
	Commands  []string
	Reason    string
}

// MailDecision records a mail delivered to the player's mailbox.
type MailDecision struct {
	MailID  string `json:"mail_id"`
	QuestID string `json:"quest_id,omitempty"`
	Reason  string `json:"reason"`
}

// Result is the output of evaluating one event.
type Result struct {
	Activated []string
	Accepted  []string
	Completed []string
	Flags     []RewardFlag
	Mail      []MailDecision
	Intents   []Intent
	Events    []LifecycleEvent
	Anomalies []string
}
