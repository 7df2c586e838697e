package rules

import (
	"strings"

	"github.com/nathoo/netquest/types"
)

// CompletionEligible reports whether a step of this type may complete a
// quest when it is the last step.
func CompletionEligible(stepType string) bool {
	return KnownStepType(stepType)
}

// KnownStepType reports whether the step type is supported.
func KnownStepType(stepType string) bool {
	switch stepType {
	case types.StepScanHost, types.StepConnectHost, types.StepDeleteFile, types.StepDisconnectHost:
		return true
	default:
		return false
	}
}

// RequiresTargetIP reports whether steps of this type must name a host.
func RequiresTargetIP(stepType string) bool {
	switch stepType {
	case types.StepScanHost, types.StepConnectHost, types.StepDeleteFile:
		return true
	default:
		return false
	}
}

// RequiresSystemProfile reports whether steps of this type need a simulated
// host profile, either on the step or as the quest default.
func RequiresSystemProfile(stepType string) bool {
	return RequiresTargetIP(stepType)
}

// AutoAdvances returns the step's auto_advance setting. Unset means true.
func AutoAdvances(step types.QuestStep) bool {
	if step.AutoAdvance == nil {
		return true
	}
	return *step.AutoAdvance
}

// MatchesStep checks if a terminal step-completion event matches the step.
// The step type must be equal and every populated step param must equal the
// event's value.
func MatchesStep(step types.QuestStep, ev types.Event) bool {
	if !strings.EqualFold(strings.TrimSpace(ev.StepType), step.Type) {
		return false
	}

	// If the step names a host, the event must target it.
	if ip := strings.TrimSpace(step.Params.TargetIP); ip != "" && ip != strings.TrimSpace(ev.TargetIP) {
		return false
	}

	// If the step names a file, the event must name the same file.
	if fp := strings.TrimSpace(step.Params.FilePath); fp != "" && fp != strings.TrimSpace(ev.FilePath) {
		return false
	}

	return true
}
