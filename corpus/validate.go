package corpus

import (
	"fmt"
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/engine/mail"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/types"
)

// Report collects authoring errors (block publish) and warnings (do not).
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether there are no errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Err returns a *ValidationError when the report has errors, else nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Errors: r.Errors, Warnings: r.Warnings}
}

func (r *Report) merge(o Report) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Validate checks one quest against the corpus. The quest need not be part
// of the corpus yet.
func Validate(q *types.QuestDefinition, c *Corpus) Report {
	if q == nil {
		return Report{Errors: []string{"quest is nil"}}
	}
	g := Build(c.With(*q))
	return g.validateQuest(q)
}

// ValidateAll checks every quest and mail definition in the corpus. All
// findings are collected.
func ValidateAll(c *Corpus) Report {
	return Build(c).ValidateAll()
}

// ValidateAll checks the whole corpus the graph was built from.
func (g *Graph) ValidateAll() Report {
	var r Report
	dupQuests, dupMail := g.corpus.Duplicates()
	for _, id := range dupQuests {
		r.Errors = append(r.Errors, fmt.Sprintf("quest %q: duplicate quest id", id))
	}
	for _, id := range dupMail {
		r.Errors = append(r.Errors, fmt.Sprintf("mail %q: duplicate mail id", id))
	}
	for _, q := range g.corpus.Quests() {
		r.merge(g.validateQuest(q))
	}
	for _, m := range g.corpus.Mails() {
		r.merge(g.validateMail(m))
	}
	return r
}

func (g *Graph) validateQuest(q *types.QuestDefinition) Report {
	v := &questCheck{g: g, q: q, label: fmt.Sprintf("quest %q", q.ID)}
	v.required()
	v.trigger()
	v.steps()
	v.rewards()
	v.mailRefs()
	v.questRefs()
	v.intro()
	v.graphWarnings()
	return v.r
}

type questCheck struct {
	g     *Graph
	q     *types.QuestDefinition
	label string
	r     Report
}

func (v *questCheck) errorf(format string, args ...any) {
	v.r.Errors = append(v.r.Errors, v.label+": "+fmt.Sprintf(format, args...))
}

func (v *questCheck) warnf(format string, args ...any) {
	v.r.Warnings = append(v.r.Warnings, v.label+": "+fmt.Sprintf(format, args...))
}

func (v *questCheck) required() {
	q := v.q
	if strings.TrimSpace(q.ID) == "" {
		v.errorf("missing id")
	}
	if strings.TrimSpace(q.Title) == "" {
		v.errorf("missing title")
	}
	if strings.TrimSpace(q.Description) == "" {
		v.errorf("missing description")
	}
	if len(q.Steps) == 0 {
		v.warnf("no steps")
		if !rules.IsDraft(q) {
			v.errorf("published quest has no steps")
		}
	}
}

func (v *questCheck) trigger() {
	if v.q.Trigger == nil {
		return
	}
	t := rules.NormalizeTrigger(v.q.Trigger)
	if !rules.KnownTrigger(t.Type) {
		v.errorf("unknown trigger type %q", v.q.Trigger.Type)
		return
	}
	switch t.Type {
	case types.TriggerFirstTerminalOpen:
	case types.TriggerQuestCompletion:
		if len(t.QuestIDs) == 0 {
			v.errorf("ON_QUEST_COMPLETION trigger has empty quest_ids")
		}
		for _, id := range t.QuestIDs {
			if !v.g.corpus.HasQuest(id) {
				v.errorf("trigger quest_ids references unknown quest %q", id)
			}
		}
	case types.TriggerFlagSet:
		if t.FlagKey == "" {
			v.errorf("ON_FLAG_SET trigger has empty flag_key")
		}
	}
}

func (v *questCheck) steps() {
	seen := map[string]bool{}
	hasProfile := strings.TrimSpace(v.q.DefaultSystemID) != ""
	for i, s := range v.q.Steps {
		name := strings.TrimSpace(s.ID)
		if name == "" {
			v.errorf("step %d missing id", i+1)
			name = fmt.Sprintf("#%d", i+1)
		} else if seen[name] {
			v.errorf("duplicate step id %q", name)
		}
		seen[name] = true

		if !rules.KnownStepType(s.Type) {
			v.errorf("step %q has unsupported type %q", name, s.Type)
			continue
		}
		if rules.RequiresTargetIP(s.Type) && strings.TrimSpace(s.Params.TargetIP) == "" {
			v.errorf("step %q (%s) missing target_ip", name, s.Type)
		}
		if rules.RequiresSystemProfile(s.Type) && !hasProfile && strings.TrimSpace(s.TargetSystemID) == "" {
			v.errorf("step %q (%s) missing system profile: set target_system_id or default_system_id", name, s.Type)
		}
		if s.Type == types.StepDeleteFile && strings.TrimSpace(s.Params.FilePath) == "" {
			v.errorf("step %q (DELETE_FILE) missing file_path", name)
		}
	}
	if n := len(v.q.Steps); n > 0 {
		last := v.q.Steps[n-1]
		if !rules.CompletionEligible(last.Type) {
			v.warnf("last step %q type %q is not completion-eligible", last.ID, last.Type)
		}
	}
}

func (v *questCheck) rewards() {
	for i, f := range v.q.Rewards.Flags {
		if _, ok := flags.ParseFlag(f.Key); !ok {
			v.errorf("reward flag %d missing key", i+1)
		}
	}
}

func (v *questCheck) mailRefs() {
	check := func(field, id string) {
		if id = strings.TrimSpace(id); id != "" && !v.g.corpus.HasMail(id) {
			v.errorf("%s references unknown mail %q", field, id)
		}
	}
	m := v.q.Mail
	check("mail.briefingMailId", m.BriefingMailID)
	check("mail.completionMailId", m.CompletionMailID)
	for _, id := range m.AutoDeliverOnAccept {
		check("mail.autoDeliverOnAccept", id)
	}
	for _, id := range m.AutoDeliverOnComplete {
		check("mail.autoDeliverOnComplete", id)
	}
	for _, id := range m.PreviewMailIDs {
		check("mail.previewMailIds", id)
	}
	check("introEmailId", v.q.IntroEmailID)
	check("completionEmailId", v.q.CompletionEmailID)
}

func (v *questCheck) questRefs() {
	for _, id := range v.q.Requirements.RequiredQuests {
		if id = strings.TrimSpace(id); id != "" && !v.g.corpus.HasQuest(id) {
			v.errorf("requirements.required_quests references unknown quest %q", id)
		}
	}
	if id := strings.TrimSpace(v.q.FollowUpQuestID); id != "" && !v.g.corpus.HasQuest(id) {
		v.errorf("followUpQuestId references unknown quest %q", id)
	}
}

func (v *questCheck) intro() {
	if !mail.KnownStartBehavior(v.q.IntroMailStartBehavior) {
		v.errorf("invalid introMailStartBehavior %q", v.q.IntroMailStartBehavior)
	}
	if d := v.q.IntroMailDelivery; d != nil {
		for _, e := range checkDelivery(d, v.g.corpus) {
			v.errorf("introMailDelivery %s", e)
		}
	}
}

func (v *questCheck) graphWarnings() {
	q := v.q
	t := rules.NormalizeTrigger(q.Trigger)
	self := false
	switch t.Type {
	case types.TriggerQuestCompletion:
		for _, id := range t.QuestIDs {
			if id == q.ID {
				self = true
			}
		}
	case types.TriggerFlagSet:
		if t.FlagKey != "" {
			emitters := v.g.Emitters(t.FlagKey, t.FlagValue)
			if len(emitters) == 0 {
				v.warnf("ON_FLAG_SET flag %q is never emitted by any quest", t.FlagKey)
			}
			for _, id := range emitters {
				if id == q.ID {
					self = true
				}
			}
		}
	}
	if self {
		v.warnf("trigger depends on the quest itself (self-dependency)")
	}

	if len(q.Steps) > 0 && len(v.g.Next(q.ID)) == 0 && strings.TrimSpace(q.FollowUpQuestID) == "" {
		v.warnf("dead end: no quest consumes its completion and no follow-up quest is set")
	}

	if cycle := v.g.Cycle(q.ID); len(cycle) > 0 {
		v.warnf("part of activation cycle %s", strings.Join(cycle, " -> "))
	}
}

func (g *Graph) validateMail(m *types.MailDefinition) Report {
	var r Report
	label := fmt.Sprintf("mail %q", m.ID)
	if strings.TrimSpace(m.ID) == "" {
		r.Errors = append(r.Errors, label+": missing id")
	}
	if id := strings.TrimSpace(m.QuestID); id != "" && !g.corpus.HasQuest(id) {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: questId references unknown quest %q", label, id))
	}
	if m.Delivery != nil {
		for _, e := range checkDelivery(m.Delivery, g.corpus) {
			r.Errors = append(r.Errors, label+": delivery "+e)
		}
	}
	return r
}

func checkDelivery(d *types.MailDelivery, c *Corpus) []string {
	var errs []string
	switch mail.NormalizeCondition(d.Condition) {
	case types.DeliverGameStart, types.DeliverManual:
	case types.DeliverAfterQuest:
		id := strings.TrimSpace(d.QuestID)
		if id == "" {
			errs = append(errs, "after_quest missing questId")
		} else if !c.HasQuest(id) {
			errs = append(errs, fmt.Sprintf("references unknown quest %q", id))
		}
	case types.DeliverFlagSet:
		if strings.TrimSpace(d.FlagKey) == "" {
			errs = append(errs, "flag_set missing flagKey")
		}
	default:
		errs = append(errs, fmt.Sprintf("has invalid condition %q", d.Condition))
	}
	return errs
}
