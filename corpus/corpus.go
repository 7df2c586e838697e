// Package corpus holds an immutable snapshot of authored quests and mail,
// the dependency graph between quests and the authoring validator.
//
// A Corpus is an arena indexed by id. Quests reference each other and mail
// by id only, so deletion and renaming are applied on a fresh snapshot and
// never leave live pointers behind.
package corpus

import (
	"fmt"
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/types"
)

// Corpus is an immutable set of quest and mail definitions. Methods that
// change content return a new Corpus and leave the receiver untouched.
type Corpus struct {
	quests    []types.QuestDefinition
	questIdx  map[string]int
	mail      []types.MailDefinition
	mailIdx   map[string]int
	dupQuests []string
	dupMail   []string
	intros    map[string][]string
}

// New builds a corpus. Definitions keep their given order. When an id
// repeats the first definition wins and the id is recorded as a duplicate.
func New(quests []types.QuestDefinition, mail []types.MailDefinition) *Corpus {
	c := &Corpus{
		questIdx: make(map[string]int, len(quests)),
		mailIdx:  make(map[string]int, len(mail)),
	}
	for _, q := range quests {
		if _, ok := c.questIdx[q.ID]; ok {
			c.dupQuests = append(c.dupQuests, q.ID)
			continue
		}
		c.questIdx[q.ID] = len(c.quests)
		c.quests = append(c.quests, q)
	}
	for _, m := range mail {
		if _, ok := c.mailIdx[m.ID]; ok {
			c.dupMail = append(c.dupMail, m.ID)
			continue
		}
		c.mailIdx[m.ID] = len(c.mail)
		c.mail = append(c.mail, m)
	}
	c.index()
	return c
}

func (c *Corpus) index() {
	c.intros = map[string][]string{}
	for _, q := range c.quests {
		if id := strings.TrimSpace(q.IntroEmailID); id != "" {
			c.intros[id] = append(c.intros[id], q.ID)
		}
	}
}

// Len returns the number of distinct quests.
func (c *Corpus) Len() int { return len(c.quests) }

// Quest returns the quest with the given id, or nil. The result must not
// be modified.
func (c *Corpus) Quest(id string) *types.QuestDefinition {
	i, ok := c.questIdx[id]
	if !ok {
		return nil
	}
	return &c.quests[i]
}

// Quests returns every quest in corpus order. The results must not be
// modified.
func (c *Corpus) Quests() []*types.QuestDefinition {
	out := make([]*types.QuestDefinition, len(c.quests))
	for i := range c.quests {
		out[i] = &c.quests[i]
	}
	return out
}

// QuestIDs returns every quest id in corpus order.
func (c *Corpus) QuestIDs() []string {
	out := make([]string, len(c.quests))
	for i, q := range c.quests {
		out[i] = q.ID
	}
	return out
}

// HasQuest reports whether the quest id exists.
func (c *Corpus) HasQuest(id string) bool {
	_, ok := c.questIdx[id]
	return ok
}

// Mail returns the mail with the given id, or nil.
func (c *Corpus) Mail(id string) *types.MailDefinition {
	i, ok := c.mailIdx[id]
	if !ok {
		return nil
	}
	return &c.mail[i]
}

// Mails returns every mail definition in corpus order.
func (c *Corpus) Mails() []*types.MailDefinition {
	out := make([]*types.MailDefinition, len(c.mail))
	for i := range c.mail {
		out[i] = &c.mail[i]
	}
	return out
}

// HasMail reports whether the mail id exists.
func (c *Corpus) HasMail(id string) bool {
	_, ok := c.mailIdx[id]
	return ok
}

// Duplicates returns quest ids and mail ids that were defined more than once.
func (c *Corpus) Duplicates() (quests, mail []string) {
	return append([]string(nil), c.dupQuests...), append([]string(nil), c.dupMail...)
}

// IntroQuests returns the quests that use the mail as their intro mail.
func (c *Corpus) IntroQuests(mailID string) []string {
	return c.intros[mailID]
}

// With returns a corpus in which q is added or replaces the quest with the
// same id.
func (c *Corpus) With(q types.QuestDefinition) *Corpus {
	quests := c.cloneQuests()
	if i, ok := c.questIdx[q.ID]; ok {
		quests[i] = q
	} else {
		quests = append(quests, q)
	}
	return c.rebuild(quests, c.cloneMail())
}

// WithMail returns a corpus in which m is added or replaces the mail with
// the same id.
func (c *Corpus) WithMail(m types.MailDefinition) *Corpus {
	mail := c.cloneMail()
	if i, ok := c.mailIdx[m.ID]; ok {
		mail[i] = m
	} else {
		mail = append(mail, m)
	}
	return c.rebuild(c.cloneQuests(), mail)
}

// Without deletes a quest and scrubs every reference to it from the
// remaining quests and mail. A trigger left with no quest ids is kept as
// is so the validator reports it to the author.
func (c *Corpus) Without(id string) *Corpus {
	var quests []types.QuestDefinition
	for _, q := range c.quests {
		if q.ID == id {
			continue
		}
		quests = append(quests, scrubQuestRefs(cloneQuest(q), id))
	}
	mail := c.cloneMail()
	for i := range mail {
		if mail[i].QuestID == id {
			mail[i].QuestID = ""
		}
		mail[i].Delivery = scrubDelivery(mail[i].Delivery, id)
	}
	return c.rebuild(quests, mail)
}

// WithoutMail deletes a mail definition and scrubs every quest reference
// to it.
func (c *Corpus) WithoutMail(id string) *Corpus {
	var mail []types.MailDefinition
	for _, m := range c.mail {
		if m.ID != id {
			mail = append(mail, m)
		}
	}
	quests := c.cloneQuests()
	for i := range quests {
		quests[i] = scrubMailRefs(quests[i], id)
	}
	return c.rebuild(quests, mail)
}

// Rename changes a quest id and rewrites every reference to it. When the
// quest has no completion flag override, references to its default
// completion flag follow the new id.
func (c *Corpus) Rename(oldID, newID string) (*Corpus, error) {
	newID = strings.TrimSpace(newID)
	if !c.HasQuest(oldID) {
		return nil, fmt.Errorf("rename %q: quest not found", oldID)
	}
	if newID == "" {
		return nil, fmt.Errorf("rename %q: empty new id", oldID)
	}
	if c.HasQuest(newID) {
		return nil, fmt.Errorf("rename %q: quest %q already exists", oldID, newID)
	}
	rn := func(s string) string {
		if s == oldID {
			return newID
		}
		return s
	}
	rf := func(s string) string { return s }
	if strings.TrimSpace(c.Quest(oldID).CompletionFlag) == "" {
		rf = flagRenamer(flags.CompletionPrefix+oldID, flags.CompletionPrefix+newID)
	}

	quests := c.cloneQuests()
	for i := range quests {
		q := &quests[i]
		q.ID = rn(q.ID)
		q.CompletionFlag = rf(q.CompletionFlag)
		if q.Trigger != nil {
			for j := range q.Trigger.QuestIDs {
				q.Trigger.QuestIDs[j] = rn(q.Trigger.QuestIDs[j])
			}
			q.Trigger.FlagKey = rf(q.Trigger.FlagKey)
		}
		for j := range q.Requirements.RequiredQuests {
			q.Requirements.RequiredQuests[j] = rn(q.Requirements.RequiredQuests[j])
		}
		for j := range q.Requirements.RequiredFlags {
			q.Requirements.RequiredFlags[j] = rf(q.Requirements.RequiredFlags[j])
		}
		for j := range q.Rewards.Flags {
			q.Rewards.Flags[j].Key = rf(q.Rewards.Flags[j].Key)
		}
		q.FollowUpQuestID = rn(q.FollowUpQuestID)
		if d := q.IntroMailDelivery; d != nil {
			d.QuestID = rn(d.QuestID)
			d.FlagKey = rf(d.FlagKey)
		}
	}
	mail := c.cloneMail()
	for i := range mail {
		mail[i].QuestID = rn(mail[i].QuestID)
		if d := mail[i].Delivery; d != nil {
			d.QuestID = rn(d.QuestID)
			d.FlagKey = rf(d.FlagKey)
		}
	}
	return c.rebuild(quests, mail), nil
}

// flagRenamer returns a function that replaces the flag key from with to,
// in bare keys and in "key=value" / "key:value" strings.
func flagRenamer(from, to string) func(string) string {
	return func(s string) string {
		key, rest := s, ""
		if i := strings.IndexAny(s, ":="); i >= 0 {
			key, rest = s[:i], s[i:]
		}
		if strings.TrimSpace(key) != from {
			return s
		}
		return to + rest
	}
}

func (c *Corpus) rebuild(quests []types.QuestDefinition, mail []types.MailDefinition) *Corpus {
	n := New(quests, mail)
	n.dupQuests = append(n.dupQuests, c.dupQuests...)
	n.dupMail = append(n.dupMail, c.dupMail...)
	return n
}

func (c *Corpus) cloneQuests() []types.QuestDefinition {
	out := make([]types.QuestDefinition, len(c.quests))
	for i, q := range c.quests {
		out[i] = cloneQuest(q)
	}
	return out
}

func (c *Corpus) cloneMail() []types.MailDefinition {
	out := make([]types.MailDefinition, len(c.mail))
	for i, m := range c.mail {
		out[i] = m
		if m.Delivery != nil {
			d := *m.Delivery
			out[i].Delivery = &d
		}
	}
	return out
}

func cloneQuest(q types.QuestDefinition) types.QuestDefinition {
	c := q
	c.Tags = cloneStrings(q.Tags)
	if q.Trigger != nil {
		t := *q.Trigger
		t.QuestIDs = cloneStrings(q.Trigger.QuestIDs)
		c.Trigger = &t
	}
	if q.Steps != nil {
		c.Steps = make([]types.QuestStep, len(q.Steps))
		copy(c.Steps, q.Steps)
	}
	c.Rewards.Flags = append([]types.RewardFlag(nil), q.Rewards.Flags...)
	c.Rewards.UnlocksCommands = cloneStrings(q.Rewards.UnlocksCommands)
	c.Requirements.RequiredQuests = cloneStrings(q.Requirements.RequiredQuests)
	c.Requirements.RequiredFlags = cloneStrings(q.Requirements.RequiredFlags)
	c.Mail.AutoDeliverOnAccept = cloneStrings(q.Mail.AutoDeliverOnAccept)
	c.Mail.AutoDeliverOnComplete = cloneStrings(q.Mail.AutoDeliverOnComplete)
	c.Mail.PreviewMailIDs = cloneStrings(q.Mail.PreviewMailIDs)
	if q.IntroMailDelivery != nil {
		d := *q.IntroMailDelivery
		c.IntroMailDelivery = &d
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func scrubQuestRefs(q types.QuestDefinition, id string) types.QuestDefinition {
	if q.Trigger != nil {
		q.Trigger.QuestIDs = removeString(q.Trigger.QuestIDs, id)
	}
	q.Requirements.RequiredQuests = removeString(q.Requirements.RequiredQuests, id)
	if q.FollowUpQuestID == id {
		q.FollowUpQuestID = ""
	}
	q.IntroMailDelivery = scrubDelivery(q.IntroMailDelivery, id)
	return q
}

// scrubDelivery turns an after_quest delivery for a deleted quest into a
// manual one so the mail is never delivered automatically.
func scrubDelivery(d *types.MailDelivery, id string) *types.MailDelivery {
	if d == nil || d.QuestID != id {
		return d
	}
	return &types.MailDelivery{Condition: types.DeliverManual}
}

func scrubMailRefs(q types.QuestDefinition, id string) types.QuestDefinition {
	drop := func(s *string) {
		if *s == id {
			*s = ""
		}
	}
	drop(&q.Mail.BriefingMailID)
	drop(&q.Mail.CompletionMailID)
	drop(&q.IntroEmailID)
	drop(&q.CompletionEmailID)
	q.Mail.AutoDeliverOnAccept = removeString(q.Mail.AutoDeliverOnAccept, id)
	q.Mail.AutoDeliverOnComplete = removeString(q.Mail.AutoDeliverOnComplete, id)
	q.Mail.PreviewMailIDs = removeString(q.Mail.PreviewMailIDs, id)
	return q
}

func removeString(list []string, s string) []string {
	var out []string
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if out == nil && list != nil {
		return []string{}
	}
	return out
}
