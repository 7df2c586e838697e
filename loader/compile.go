package loader

import (
	"fmt"

	"github.com/nathoo/netquest/types"
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a Quest or Mail table before compilation.
type rawDef struct {
	id    string
	file  string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBoolPtr returns a bool field from a Lua table, or nil if missing.
func getBoolPtr(tbl *lua.LTable, key string) *bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		out := bool(b)
		return &out
	}
	return nil
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the string items of an array field. A bare string is
// a one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			if s, ok := v.RawGetInt(i).(lua.LString); ok {
				out = append(out, string(s))
			}
		}
		return out
	}
	return nil
}

// firstString returns the first non-empty string among keys.
func firstString(tbl *lua.LTable, keys ...string) string {
	for _, k := range keys {
		if s := getString(tbl, k); s != "" {
			return s
		}
	}
	return ""
}

// compile converts all collected Lua data into a Document.
func compile(coll *collector) (*Document, error) {
	doc := &Document{}
	for _, raw := range coll.quests {
		q, err := compileQuest(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling quest %s (%s): %w", raw.id, raw.file, err)
		}
		doc.Quests = append(doc.Quests, q)
	}
	for _, raw := range coll.mail {
		doc.Mail = append(doc.Mail, compileMail(raw))
	}
	return doc, nil
}

func compileQuest(raw rawDef) (types.QuestDefinition, error) {
	tbl := raw.table
	q := types.QuestDefinition{
		ID:                     raw.id,
		Title:                  getString(tbl, "title"),
		Description:            getString(tbl, "description"),
		Summary:                getString(tbl, "summary"),
		Difficulty:             getString(tbl, "difficulty"),
		Faction:                getString(tbl, "faction"),
		Tags:                   getStrings(tbl, "tags"),
		Status:                 getString(tbl, "status"),
		DefaultSystemID:        firstString(tbl, "default_system_id", "system"),
		CompletionFlag:         getString(tbl, "completion_flag"),
		IntroEmailID:           firstString(tbl, "intro_mail", "introEmailId"),
		IntroMailStartBehavior: firstString(tbl, "intro_behavior", "introMailStartBehavior"),
		FollowUpQuestID:        firstString(tbl, "follow_up", "followUpQuestId"),
		CompletionEmailID:      firstString(tbl, "completion_email", "completionEmailId"),
	}

	if t := getTable(tbl, "trigger"); t != nil {
		q.Trigger = compileTrigger(t)
	}
	if d := getTable(tbl, "intro_delivery"); d != nil {
		q.IntroMailDelivery = compileDelivery(d)
	}

	if steps := getTable(tbl, "steps"); steps != nil {
		for i := 1; i <= steps.MaxN(); i++ {
			st, ok := steps.RawGetInt(i).(*lua.LTable)
			if !ok {
				return q, fmt.Errorf("step %d is not a table", i)
			}
			q.Steps = append(q.Steps, compileStep(st))
		}
	}

	if r := getTable(tbl, "rewards"); r != nil {
		q.Rewards = compileRewards(r)
	}
	if r := getTable(tbl, "requires"); r != nil {
		q.Requirements = types.Requirements{
			RequiredQuests: getStrings(r, "quests"),
			RequiredFlags:  getStrings(r, "flags"),
		}
	}
	if m := getTable(tbl, "mail"); m != nil {
		q.Mail = types.QuestMail{
			BriefingMailID:        getString(m, "briefing"),
			CompletionMailID:      getString(m, "completion"),
			AutoDeliverOnAccept:   getStrings(m, "on_accept"),
			AutoDeliverOnComplete: getStrings(m, "on_complete"),
			PreviewMailIDs:        getStrings(m, "preview"),
		}
	}
	return q, nil
}

func compileTrigger(tbl *lua.LTable) *types.Trigger {
	return &types.Trigger{
		Type:      getString(tbl, "type"),
		QuestIDs:  getStrings(tbl, "quest_ids"),
		FlagKey:   getString(tbl, "flag_key"),
		FlagValue: getString(tbl, "flag_value"),
	}
}

func compileStep(tbl *lua.LTable) types.QuestStep {
	return types.QuestStep{
		ID:   getString(tbl, "id"),
		Type: getString(tbl, "type"),
		Params: types.StepParams{
			TargetIP: getString(tbl, "target_ip"),
			FilePath: getString(tbl, "file_path"),
		},
		TargetSystemID: firstString(tbl, "target_system_id", "system"),
		AutoAdvance:    getBoolPtr(tbl, "auto_advance"),
		Hints: types.StepHints{
			Prompt:         firstString(tbl, "prompt", "hint"),
			CommandExample: firstString(tbl, "command_example", "example"),
		},
	}
}

// compileRewards reads { credits = n, flags = { "k", Flag("k", "v") }, commands = {...} }.
func compileRewards(tbl *lua.LTable) types.Rewards {
	r := types.Rewards{
		Credits:         getInt(tbl, "credits"),
		UnlocksCommands: getStrings(tbl, "commands"),
	}
	if fl := getTable(tbl, "flags"); fl != nil {
		for i := 1; i <= fl.MaxN(); i++ {
			switch v := fl.RawGetInt(i).(type) {
			case lua.LString:
				r.Flags = append(r.Flags, types.RewardFlag{Key: string(v)})
			case *lua.LTable:
				r.Flags = append(r.Flags, types.RewardFlag{Key: getString(v, "key"), Value: getString(v, "value")})
			}
		}
	}
	return r
}

func compileDelivery(tbl *lua.LTable) *types.MailDelivery {
	return &types.MailDelivery{
		Condition: getString(tbl, "condition"),
		QuestID:   getString(tbl, "quest_id"),
		FlagKey:   getString(tbl, "flag_key"),
		FlagValue: getString(tbl, "flag_value"),
	}
}

func compileMail(raw rawDef) types.MailDefinition {
	tbl := raw.table
	m := types.MailDefinition{
		ID:      raw.id,
		From:    getString(tbl, "from"),
		Subject: getString(tbl, "subject"),
		Body:    getString(tbl, "body"),
		QuestID: firstString(tbl, "quest", "quest_id"),
	}
	if d := getTable(tbl, "delivery"); d != nil {
		m.Delivery = compileDelivery(d)
	}
	return m
}
