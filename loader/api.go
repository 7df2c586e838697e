package loader

import (
	"github.com/nathoo/netquest/types"
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerTriggerHelpers(L)
	registerStepHelpers(L)
	registerDeliveryHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Quest "id" { ... } is curried: Quest("id") returns a function that takes a table.
	L.SetGlobal("Quest", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.quests = append(coll.quests, rawDef{id: id, table: tbl, file: coll.file})
			return 0
		}))
		return 1
	}))

	// Mail "id" { ... }, curried the same way.
	L.SetGlobal("Mail", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.mail = append(coll.mail, rawDef{id: id, table: tbl, file: coll.file})
			return 0
		}))
		return 1
	}))

	// Flag("key"[, "value"]) builds a reward flag.
	L.SetGlobal("Flag", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		if v := L.OptString(2, ""); v != "" {
			tbl.RawSetString("value", lua.LString(v))
		}
		L.Push(tbl)
		return 1
	}))
}

func registerTriggerHelpers(L *lua.LState) {
	// OnFirstTerminalOpen()
	L.SetGlobal("OnFirstTerminalOpen", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(types.TriggerFirstTerminalOpen))
		L.Push(tbl)
		return 1
	}))

	// OnQuestCompletion("a", "b", ...)
	L.SetGlobal("OnQuestCompletion", L.NewFunction(func(L *lua.LState) int {
		ids := L.NewTable()
		for i := 1; i <= L.GetTop(); i++ {
			ids.Append(lua.LString(L.CheckString(i)))
		}
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(types.TriggerQuestCompletion))
		tbl.RawSetString("quest_ids", ids)
		L.Push(tbl)
		return 1
	}))

	// OnFlagSet("key"[, "value"])
	L.SetGlobal("OnFlagSet", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(types.TriggerFlagSet))
		tbl.RawSetString("flag_key", lua.LString(L.CheckString(1)))
		if v := L.OptString(2, ""); v != "" {
			tbl.RawSetString("flag_value", lua.LString(v))
		}
		L.Push(tbl)
		return 1
	}))
}

// Step helpers take the step id first and an optional options table last:
//
//	Scan("recon", "10.0.0.1", { system = "relay", hint = "scan it" })
func registerStepHelpers(L *lua.LState) {
	step := func(stepType string, withIP, withPath bool) lua.LGFunction {
		return func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString("id", lua.LString(L.CheckString(1)))
			tbl.RawSetString("type", lua.LString(stepType))
			arg := 2
			if withIP {
				tbl.RawSetString("target_ip", lua.LString(L.CheckString(arg)))
				arg++
			}
			if withPath {
				tbl.RawSetString("file_path", lua.LString(L.CheckString(arg)))
				arg++
			}
			if opts, ok := L.Get(arg).(*lua.LTable); ok {
				opts.ForEach(func(k, v lua.LValue) {
					if ks, ok := k.(lua.LString); ok {
						tbl.RawSetString(string(ks), v)
					}
				})
			}
			L.Push(tbl)
			return 1
		}
	}

	L.SetGlobal("Scan", L.NewFunction(step(types.StepScanHost, true, false)))
	L.SetGlobal("Connect", L.NewFunction(step(types.StepConnectHost, true, false)))
	L.SetGlobal("Delete", L.NewFunction(step(types.StepDeleteFile, true, true)))
	L.SetGlobal("Disconnect", L.NewFunction(step(types.StepDisconnectHost, false, false)))
}

func registerDeliveryHelpers(L *lua.LState) {
	delivery := func(L *lua.LState, condition string) *lua.LTable {
		tbl := L.NewTable()
		tbl.RawSetString("condition", lua.LString(condition))
		return tbl
	}

	// AtGameStart()
	L.SetGlobal("AtGameStart", L.NewFunction(func(L *lua.LState) int {
		L.Push(delivery(L, types.DeliverGameStart))
		return 1
	}))

	// AfterQuest("id")
	L.SetGlobal("AfterQuest", L.NewFunction(func(L *lua.LState) int {
		tbl := delivery(L, types.DeliverAfterQuest)
		tbl.RawSetString("quest_id", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// WhenFlag("key"[, "value"])
	L.SetGlobal("WhenFlag", L.NewFunction(func(L *lua.LState) int {
		tbl := delivery(L, types.DeliverFlagSet)
		tbl.RawSetString("flag_key", lua.LString(L.CheckString(1)))
		if v := L.OptString(2, ""); v != "" {
			tbl.RawSetString("flag_value", lua.LString(v))
		}
		L.Push(tbl)
		return 1
	}))

	// Manual()
	L.SetGlobal("Manual", L.NewFunction(func(L *lua.LState) int {
		L.Push(delivery(L, types.DeliverManual))
		return 1
	}))
}
