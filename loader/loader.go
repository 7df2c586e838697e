// Package loader reads quest and mail content from a directory of Lua, YAML
// and JSON files into an immutable corpus snapshot. Lua files use a small
// DSL; the Lua VM is discarded after loading.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/netquest/corpus"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	file   string
	quests []rawDef
	mail   []rawDef
}

// Load reads all content files from dir and returns the corpus snapshot.
// Files are read in name order; for duplicate ids the first definition wins
// and the duplicate is reported by the corpus validator. Structural problems
// (unreadable files, bad syntax, schema violations, missing ids) fail the
// load with a *corpus.ValidationError listing every offending file.
func Load(dir string) (*corpus.Corpus, error) {
	doc, err := LoadDocument(dir)
	if err != nil {
		return nil, err
	}
	return corpus.New(doc.Quests, doc.Mail), nil
}

// LoadDocument is Load without building the corpus.
func LoadDocument(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && isContentFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no content files (.lua, .yaml, .yml, .json) found in %s", dir)
	}
	sort.Strings(files)

	all := &Document{}
	ve := &corpus.ValidationError{}
	for _, f := range files {
		doc, err := LoadFile(filepath.Join(dir, f))
		if err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %v", f, err))
			continue
		}
		checkDocument(f, doc, ve)
		all.Quests = append(all.Quests, doc.Quests...)
		all.Mail = append(all.Mail, doc.Mail...)
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return all, nil
}

// LoadFile reads a single content file, choosing the format by extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return ParseLua(filepath.Base(path), string(data))
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported content file %s", path)
	}
}

// ParseLua executes Lua DSL source in a fresh sandboxed VM and compiles the
// collected definitions. name is used in error messages.
func ParseLua(name, src string) (*Document, error) {
	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// Open safe libs only.
	openSafeLibs(L)

	// Sandbox: remove dangerous globals.
	sandbox(L)

	// Register API.
	coll := &collector{file: name}
	registerAPI(L, coll)

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}
	return compile(coll)
}

func isContentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".lua", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Content must load the same way every time.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
