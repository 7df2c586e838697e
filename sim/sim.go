// Package sim drives a player session from typed terminal commands. It is
// shared by the line-based CLI and the TUI: it parses input into events,
// tracks the connected host, and renders results as output lines.
package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine"
	"github.com/nathoo/netquest/engine/parser"
	"github.com/nathoo/netquest/engine/resolve"
	"github.com/nathoo/netquest/engine/save"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// Response is the output of one input line.
type Response struct {
	Lines  []string
	System bool // meta-command output
	Quit   bool
}

// Sim is a single-player simulator over an engine session.
type Sim struct {
	sess    *engine.Session
	corpus  *corpus.Corpus
	saveDir string

	// Trace appends intents and lifecycle events to every response.
	Trace bool

	host    string
	lastCmd string
}

// New creates a simulator over a running session.
func New(sess *engine.Session, c *corpus.Corpus, saveDir string) *Sim {
	return &Sim{sess: sess, corpus: c, saveDir: saveDir}
}

// Host returns the currently connected host, if any.
func (s *Sim) Host() string { return s.host }

// State returns a copy of the player's state.
func (s *Sim) State() *types.PlayerState { return s.sess.State() }

// Corpus returns the content the simulator plays.
func (s *Sim) Corpus() *corpus.Corpus { return s.corpus }

// Boot starts the game and opens the terminal unless the restored state
// already did.
func (s *Sim) Boot(ctx context.Context) Response {
	var resp Response
	st := s.sess.State()
	if !st.GameStarted {
		resp.Lines = append(resp.Lines, "NetOS 4.2 booting...")
		resp.Lines = append(resp.Lines, s.submit(ctx, types.Event{Type: types.EventGameStart})...)
	}
	if !st.TerminalOpened {
		resp.Lines = append(resp.Lines, "Terminal ready. Type /help for commands.")
		resp.Lines = append(resp.Lines, s.submit(ctx, types.Event{Type: types.EventTerminalOpen})...)
	}
	if len(resp.Lines) == 0 {
		resp.Lines = append(resp.Lines, "Session restored. Type /quests to see where you are.")
	}
	return resp
}

// Exec handles one input line.
func (s *Sim) Exec(ctx context.Context, input string) Response {
	input = strings.TrimSpace(input)
	if input == "" {
		return Response{}
	}
	if strings.HasPrefix(input, "/") {
		return s.meta(ctx, input)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if s.lastCmd == "" {
			return Response{Lines: []string{"Nothing to repeat."}, System: true}
		}
		input = s.lastCmd
	} else {
		s.lastCmd = input
	}

	ev, err := parser.ParseEvent(input)
	if err != nil {
		var uv *parser.UnknownVerbError
		if errors.As(err, &uv) {
			return Response{Lines: []string{fmt.Sprintf("%s: command not found", uv.Verb)}}
		}
		return Response{Lines: []string{err.Error()}}
	}

	ev, echo, err := s.prepare(ev)
	if err != nil {
		return Response{Lines: []string{err.Error()}}
	}
	ev, err = resolve.Event(s.corpus, s.sess.State(), ev)
	if err != nil {
		return Response{Lines: []string{err.Error()}}
	}

	lines := append(echo, s.submit(ctx, ev)...)
	return Response{Lines: lines}
}

// prepare fills in the connected host and returns terminal feedback for
// step commands.
func (s *Sim) prepare(ev types.Event) (types.Event, []string, error) {
	if ev.Type != types.EventStepCompleted {
		return ev, nil, nil
	}
	switch ev.StepType {
	case types.StepScanHost:
		return ev, []string{fmt.Sprintf("Scanning %s... host is up.", ev.TargetIP)}, nil
	case types.StepConnectHost:
		s.host = ev.TargetIP
		return ev, []string{fmt.Sprintf("Connected to %s.", ev.TargetIP)}, nil
	case types.StepDeleteFile:
		if ev.TargetIP == "" {
			ev.TargetIP = s.host
		}
		if ev.TargetIP == "" {
			return ev, nil, errors.New("rm: not connected (use: rm <path> on <ip>)")
		}
		return ev, []string{fmt.Sprintf("Removed %s on %s.", ev.FilePath, ev.TargetIP)}, nil
	case types.StepDisconnectHost:
		if ev.TargetIP == "" {
			ev.TargetIP = s.host
		}
		if ev.TargetIP == "" {
			return ev, []string{"Disconnected."}, nil
		}
		s.host = ""
		return ev, []string{fmt.Sprintf("Disconnected from %s.", ev.TargetIP)}, nil
	}
	return ev, nil, nil
}

func (s *Sim) submit(ctx context.Context, ev types.Event) []string {
	out, err := s.sess.Do(ctx, ev)
	if err != nil {
		return []string{fmt.Sprintf("[error: %v]", err)}
	}
	lines := s.render(out.State, out.Result)
	if s.Trace {
		lines = append(lines, FormatTrace(out.Result)...)
	}
	return lines
}

// render turns an evaluation result into player-facing lines.
func (s *Sim) render(st *types.PlayerState, r types.Result) []string {
	var lines []string

	for _, m := range r.Mail {
		lines = append(lines, s.mailLine(m.MailID))
	}

	accepted := map[string]bool{}
	for _, id := range r.Accepted {
		accepted[id] = true
	}
	for _, id := range r.Activated {
		if accepted[id] {
			continue
		}
		lines = append(lines, fmt.Sprintf("[Quest offered] %s", s.title(id)))
		lines = append(lines, fmt.Sprintf("  Type 'accept %s' to begin.", id))
	}
	for _, id := range r.Accepted {
		lines = append(lines, fmt.Sprintf("[Quest accepted] %s", s.title(id)))
	}

	completed := map[string]bool{}
	for _, id := range r.Completed {
		completed[id] = true
	}
	for _, in := range r.Intents {
		switch in.Type {
		case types.IntentArmConfirm:
			if q := s.corpus.Quest(in.QuestID); q != nil && in.StepIndex < len(q.Steps) {
				step := q.Steps[in.StepIndex]
				lines = append(lines, fmt.Sprintf("  Step %q done. Type 'confirm %s' to continue.", step.ID, step.ID))
			}
		case types.IntentAdvanceStep, types.IntentAcceptQuest:
			if !completed[in.QuestID] {
				lines = append(lines, s.nextStepLines(st, in.QuestID)...)
			}
		}
	}

	rewards := map[string]types.Intent{}
	for _, in := range r.Intents {
		if in.Type == types.IntentGrantReward {
			rewards[in.QuestID] = in
		}
	}
	for _, id := range r.Completed {
		line := fmt.Sprintf("[Quest complete] %s", s.title(id))
		reward := rewards[id]
		if reward.Credits > 0 {
			line += fmt.Sprintf(" (+%d credits)", reward.Credits)
		}
		lines = append(lines, line)
		if len(reward.Commands) > 0 {
			lines = append(lines, "  Unlocked: "+strings.Join(reward.Commands, ", "))
		}
	}

	for _, a := range r.Anomalies {
		lines = append(lines, "[!] "+a)
	}
	return lines
}

func (s *Sim) nextStepLines(st *types.PlayerState, questID string) []string {
	p, ok := state.ActiveStep(st, questID)
	if !ok || p.AwaitingConfirm {
		return nil
	}
	q := s.corpus.Quest(questID)
	if q == nil || p.StepIndex >= len(q.Steps) {
		return nil
	}
	return []string{"  Next: " + describeStep(q.Steps[p.StepIndex])}
}

func describeStep(st types.QuestStep) string {
	text := st.Hints.Prompt
	if text == "" {
		switch st.Type {
		case types.StepScanHost:
			text = "scan " + st.Params.TargetIP
		case types.StepConnectHost:
			text = "connect to " + st.Params.TargetIP
		case types.StepDeleteFile:
			text = fmt.Sprintf("delete %s on %s", st.Params.FilePath, st.Params.TargetIP)
		case types.StepDisconnectHost:
			text = "disconnect"
		default:
			text = st.ID
		}
	}
	if st.Hints.CommandExample != "" {
		text += fmt.Sprintf(" (try: %s)", st.Hints.CommandExample)
	}
	return text
}

func (s *Sim) title(questID string) string {
	if q := s.corpus.Quest(questID); q != nil && q.Title != "" {
		return q.Title
	}
	return questID
}

func (s *Sim) mailLine(mailID string) string {
	m := s.corpus.Mail(mailID)
	if m == nil {
		return "[Mail] " + mailID
	}
	from := m.From
	if from == "" {
		from = "unknown"
	}
	return fmt.Sprintf("[Mail] %s: %s", from, m.Subject)
}

// FormatTrace lists the intents and lifecycle events of a result.
func FormatTrace(r types.Result) []string {
	var lines []string
	if len(r.Intents) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Intents: %d", len(r.Intents)))
		for _, in := range r.Intents {
			line := "[trace]   " + in.Type
			if in.QuestID != "" {
				line += " quest=" + in.QuestID
			}
			if in.MailID != "" {
				line += " mail=" + in.MailID
			}
			if in.Reason != "" {
				line += " reason=" + in.Reason
			}
			lines = append(lines, line)
		}
	}
	if len(r.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(r.Events)))
		for _, e := range r.Events {
			line := "[trace]   " + e.Type
			if e.QuestID != "" {
				line += " quest=" + e.QuestID
			}
			if e.FlagKey != "" {
				line += fmt.Sprintf(" flag=%s=%s", e.FlagKey, e.FlagValue)
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func (s *Sim) meta(ctx context.Context, input string) Response {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	var lines []string
	switch cmd {
	case "/quit", "/exit":
		return Response{Lines: []string{"Goodbye."}, System: true, Quit: true}
	case "/save":
		lines = s.cmdSave(arg)
	case "/load":
		lines = s.cmdLoad(ctx, arg)
	case "/help":
		lines = helpLines()
	case "/state":
		lines = s.cmdState()
	case "/quests":
		lines = s.cmdQuests()
	case "/mail":
		lines = s.cmdMail(arg)
	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			lines = []string{"Trace output enabled."}
		} else {
			lines = []string{"Trace output disabled."}
		}
	default:
		lines = []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}
	}
	return Response{Lines: lines, System: true}
}

// savePath maps a save name to a file in the save directory. Names must be
// plain file names.
func (s *Sim) savePath(name string) (string, error) {
	if name == "" {
		name = "quicksave"
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid save name %q", name)
	}
	return filepath.Join(s.saveDir, name+".json"), nil
}

func (s *Sim) cmdSave(name string) []string {
	data, err := save.Save(s.sess.State())
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.MkdirAll(s.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	path, err := s.savePath(name)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Saved to %s.", path)}
}

func (s *Sim) cmdLoad(ctx context.Context, name string) []string {
	path, err := s.savePath(name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if _, err := s.sess.Restore(ctx, sd.State); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	s.host = ""
	return append([]string{fmt.Sprintf("Loaded %s (saved %s).", path, sd.SavedAt.Format("2006-01-02 15:04"))}, s.cmdQuests()...)
}

func (s *Sim) cmdState() []string {
	st := s.sess.State()
	lines := []string{
		fmt.Sprintf("Player: %s (revision %d)", st.PlayerID, st.Revision),
		fmt.Sprintf("Credits: %d", st.Credits),
	}
	if s.host != "" {
		lines = append(lines, "Connected: "+s.host)
	}
	if len(st.Flags) > 0 {
		keys := make([]string, 0, len(st.Flags))
		for k := range st.Flags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + st.Flags[k]
		}
		lines = append(lines, "Flags: "+strings.Join(pairs, " "))
	}
	if len(st.UnlockedCommands) > 0 {
		lines = append(lines, "Commands: "+strings.Join(st.UnlockedCommands, ", "))
	}
	lines = append(lines, fmt.Sprintf("Mailbox: %d message(s)", len(st.Mailbox)))
	return lines
}

func (s *Sim) cmdQuests() []string {
	st := s.sess.State()
	var active, offered, done []string
	for _, q := range s.corpus.Quests() {
		switch state.Status(st, q.ID) {
		case types.QuestInProgress:
			line := fmt.Sprintf("  %s [%s]", q.Title, q.ID)
			if p, ok := state.ActiveStep(st, q.ID); ok && p.StepIndex < len(q.Steps) {
				step := q.Steps[p.StepIndex]
				if p.AwaitingConfirm {
					line += fmt.Sprintf(": confirm %s", step.ID)
				} else {
					line += ": " + describeStep(step)
				}
			}
			active = append(active, line)
		case types.QuestCompleted:
			done = append(done, fmt.Sprintf("  %s [%s]", q.Title, q.ID))
		default:
			if st.Offered[q.ID] {
				offered = append(offered, fmt.Sprintf("  %s [%s]", q.Title, q.ID))
			}
		}
	}
	if len(active)+len(offered)+len(done) == 0 {
		return []string{"No quests yet."}
	}
	var lines []string
	if len(active) > 0 {
		lines = append(append(lines, "Active:"), active...)
	}
	if len(offered) > 0 {
		lines = append(append(lines, "Offered:"), offered...)
	}
	if len(done) > 0 {
		lines = append(append(lines, "Completed:"), done...)
	}
	return lines
}

func (s *Sim) cmdMail(id string) []string {
	st := s.sess.State()
	if id == "" {
		if len(st.Mailbox) == 0 {
			return []string{"Mailbox is empty."}
		}
		lines := make([]string, 0, len(st.Mailbox))
		for _, mid := range st.Mailbox {
			lines = append(lines, fmt.Sprintf("%s  %s", mid, strings.TrimPrefix(s.mailLine(mid), "[Mail] ")))
		}
		return lines
	}
	if !state.HasMail(st, id) {
		return []string{fmt.Sprintf("No message %q in your mailbox.", id)}
	}
	m := s.corpus.Mail(id)
	if m == nil {
		return []string{fmt.Sprintf("Message %q is gone.", id)}
	}
	lines := []string{"From: " + m.From, "Subject: " + m.Subject, ""}
	return append(lines, strings.Split(m.Body, "\n")...)
}

func helpLines() []string {
	return []string{
		"System:",
		"  /save [name]   Save game (default: quicksave)",
		"  /load [name]   Load game (default: quicksave)",
		"  /quests        List quests",
		"  /mail [id]     List or read mail",
		"  /state         Show credits, flags and commands",
		"  /trace         Toggle intent trace output",
		"  /quit          Exit",
		"",
		"Terminal:",
		"  scan <ip>                 Probe a host",
		"  connect <ip>              Open a session to a host",
		"  rm <path> [on <ip>]       Delete a file",
		"  disconnect                Close the session",
		"  accept <quest>            Start an offered quest",
		"  confirm <step> [for <quest>]",
		"  flag <key[=value]> ...    Set flags (scripting)",
		"  mail <id>                 Deliver a mail (scripting)",
		"  again (g)                 Repeat the last command",
	}
}
