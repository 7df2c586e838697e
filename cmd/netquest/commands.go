package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathoo/netquest/cli"
	"github.com/nathoo/netquest/config"
	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine"
	"github.com/nathoo/netquest/loader"
	"github.com/nathoo/netquest/logger"
	"github.com/nathoo/netquest/sim"
	"github.com/nathoo/netquest/store"
	"github.com/nathoo/netquest/tui"
	"github.com/nathoo/netquest/types"
)

// closeTimeout bounds the final snapshot flush on exit.
const closeTimeout = 5 * time.Second

type app struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	log    *slog.Logger
	closer io.Closer
}

func newApp(configPath string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := a.setupLog(stderr); err != nil {
		return nil, err
	}
	return a, nil
}

// setupLog (re)builds the logger with console output going to console.
// A nil console keeps only the log file.
func (a *app) setupLog(console io.Writer) error {
	if a.closer != nil {
		_ = a.closer.Close()
	}
	log, closer, err := logger.Setup(a.cfg.Log, console)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.log, a.closer = log, closer
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func (a *app) contentDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.ContentDir
}

// loadContent loads dir and prints any load errors.
func (a *app) loadContent(dir string) (*corpus.Corpus, bool) {
	c, err := loader.Load(dir)
	if err != nil {
		var ve *corpus.ValidationError
		if errors.As(err, &ve) {
			for _, e := range ve.Errors {
				fmt.Fprintf(a.stderr, "error: %s\n", e)
			}
		} else {
			fmt.Fprintf(a.stderr, "Error loading content: %v\n", err)
		}
		return nil, false
	}
	return c, true
}

// report prints validation results and returns whether there were no errors.
func (a *app) report(r corpus.Report) bool {
	for _, e := range r.Errors {
		fmt.Fprintf(a.stderr, "error: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(a.stderr, "warning: %s\n", w)
	}
	return r.OK()
}

func (a *app) validate(args []string) int {
	c, ok := a.loadContent(a.contentDir(args))
	if !ok {
		return 1
	}
	r := corpus.ValidateAll(c)
	a.report(r)
	fmt.Fprintf(a.stdout, "%d quests, %d mail: %d errors, %d warnings\n",
		c.Len(), len(c.Mails()), len(r.Errors), len(r.Warnings))
	if !r.OK() {
		return 1
	}
	return 0
}

func (a *app) graph(args []string) int {
	var dir, id string
	switch len(args) {
	case 1:
		dir, id = a.cfg.ContentDir, args[0]
	case 2:
		dir, id = args[0], args[1]
	default:
		fmt.Fprintln(a.stderr, "usage: netquest graph [dir] <quest_id>")
		return 2
	}

	c, ok := a.loadContent(dir)
	if !ok {
		return 1
	}
	q := c.Quest(id)
	if q == nil {
		fmt.Fprintf(a.stderr, "unknown quest %q\n", id)
		return 1
	}

	g := corpus.Build(c)
	rel := g.Relationships(id)
	fmt.Fprintf(a.stdout, "%s [%s]\n", q.Title, q.ID)
	fmt.Fprintf(a.stdout, "  previous: %s\n", list(rel.Previous))
	fmt.Fprintf(a.stdout, "  next:     %s\n", list(rel.Next))
	fmt.Fprintf(a.stdout, "  shared:   %s\n", list(rel.Shared))
	if q.FollowUpQuestID != "" {
		fmt.Fprintf(a.stdout, "  follow-up: %s\n", q.FollowUpQuestID)
	}
	if cycle := g.Cycle(id); len(cycle) > 0 {
		fmt.Fprintf(a.stdout, "  cycle:    %s\n", list(cycle))
	}
	return 0
}

func list(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

type playFlags struct {
	plain   bool
	trace   bool
	fromDB  bool
	script  string
	player  string
	dirArgs []string
}

func parsePlayFlags(args []string) (playFlags, error) {
	f := playFlags{player: "local"}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--plain":
			f.plain = true
		case "--trace":
			f.trace = true
		case "--db":
			f.fromDB = true
		case "--script", "--player":
			if i+1 >= len(args) {
				return f, fmt.Errorf("%s requires a value", args[i])
			}
			if args[i] == "--script" {
				f.script = args[i+1]
			} else {
				f.player = args[i+1]
			}
			i++
		default:
			if strings.HasPrefix(args[i], "--") {
				return f, fmt.Errorf("unknown flag %s", args[i])
			}
			f.dirArgs = append(f.dirArgs, args[i])
		}
	}
	return f, nil
}

func (a *app) play(ctx context.Context, args []string) int {
	f, err := parsePlayFlags(args)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 2
	}

	var c *corpus.Corpus
	if f.fromDB {
		db, err := store.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		// Drafts stay in the snapshot so references resolve; the engine
		// decides whether to offer them.
		c, err = db.Corpus(ctx, true)
		_ = db.Close()
		if err != nil {
			fmt.Fprintf(a.stderr, "Error loading content: %v\n", err)
			return 1
		}
	} else {
		var ok bool
		if c, ok = a.loadContent(a.contentDir(f.dirArgs)); !ok {
			return 1
		}
	}
	if r := corpus.ValidateAll(c); !r.OK() {
		a.report(r)
		return 1
	} else if len(r.Warnings) > 0 {
		a.log.Warn("content has warnings", "count", len(r.Warnings))
	}

	tuiMode := f.script == "" && !f.plain && isTerminal()
	if tuiMode {
		// Console logs would draw over the TUI.
		if err := a.setupLog(nil); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
	}

	mgr, release, err := a.manager(ctx, c)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := mgr.Close(cctx); err != nil {
			a.log.Error("closing sessions", "error", err)
		}
		release()
	}()

	sess, err := mgr.Session(ctx, f.player)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	s := sim.New(sess, c, a.cfg.SaveDir)
	s.Trace = f.trace

	if tuiMode {
		if err := tui.Run(ctx, s); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	term := cli.New(s)
	term.In = a.stdin
	term.Out = a.stdout
	if f.script != "" {
		file, err := os.Open(f.script)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error opening script: %v\n", err)
			return 1
		}
		defer file.Close()
		term.In = file
		term.EchoInput = true
	}
	term.Run(ctx)
	return 0
}

// manager builds the session manager with Redis snapshots when configured,
// in-memory snapshots otherwise. release closes the snapshot store once the
// manager is closed.
func (a *app) manager(ctx context.Context, c *corpus.Corpus) (mgr *engine.Manager, release func(), err error) {
	eng := engine.New(c, engine.Options{
		IncludeDrafts: a.cfg.IncludeDrafts,
		AutoAccept:    a.cfg.AutoAccept,
	}, a.log)

	var snapshots interface {
		engine.Persister
		engine.StateLoader
	}
	release = func() {}
	if a.cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, a.cfg.RedisURL, a.cfg.SnapshotTTL, a.log)
		if err != nil {
			return nil, nil, err
		}
		snapshots = rs
		release = func() { _ = rs.Close() }
	} else {
		snapshots = store.NewMemoryStore()
	}

	mgr = engine.NewManager(eng,
		engine.WithPersister(snapshots),
		engine.WithStateLoader(snapshots),
		engine.WithRewardGranter(logGranter{log: a.log}),
		engine.WithLogger(a.log),
	)
	return mgr, release, nil
}

// logGranter records rewards. The simulated terminal has no runtime of its
// own to hand them to.
type logGranter struct {
	log *slog.Logger
}

func (g logGranter) Grant(_ context.Context, playerID string, reward types.Intent) error {
	g.log.Info("reward granted",
		"player", playerID, "quest", reward.QuestID,
		"credits", reward.Credits, "commands", reward.Commands)
	return nil
}

func (a *app) importContent(ctx context.Context, args []string) int {
	c, ok := a.loadContent(a.contentDir(args))
	if !ok {
		return 1
	}
	if !a.report(corpus.ValidateAll(c)) {
		return 1
	}

	db, err := store.OpenSQLite(a.cfg.SQLitePath)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()
	if err := db.Import(ctx, c); err != nil {
		fmt.Fprintf(a.stderr, "Error importing: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Imported %d quests and %d mail into %s.\n", c.Len(), len(c.Mails()), a.cfg.SQLitePath)
	return 0
}

func (a *app) exportContent(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.stderr, "usage: netquest export <dir>")
		return 2
	}
	db, err := store.OpenSQLite(a.cfg.SQLitePath)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()

	c, err := db.Corpus(ctx, true)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error reading store: %v\n", err)
		return 1
	}
	doc := &loader.Document{}
	for _, q := range c.Quests() {
		doc.Quests = append(doc.Quests, *q)
	}
	for _, m := range c.Mails() {
		doc.Mail = append(doc.Mail, *m)
	}
	data, err := loader.MarshalYAML(doc)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error encoding: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(args[0], 0o755); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	path := filepath.Join(args[0], "corpus.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Exported %d quests and %d mail to %s.\n", len(doc.Quests), len(doc.Mail), path)
	return 0
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
