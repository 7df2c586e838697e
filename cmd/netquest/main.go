// Netquest validates, inspects and plays quest content for the hacking sim.
// Usage: netquest [--config <file>] [--version] <command> [args]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `Usage: netquest [--config <file>] [--version] <command> [args]

Commands:
  validate [dir]                         Check content and report errors and warnings
  graph [dir] <quest_id>                 Show quests unlocking and unlocked by a quest
  play [--plain] [--script <file>] [--trace] [--player <id>] [--db] [dir]
                                         Play content in the terminal
  import [dir]                           Store content in the SQLite database
  export <dir>                           Write stored content as YAML
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses global flags and dispatches a command. It returns the process
// exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var configPath string

	for len(args) > 0 {
		switch args[0] {
		case "--version":
			fmt.Fprintf(stdout, "netquest %s (commit %s, built %s)\n", version, commit, date)
			return 0
		case "--config":
			if len(args) < 2 {
				fmt.Fprintln(stderr, "--config requires a file path")
				return 2
			}
			configPath = args[1]
			args = args[2:]
			continue
		}
		break
	}

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	app, err := newApp(configPath, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer app.close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "validate":
		return app.validate(rest)
	case "graph":
		return app.graph(rest)
	case "play":
		return app.play(ctx, rest)
	case "import":
		return app.importContent(ctx, rest)
	case "export":
		return app.exportContent(ctx, rest)
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}
