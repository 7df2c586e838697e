// Package cli provides the line-based terminal front end of the quest
// simulator. It is also used for script playback.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/netquest/sim"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Sim       *sim.Sim
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI over a simulator, reading stdin and writing stdout.
func New(s *sim.Sim) *CLI {
	return &CLI{
		Sim: s,
		In:  os.Stdin,
		Out: os.Stdout,
	}
}

// Run boots the session, then loops: prompt, input, dispatch, output. It
// returns when input ends, /quit is entered or ctx is done.
func (c *CLI) Run(ctx context.Context) {
	c.printResponse(c.Sim.Boot(ctx))

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print(c.prompt())
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		resp := c.Sim.Exec(ctx, input)
		c.printResponse(resp)
		if resp.Quit {
			return
		}
	}
}

func (c *CLI) prompt() string {
	if h := c.Sim.Host(); h != "" {
		return h + "> "
	}
	return "> "
}

func (c *CLI) printResponse(resp sim.Response) {
	for _, line := range resp.Lines {
		if resp.System {
			c.printSystem(line)
			continue
		}
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	if text == "" {
		c.printLine("")
		return
	}
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
