package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTerminal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleMail = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	styleQuest = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("249")).
			Italic(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindTerminal lineKind = iota
	kindMail
	kindQuest
	kindHint
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[Mail]"):
		return kindMail
	case strings.HasPrefix(line, "[Quest"):
		return kindQuest
	case strings.HasPrefix(line, "[!]"),
		strings.HasPrefix(line, "[error"),
		strings.HasSuffix(line, "command not found"),
		strings.HasPrefix(line, "usage:"),
		strings.HasPrefix(line, "no quest matches"):
		return kindError
	case strings.HasPrefix(line, "  "):
		return kindHint
	default:
		return kindTerminal
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindMail:
		return styleMail.Render(line)
	case kindQuest:
		return styledQuest(line)
	case kindHint:
		return styleHint.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleTerminal.Render(line)
	}
}

// styledQuest renders "[Quest accepted] Title" with the tag bold and the
// title plain.
func styledQuest(line string) string {
	end := strings.Index(line, "]")
	if end < 0 {
		return styleQuest.Render(line)
	}
	return styleQuest.Render(line[:end+1]) + styleTerminal.Render(line[end+1:])
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
