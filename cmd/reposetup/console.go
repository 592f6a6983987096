package reposetup

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/arthur-debert/reposetup/pkg/types"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func levelStyle(level types.LogLevel) lipgloss.Style {
	switch level {
	case types.LevelWarning:
		return warningStyle
	case types.LevelError:
		return errorStyle
	case types.LevelSuccess:
		return successStyle
	default:
		return infoStyle
	}
}

// useColor reports whether w is an interactive terminal worth styling.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// consoleSink renders pipeline progress as timestamped leveled lines.
type consoleSink struct {
	out   io.Writer
	color bool
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, color: useColor(out)}
}

func (s *consoleSink) Log(level types.LogLevel, message string) {
	label := string(level)
	if s.color {
		label = levelStyle(level).Render(label)
	}
	fmt.Fprintf(s.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), label, message)
}

// consoleNotifier renders the run's final outcome.
type consoleNotifier struct {
	out   io.Writer
	color bool
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out, color: useColor(out)}
}

func (n *consoleNotifier) Notify(outcome types.Outcome) {
	if outcome.Success {
		msg := fmt.Sprintf(MsgSetupSuccessFormat, outcome.RepoPath)
		if n.color {
			msg = successStyle.Render(msg)
		}
		fmt.Fprintln(n.out)
		fmt.Fprint(n.out, msg)
		if outcome.Installed {
			fmt.Fprintln(n.out, MsgSetupInstalledNote)
		}
		return
	}

	msg := fmt.Sprintf(MsgSetupFailedFormat, outcome.Message)
	if n.color {
		msg = errorStyle.Render(msg)
	}
	fmt.Fprintln(n.out)
	fmt.Fprint(n.out, msg)
	for _, hint := range outcome.Hints {
		line := fmt.Sprintf(MsgHintItem, hint)
		if n.color {
			line = hintStyle.Render(line)
		}
		fmt.Fprint(n.out, line)
	}
}
