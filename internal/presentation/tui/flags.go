package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// FlagsMarkdown renders flags as a markdown table.
func FlagsMarkdown(flags []domain.Flag) string {
	var sb strings.Builder
	sb.WriteString("| Flag | State | Modifiable | Description |\n")
	sb.WriteString("|------|-------|------------|-------------|\n")
	for _, f := range flags {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			f.ID, stateLabel(f.Enabled), yesNo(f.Modifiable), escapeCell(f.Description))
	}
	return sb.String()
}

// WriteFlagsPlain writes flags as aligned columns. The state column is
// colored according to the terminal profile of out.
func WriteFlagsPlain(out io.Writer, flags []domain.Flag) error {
	output := termenv.NewOutput(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FLAG\tSTATE\tMODIFIABLE\tDESCRIPTION")
	for _, f := range flags {
		state := output.String(stateLabel(f.Enabled))
		if f.Enabled {
			state = state.Foreground(output.Color("#ef4444")).Bold()
		} else {
			state = state.Foreground(output.Color("#22c55e"))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, state, yesNo(f.Modifiable), f.Description)
	}
	return tw.Flush()
}

// PrintFlags writes flags to out: glamour markdown when out is a terminal,
// plain columns otherwise.
func PrintFlags(out io.Writer, flags []domain.Flag) error {
	if isTerminal(out) {
		rendered, err := NewRenderer()(FlagsMarkdown(flags))
		if err == nil {
			_, err = io.WriteString(out, rendered)
			return err
		}
	}
	return WriteFlagsPlain(out, flags)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func stateLabel(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
