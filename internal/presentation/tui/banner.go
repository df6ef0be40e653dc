package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the faultline banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"   __             _ _   _ _            ", "#fbbf24"},
		{"  / _| __ _ _   _| | |_| (_)_ __   ___ ", "#f59e0b"},
		{" | |_ / _` | | | | | __| | | '_ \\ / _ \\", "#f97316"},
		{" |  _| (_| | |_| | | |_| | | | | |  __/", "#ef4444"},
		{" |_|  \\__,_|\\__,_|_|\\__|_|_|_| |_|\\___|", "#dc2626"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
