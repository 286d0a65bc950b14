package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the actgraph banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Indigo to rose
	lines := []termenv.Style{
		termenv.String("             _                          _     ").Foreground(p.Color("#818cf8")),
		termenv.String("   __ _  ___| |_ __ _ _ __ __ _ _ __ | |__  ").Foreground(p.Color("#a78bfa")),
		termenv.String("  / _` |/ __| __/ _` | '__/ _` | '_ \\| '_ \\ ").Foreground(p.Color("#c084fc")),
		termenv.String(" | (_| | (__| || (_| | | | (_| | |_) | | | |").Foreground(p.Color("#e879f9")),
		termenv.String("  \\__,_|\\___|\\__\\__, |_|  \\__,_| .__/|_| |_|").Foreground(p.Color("#f472b6")),
		termenv.String("                |___/          |_|          ").Foreground(p.Color("#fb7185")),
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}
