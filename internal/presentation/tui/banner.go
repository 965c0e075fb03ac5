package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Bookflow banner, coloured when the terminal supports it.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___           _      __ _              ", "#34d399"},
		{" | _ ) ___  ___| |__  / _| |_____ __ __  ", "#2dd4bf"},
		{" | _ \\/ _ \\/ _ \\ / / |  _| / _ \\ V  V /  ", "#22d3ee"},
		{" |___/\\___/\\___/_\\_\\ |_| |_\\___/\\_/\\_/   ", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  librería conversacional v"+version).Faint())
	fmt.Fprintln(w)
}
