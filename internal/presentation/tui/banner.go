package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text, color string
}{
	{" _             _      _          _     _", "#818cf8"},
	{"| | ___   __ _(_) ___| |__  _ __(_) __| | __ _  ___", "#a78bfa"},
	{"| |/ _ \\ / _` | |/ __| '_ \\| '__| |/ _` |/ _` |/ _ \\", "#c084fc"},
	{"| | (_) | (_| | | (__| |_) | |  | | (_| | (_| |  __/", "#e879f9"},
	{"|_|\\___/ \\__, |_|\\___|_.__/|_|  |_|\\__,_|\\__, |\\___|", "#f472b6"},
	{"         |___/                           |___/", "#fb7185"},
}

// PrintBanner writes the REPL banner to w, colored for the terminal's profile.
func PrintBanner(w io.Writer) {
	o := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, o.String(line.text).Foreground(o.Color(line.color)))
	}
	fmt.Fprintln(w)
}

// Status styles a one-line status message: green when ok, red otherwise.
func Status(w io.Writer, ok bool, msg string) {
	o := termenv.NewOutput(w)
	color := "#22c55e"
	if !ok {
		color = "#ef4444"
	}
	fmt.Fprintln(w, o.String(msg).Foreground(o.Color(color)).Bold())
}
