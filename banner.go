package main

import (
	"fmt"
	"io"
	"time"
)

const version = "0.2.0"

type palette struct{ enabled bool }

func (p palette) wrap(code, text string) string {
	if !p.enabled {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func (p palette) bold(text string) string  { return p.wrap("1", text) }
func (p palette) green(text string) string { return p.wrap("32", text) }
func (p palette) cyan(text string) string  { return p.wrap("36", text) }
func (p palette) gray(text string) string  { return p.wrap("90", text) }

// printBanner writes the startup summary with the addresses to open.
func printBanner(w io.Writer, color bool, ready time.Duration, local string, network []string) {
	p := palette{enabled: color}

	fmt.Fprintf(w, "\n  %s %s  %s %s\n\n",
		p.bold(p.cyan("HOTSERVER")), p.cyan("v"+version),
		p.gray("ready in"), p.bold(p.green(fmt.Sprintf("%d ms", ready.Milliseconds()))))

	fmt.Fprintf(w, "  %s  %s:   %s\n", p.green("➜"), p.bold("Local"), p.cyan(local))
	for _, url := range network {
		fmt.Fprintf(w, "  %s  %s: %s\n", p.green("➜"), p.bold("Network"), p.cyan(url))
	}
	fmt.Fprintln(w)
}
