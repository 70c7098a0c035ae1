//go:build windows

package main

import (
	"fmt"
	"io"

	"golang.org/x/sys/windows"
)

// ClearScreen clears the console including its scroll back.
func ClearScreen(w io.Writer) {
	stdout, err := windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	if err != nil {
		return
	}

	var originalMode uint32
	if err := windows.GetConsoleMode(stdout, &originalMode); err != nil {
		return
	}
	if err := windows.SetConsoleMode(stdout, originalMode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
		return
	}
	defer func() { _ = windows.SetConsoleMode(stdout, originalMode) }()

	const clearScreen = "\x1b[2J"
	const clearScrollBack = "\x1b[3J"
	const resetCursor = "\x1b[H"

	fmt.Fprint(w, clearScreen+clearScrollBack+resetCursor)
}
