//go:build !windows

package main

import (
	"fmt"
	"io"
)

// ClearScreen clears the terminal and moves the cursor to the top left.
func ClearScreen(w io.Writer) {
	const clear = "\033[2J"
	const moveTopLeft = "\033[H"
	fmt.Fprint(w, clear+moveTopLeft)
}
