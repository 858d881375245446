// Package tui holds the interactive pieces of the CLI: TTY detection, the
// waiting spinner, the action menu and clipboard access.
package tui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout is a terminal and /dev/tty can be opened,
// which the menu needs for keyboard input.
func IsTTY() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return false
	}
	_ = tty.Close()
	return true
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
