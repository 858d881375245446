package tui

import (
	"github.com/atotto/clipboard"

	"lmcommit/cli/internal/erruser"
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

// Copy puts text on the system clipboard.
func Copy(text string) error {
	if clipboard.Unsupported {
		return erruser.New("Clipboard is not available on this system.", nil)
	}
	if err := writeClipboard(text); err != nil {
		return erruser.New("Could not copy the commit message to the clipboard.", err)
	}
	return nil
}
