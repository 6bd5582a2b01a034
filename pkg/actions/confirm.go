package actions

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// TerminalConfirm asks on the terminal attached to in. When in is not a
// terminal it fails with ErrNotInteractive.
func TerminalConfirm(in *os.File) Confirmer {
	return func(prompt string) (bool, error) {
		fd := in.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false, ErrNotInteractive
		}
		var ok bool
		err := huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		if err != nil {
			return false, err
		}
		return ok, nil
	}
}
