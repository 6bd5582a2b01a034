package actions

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInteractive is returned when a confirmation is needed but there is
// no terminal to ask on.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (use -yes)")

// UnknownActionError lists every action name in a chain that is not in the
// table. It is returned before any action runs.
type UnknownActionError struct {
	Names []string
}

func (e *UnknownActionError) Error() string {
	dashed := make([]string, len(e.Names))
	for i, n := range e.Names {
		dashed[i] = "-" + n
	}
	return fmt.Sprintf("unrecognized action(s): %s (see -help)", strings.Join(dashed, ", "))
}

// InternalError is a broken handler contract, not a user error.
type InternalError struct {
	Action string
	Msg    string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in -%s: %s", e.Action, e.Msg)
}

// ActionError wraps the error a handler returned.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("-%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
