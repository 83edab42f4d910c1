package csrng

import (
	"errors"
	"fmt"
)

// Command faults. Reaching either means firmware issued something the
// model does not implement; the simulation cannot continue faithfully.
var (
	ErrUnsupportedCommand = errors.New("csrng: unsupported command")
	ErrInvalidCommand     = errors.New("csrng: invalid command")
	ErrEntropyUnavailable = errors.New("csrng: entropy source unavailable")
)

// CommandError reports a faulting CMD_REQ word.
type CommandError struct {
	Kind    error
	Word    uint32
	Command Command
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%v: %s (word=0x%08x)", e.Kind, e.Reason, e.Word)
}

func (e *CommandError) Unwrap() error {
	return e.Kind
}

func unsupported(word uint32, cmd Command, reason string) error {
	return &CommandError{Kind: ErrUnsupportedCommand, Word: word, Command: cmd, Reason: reason}
}

func invalid(word uint32, cmd Command, reason string) error {
	return &CommandError{Kind: ErrInvalidCommand, Word: word, Command: cmd, Reason: reason}
}
