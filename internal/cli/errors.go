package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Exit code for a run cut short without a known signal, as for SIGINT.
const exitInterrupted = 130

// ExitError is returned once the command has already reported the failure
// on stdout; the caller only has to exit with Code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// InterruptError is the cancellation cause recorded when a signal stops the run.
type InterruptError struct {
	Signal os.Signal
}

func (e *InterruptError) Error() string {
	return "interrupted by " + e.Signal.String()
}

func (e *InterruptError) Unwrap() error {
	return context.Canceled
}

// interruptExitCode follows the shell convention of 128 plus the signal number.
func interruptExitCode(ctx context.Context) int {
	var interrupt *InterruptError
	if errors.As(context.Cause(ctx), &interrupt) {
		if sig, ok := interrupt.Signal.(syscall.Signal); ok {
			return 128 + int(sig)
		}
	}
	return exitInterrupted
}
