package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for service and power adapters.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result holds the captured output of a finished command
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes name with args and waits for it to exit.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &CommandError{Command: commandLine(name, args), Result: res, Err: err}
	}

	res.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		res.ExitCode = 127
	}
	return res, &CommandError{Command: commandLine(name, args), Result: res, Err: err}
}

// CommandError describes a command that failed to start or exited non-zero
type CommandError struct {
	Command string
	Result  Result
	Err     error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(string(e.Result.Stderr))
	if stderr != "" {
		return fmt.Sprintf("%q exited with %d: %s", e.Command, e.Result.ExitCode, stderr)
	}
	return fmt.Sprintf("%q exited with %d: %v", e.Command, e.Result.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
