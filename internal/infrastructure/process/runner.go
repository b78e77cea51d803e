package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxStderrBytes = 4096
	waitDelay      = 2 * time.Second
)

// Command is an argv prefix; per-call arguments are appended to Args.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

// ParseCommand splits a whitespace separated command line. Quoting is not
// interpreted.
func ParseCommand(line string, timeout time.Duration) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}
	return Command{Name: fields[0], Args: fields[1:], Timeout: timeout}, nil
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result describes a process that ran to completion, whatever its status.
type Result struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// Runner starts external processes. An error means the process could not be
// started or was killed; a non-zero exit is reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd Command, args ...string) (Result, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd Command, args ...string) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	argv := make([]string, 0, len(cmd.Args)+len(args))
	argv = append(argv, cmd.Args...)
	argv = append(argv, args...)

	var stderr bytes.Buffer
	execCmd := exec.CommandContext(ctx, cmd.Name, argv...)
	execCmd.Stderr = &stderr
	execCmd.WaitDelay = waitDelay

	started := time.Now()
	err := execCmd.Run()
	res := Result{Stderr: tail(stderr.String()), Duration: time.Since(started)}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("run %s: %w", cmd.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", cmd.Name, err)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrBytes {
		return s
	}
	cut := len(s) - maxStderrBytes
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}
