package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for the packager and launcher.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error)
	RunAttached(ctx context.Context, cmd Attached) (int, error)
}

// Attached describes a process that shares the caller's stdio.
type Attached struct {
	Name   string
	Args   []string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError reports a non-zero exit status from an external tool.
type ExitError struct {
	Name string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %v", e.Name, e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the status carried by err, or fallback when none is.
func ExitCode(err error, fallback int) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return fallback
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := exitCode(err)
	return stdout.Bytes(), stderr.Bytes(), code, err
}

func (r ExecRunner) RunAttached(ctx context.Context, a Attached) (int, error) {
	cmd := exec.CommandContext(ctx, a.Name, a.Args...)
	cmd.Env = a.Env
	cmd.Dir = a.Dir
	cmd.Stdin = a.Stdin
	cmd.Stdout = a.Stdout
	cmd.Stderr = a.Stderr

	err := cmd.Run()
	return exitCode(err), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127
	}
	return 1
}

// JoinCommand renders cmd and args as a single POSIX shell line.
func JoinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return ShellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(ShellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(ShellEscape(arg))
	}

	return builder.String()
}

// ShellEscape quotes value only when it contains shell metacharacters.
func ShellEscape(value string) string {
	if value == "" {
		return "''"
	}
	if strings.IndexFunc(value, needsQuote) < 0 {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=+,@%", r)
}
