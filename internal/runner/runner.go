// Package runner invokes the external command-line collaborators (dataset
// tools, gumtree) and turns their exit status into a typed result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"bitbucket.org/creachadair/shell"
	goerrors "gopkg.in/src-d/go-errors.v1"
	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
)

var (
	// ErrToolNotFound is returned when the binary cannot be resolved.
	ErrToolNotFound = goerrors.NewKind("tool not found: %s")
	// ErrToolStart is returned when the binary exists but could not start.
	ErrToolStart = goerrors.NewKind("cannot start %s")
	// ErrToolFailed describes a completed invocation with a non-zero exit.
	ErrToolFailed = goerrors.NewKind("%s exited with status %d")
)

// Status classifies how an invocation ended
type Status int

const (
	StatusOK Status = iota
	StatusExitNonZero
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "exit_non_zero"
}

// Result holds the outcome of one invocation
type Result struct {
	Command  string
	Status   Status
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// OK reports whether the command exited with status zero
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Err returns nil for a successful run and an ErrToolFailed otherwise
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return ErrToolFailed.New(r.Command, r.ExitCode)
}

// Lines splits stdout into trimmed, non-empty lines
func (r *Result) Lines() []string {
	var lines []string
	for _, line := range strings.Split(string(r.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Runner executes a command and waits for it
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands as child processes
type ExecRunner struct {
	Dir    string
	Logger log.Logger
}

// NewExecRunner creates a runner using the given logger
func NewExecRunner(logger log.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ExecRunner{Logger: logger}
}

// Run starts name with args and blocks until it exits. A non-zero exit is
// not an error: it is reported through Result.Status.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	command := CommandLine(name, args...)
	r.Logger.Debugf("running %s", command)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Command: command,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Status = StatusExitNonZero
		res.ExitCode = exitErr.ExitCode()
		r.Logger.Debugf("%s exited with status %d", command, res.ExitCode)
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrToolNotFound.Wrap(err, name)
	}
	return nil, ErrToolStart.Wrap(err, name)
}

// CommandLine renders a command as a copy-pasteable shell line
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shell.Quote(name))
	for _, arg := range args {
		parts = append(parts, shell.Quote(arg))
	}
	return strings.Join(parts, " ")
}
