// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"sync"

	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
)

// Call is one recorded invocation
type Call struct {
	Name string
	Args []string
}

// Line renders the call the same way runner.CommandLine does
func (c Call) Line() string {
	return runner.CommandLine(c.Name, c.Args...)
}

// Handler answers an invocation
type Handler func(ctx context.Context, name string, args []string) (*runner.Result, error)

// Fake records every call and delegates to Handler. A nil Handler answers
// every call with a successful, empty result.
type Fake struct {
	Handler Handler

	mu    sync.Mutex
	calls []Call
}

// Run implements runner.Runner
func (f *Fake) Run(ctx context.Context, name string, args ...string) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.Handler == nil {
		return OK(""), nil
	}
	res, err := f.Handler(ctx, name, args)
	if res != nil && res.Command == "" {
		res.Command = runner.CommandLine(name, args...)
	}
	return res, err
}

// Calls returns a copy of the recorded calls
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// OK is a successful result with the given stdout
func OK(stdout string) *runner.Result {
	return &runner.Result{Status: runner.StatusOK, Stdout: []byte(stdout)}
}

// Exit is a result with a non-zero exit code
func Exit(code int) *runner.Result {
	return &runner.Result{Status: runner.StatusExitNonZero, ExitCode: code}
}
