package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner/runnertest"
)

func TestDefects4JCommands(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(_ context.Context, name string, args []string) (*runner.Result, error) {
		switch args[0] {
		case "bids":
			return runnertest.OK("1\n2\n\n5\n"), nil
		case "info":
			if args[len(args)-1] == "2" {
				return runnertest.Exit(1), nil
			}
		}
		return runnertest.OK(""), nil
	}}
	d4j := NewDefects4J("/opt/d4j/defects4j", fake)
	ctx := context.Background()

	bugs, err := d4j.Bugs(ctx, "Lang")
	require.NoError(t, err)
	assert.Equal(t, []domain.BugID{"1", "2", "5"}, bugs)

	avail, err := d4j.Probe(ctx, "Lang", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityAvailable, avail)

	avail, err = d4j.Probe(ctx, "Lang", "2")
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityDeprecated, avail)

	require.NoError(t, d4j.Checkout(ctx, "Lang", "1", domain.RevisionBuggy, "/tmp/ws/before"))
	require.NoError(t, d4j.Checkout(ctx, "Lang", "1", domain.RevisionFixed, "/tmp/ws/after"))

	var lines []string
	for _, c := range fake.Calls() {
		lines = append(lines, c.Line())
	}
	assert.Equal(t, []string{
		"/opt/d4j/defects4j bids -p Lang",
		"/opt/d4j/defects4j info -p Lang -b 1",
		"/opt/d4j/defects4j info -p Lang -b 2",
		"/opt/d4j/defects4j checkout -p Lang -v1b -w /tmp/ws/before",
		"/opt/d4j/defects4j checkout -p Lang -v1f -w /tmp/ws/after",
	}, lines)
	assert.Equal(t, "/tmp/ws/before", d4j.CheckoutRoot("/tmp/ws/before", "Lang"))
	assert.Equal(t, ".java", d4j.Extension())
}

func TestDefects4JFailures(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(context.Context, string, []string) (*runner.Result, error) {
		return runnertest.Exit(2), nil
	}}
	d4j := NewDefects4J("defects4j", fake)

	_, err := d4j.Bugs(context.Background(), "Lang")
	assert.True(t, apperrors.IsToolFailure(err))

	err = d4j.Checkout(context.Background(), "Lang", "1", domain.RevisionBuggy, "/ws")
	require.Error(t, err)
	assert.True(t, apperrors.IsToolFailure(err))
	assert.True(t, runner.ErrToolFailed.Is(errors.Unwrap(err)))
}

func TestProbeStartFailureIsAnError(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(_ context.Context, name string, _ []string) (*runner.Result, error) {
		return nil, runner.ErrToolNotFound.New(name)
	}}
	_, err := NewDefects4J("defects4j", fake).Probe(context.Background(), "Lang", "1")
	assert.Error(t, err)
}

func TestBugsInPyCommands(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(_ context.Context, name string, args []string) (*runner.Result, error) {
		if filepath.Base(name) == "bugsinpy-info" && len(args) == 2 {
			return runnertest.OK("Summary of configuration for Project: tqdm\nNumber of bugs : 3\nSomething else : 9\n"), nil
		}
		return runnertest.OK(""), nil
	}}
	bip := NewBugsInPy("/opt/bugsinpy/bin/bugsinpy", fake)
	ctx := context.Background()

	bugs, err := bip.Bugs(ctx, "tqdm")
	require.NoError(t, err)
	assert.Equal(t, []domain.BugID{"1", "2", "3"}, bugs)

	_, err = bip.Probe(ctx, "tqdm", "2")
	require.NoError(t, err)
	require.NoError(t, bip.Checkout(ctx, "tqdm", "2", domain.RevisionBuggy, "/ws/before"))
	require.NoError(t, bip.Checkout(ctx, "tqdm", "2", domain.RevisionFixed, "/ws/after"))

	var lines []string
	for _, c := range fake.Calls() {
		lines = append(lines, c.Line())
	}
	assert.Equal(t, []string{
		"/opt/bugsinpy/bin/bugsinpy-info -p tqdm",
		"/opt/bugsinpy/bin/bugsinpy-info -p tqdm -i 2",
		"/opt/bugsinpy/bin/bugsinpy-checkout -p tqdm -v 0 -i 2 -w /ws/before",
		"/opt/bugsinpy/bin/bugsinpy-checkout -p tqdm -v 1 -i 2 -w /ws/after",
	}, lines)
	assert.Equal(t, filepath.Join("/ws/after", "tqdm"), bip.CheckoutRoot("/ws/after", "tqdm"))
}

func TestParseBugCount(t *testing.T) {
	n, err := ParseBugCount([]string{"header", "Number of bugs   :   17"})
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	_, err = ParseBugCount([]string{"Project not found"})
	assert.Error(t, err)
}

func TestNewTool(t *testing.T) {
	tool, err := NewTool(domain.DatasetBugsInPy, "bugsinpy", &runnertest.Fake{})
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetBugsInPy, tool.Name())

	tool, err = NewTool(domain.DatasetDefects4J, "defects4j", &runnertest.Fake{})
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetDefects4J, tool.Name())

	_, err = NewTool(domain.DatasetGHJava, "x", &runnertest.Fake{})
	assert.Error(t, err)
}
