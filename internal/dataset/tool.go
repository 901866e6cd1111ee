// Package dataset adapts the external bug-dataset tools (Defects4J,
// BugsInPy) to a common interface and lists the projects to harvest.
package dataset

import (
	"context"
	"fmt"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
)

// Tool is the command-line collaborator that knows a dataset's bugs
type Tool interface {
	// Name returns the dataset family served by the tool
	Name() domain.Dataset

	// Extension is the source-file suffix compared between revisions
	Extension() string

	// Bugs lists the active bug IDs of a project
	Bugs(ctx context.Context, project domain.Project) ([]domain.BugID, error)

	// Probe asks the tool whether a bug can still be checked out
	Probe(ctx context.Context, project domain.Project, bug domain.BugID) (domain.Availability, error)

	// Checkout writes one revision of a bug into dir
	Checkout(ctx context.Context, project domain.Project, bug domain.BugID, rev domain.Revision, dir string) error

	// CheckoutRoot returns where the project sources land inside dir
	CheckoutRoot(dir string, project domain.Project) string
}

// NewTool returns the adapter for a dataset family
func NewTool(ds domain.Dataset, toolPath string, r runner.Runner) (Tool, error) {
	switch ds {
	case domain.DatasetDefects4J:
		return NewDefects4J(toolPath, r), nil
	case domain.DatasetBugsInPy:
		return NewBugsInPy(toolPath, r), nil
	default:
		return nil, fmt.Errorf("dataset %q has no checkout tool", ds)
	}
}

// probe maps the exit status of an info invocation to an availability
func probe(ctx context.Context, r runner.Runner, name string, args ...string) (domain.Availability, error) {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return domain.AvailabilityDeprecated, err
	}
	if !res.OK() {
		return domain.AvailabilityDeprecated, nil
	}
	return domain.AvailabilityAvailable, nil
}
