package dataset

import (
	"context"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
)

// Defects4J drives the `defects4j` command
type Defects4J struct {
	bin    string
	runner runner.Runner
}

// NewDefects4J creates an adapter calling bin
func NewDefects4J(bin string, r runner.Runner) *Defects4J {
	return &Defects4J{bin: bin, runner: r}
}

func (d *Defects4J) Name() domain.Dataset { return domain.DatasetDefects4J }

func (d *Defects4J) Extension() string { return ".java" }

// Bugs runs `defects4j bids -p <project>`, which prints one ID per line
func (d *Defects4J) Bugs(ctx context.Context, project domain.Project) ([]domain.BugID, error) {
	res, err := d.runner.Run(ctx, d.bin, "bids", "-p", string(project))
	if err != nil {
		return nil, apperrors.NewToolError("list bugs", err)
	}
	if err := res.Err(); err != nil {
		return nil, apperrors.NewToolError("list bugs", err)
	}

	var bugs []domain.BugID
	for _, line := range res.Lines() {
		bugs = append(bugs, domain.BugID(line))
	}
	return bugs, nil
}

func (d *Defects4J) Probe(ctx context.Context, project domain.Project, bug domain.BugID) (domain.Availability, error) {
	return probe(ctx, d.runner, d.bin, "info", "-p", string(project), "-b", string(bug))
}

// Checkout runs `defects4j checkout -p <project> -v<bug>b|f -w <dir>`
func (d *Defects4J) Checkout(ctx context.Context, project domain.Project, bug domain.BugID, rev domain.Revision, dir string) error {
	version := string(bug) + "b"
	if rev == domain.RevisionFixed {
		version = string(bug) + "f"
	}
	res, err := d.runner.Run(ctx, d.bin, "checkout", "-p", string(project), "-v"+version, "-w", dir)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		return apperrors.NewToolError("checkout "+rev.String(), err)
	}
	return nil
}

func (d *Defects4J) CheckoutRoot(dir string, _ domain.Project) string {
	return dir
}
