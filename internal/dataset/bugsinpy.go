package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
)

var bugCountPattern = regexp.MustCompile(`Number of bugs\s+:\s+(\d+)`)

// BugsInPy drives the `bugsinpy-info` and `bugsinpy-checkout` commands.
// The configured path is the common prefix of both binaries.
type BugsInPy struct {
	prefix string
	runner runner.Runner
}

// NewBugsInPy creates an adapter for binaries named <prefix>-info and <prefix>-checkout
func NewBugsInPy(prefix string, r runner.Runner) *BugsInPy {
	return &BugsInPy{prefix: prefix, runner: r}
}

func (b *BugsInPy) Name() domain.Dataset { return domain.DatasetBugsInPy }

func (b *BugsInPy) Extension() string { return ".py" }

func (b *BugsInPy) info() string { return b.prefix + "-info" }

func (b *BugsInPy) checkout() string { return b.prefix + "-checkout" }

// Bugs reads the bug count from `bugsinpy-info -p <project>` and numbers
// the bugs 1..N.
func (b *BugsInPy) Bugs(ctx context.Context, project domain.Project) ([]domain.BugID, error) {
	res, err := b.runner.Run(ctx, b.info(), "-p", string(project))
	if err != nil {
		return nil, apperrors.NewToolError("list bugs", err)
	}

	n, err := ParseBugCount(res.Lines())
	if err != nil {
		return nil, apperrors.NewToolError("list bugs", err)
	}
	bugs := make([]domain.BugID, 0, n)
	for i := 1; i <= n; i++ {
		bugs = append(bugs, domain.BugID(strconv.Itoa(i)))
	}
	return bugs, nil
}

// ParseBugCount returns N from the first "Number of bugs : N" line
func ParseBugCount(lines []string) (int, error) {
	for _, line := range lines {
		m := bugCountPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return strconv.Atoi(m[1])
	}
	return 0, fmt.Errorf("no %q line in info output", "Number of bugs")
}

func (b *BugsInPy) Probe(ctx context.Context, project domain.Project, bug domain.BugID) (domain.Availability, error) {
	return probe(ctx, b.runner, b.info(), "-p", string(project), "-i", string(bug))
}

// Checkout runs `bugsinpy-checkout -p <project> -v 0|1 -i <bug> -w <dir>`
func (b *BugsInPy) Checkout(ctx context.Context, project domain.Project, bug domain.BugID, rev domain.Revision, dir string) error {
	version := "0"
	if rev == domain.RevisionFixed {
		version = "1"
	}
	res, err := b.runner.Run(ctx, b.checkout(), "-p", string(project), "-v", version, "-i", string(bug), "-w", dir)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		return apperrors.NewToolError("checkout "+rev.String(), err)
	}
	return nil
}

// CheckoutRoot is <dir>/<project>: bugsinpy-checkout clones into a
// subdirectory named after the project.
func (b *BugsInPy) CheckoutRoot(dir string, project domain.Project) string {
	return filepath.Join(dir, string(project))
}
