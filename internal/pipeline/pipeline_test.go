package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/bugfix-pairs/internal/config"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
)

type tree map[string]string

type fakeBug struct {
	deprecated bool
	failOn     *domain.Revision
	buggy      tree
	fixed      tree
}

// fakeTool mimics a dataset tool that checks out into <dir>/<project>
type fakeTool struct {
	bugs      map[domain.Project][]domain.BugID
	details   map[string]fakeBug
	listErr   error
	onProbe   func()
	probes    []string
	checkouts []string
}

func key(project domain.Project, bug domain.BugID) string {
	return string(project) + "/" + string(bug)
}

func (f *fakeTool) Name() domain.Dataset { return domain.DatasetBugsInPy }
func (f *fakeTool) Extension() string { return ".py" }

func (f *fakeTool) Bugs(_ context.Context, project domain.Project) ([]domain.BugID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.bugs[project], nil
}

func (f *fakeTool) Probe(_ context.Context, project domain.Project, bug domain.BugID) (domain.Availability, error) {
	f.probes = append(f.probes, key(project, bug))
	if f.onProbe != nil {
		f.onProbe()
	}
	if f.details[key(project, bug)].deprecated {
		return domain.AvailabilityDeprecated, nil
	}
	return domain.AvailabilityAvailable, nil
}

func (f *fakeTool) Checkout(_ context.Context, project domain.Project, bug domain.BugID, rev domain.Revision, dir string) error {
	f.checkouts = append(f.checkouts, key(project, bug)+"@"+rev.String())
	b := f.details[key(project, bug)]
	if b.failOn != nil && *b.failOn == rev {
		return apperrors.NewToolError("checkout "+rev.String(), errors.New("exit status 1"))
	}
	files := b.buggy
	if rev == domain.RevisionFixed {
		files = b.fixed
	}
	root := f.CheckoutRoot(dir, project)
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTool) CheckoutRoot(dir string, project domain.Project) string {
	return filepath.Join(dir, string(project))
}

type memRecorder struct {
	outcomes []domain.BugOutcome
}

func (m *memRecorder) Record(_ context.Context, o domain.BugOutcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func newConfig(t *testing.T) config.HarvestConfig {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.NewHarvestConfig("tool", filepath.Join(dir, "out"), filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	return cfg
}

func readDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string]string)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(data)
	}
	return out
}

func revPtr(r domain.Revision) *domain.Revision { return &r }

func TestProcessBugCopiesChangedFilesFlat(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{details: map[string]fakeBug{
		"tqdm/1": {
			buggy: tree{"tqdm/std.py": "old", "tqdm/utils.py": "same", "setup.cfg": "a", "docs/x.py": "removed"},
			fixed: tree{"tqdm/std.py": "new", "tqdm/utils.py": "same", "setup.cfg": "b", "tqdm/added.py": "added"},
		},
	}}

	outcome := New(cfg, tool).ProcessBug(context.Background(), "tqdm", "1")
	require.NoError(t, outcome.Err)
	assert.Equal(t, domain.BugStatusProcessed, outcome.Status)
	assert.Equal(t, []string{"tqdm_std.py"}, outcome.Files)

	assert.Equal(t, map[string]string{"tqdm_std.py": "old"}, readDir(t, filepath.Join(cfg.OutputRoot, "before", "tqdm", "1")))
	assert.Equal(t, map[string]string{"tqdm_std.py": "new"}, readDir(t, filepath.Join(cfg.OutputRoot, "after", "tqdm", "1")))
	assert.Equal(t, []string{"tqdm/1@buggy", "tqdm/1@fixed"}, tool.checkouts)

	assert.NoDirExists(t, filepath.Join(cfg.ScratchRoot, "before"))
	assert.NoDirExists(t, filepath.Join(cfg.ScratchRoot, "after"))
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{
		bugs: map[domain.Project][]domain.BugID{"tqdm": {"1", "2"}},
		details: map[string]fakeBug{
			"tqdm/1": {buggy: tree{"a.py": "1"}, fixed: tree{"a.py": "2"}},
			"tqdm/2": {buggy: tree{"b.py": "1"}, fixed: tree{"b.py": "1"}},
		},
	}
	p := New(cfg, tool)

	report, err := p.Run(context.Background(), []domain.Project{"tqdm"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Files)
	first := readDir(t, filepath.Join(cfg.OutputRoot, "before", "tqdm", "1"))

	tool.checkouts, tool.probes = nil, nil
	report, err = p.Run(context.Background(), []domain.Project{"tqdm"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 2, report.AlreadyProcessed)
	assert.Empty(t, tool.checkouts)
	assert.Empty(t, tool.probes)
	assert.Equal(t, first, readDir(t, filepath.Join(cfg.OutputRoot, "before", "tqdm", "1")))
	// a bug without changes still leaves its (empty) marker directories
	assert.DirExists(t, filepath.Join(cfg.OutputRoot, "after", "tqdm", "2"))
}

func TestExistingOutputSkipsBug(t *testing.T) {
	cfg := newConfig(t)
	existing := filepath.Join(cfg.OutputRoot, "before", "ProjA", "7")
	require.NoError(t, os.MkdirAll(existing, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(existing, "keep.py"), []byte("partial"), 0o644))

	tool := &fakeTool{details: map[string]fakeBug{
		"ProjA/7": {buggy: tree{"keep.py": "x"}, fixed: tree{"keep.py": "y"}},
	}}
	outcome := New(cfg, tool).ProcessBug(context.Background(), "ProjA", "7")

	assert.Equal(t, domain.BugStatusAlreadyProcessed, outcome.Status)
	assert.Empty(t, tool.checkouts)
	assert.Empty(t, tool.probes)
	assert.Equal(t, map[string]string{"keep.py": "partial"}, readDir(t, existing))
	assert.NoDirExists(t, filepath.Join(cfg.OutputRoot, "after", "ProjA", "7"))
}

func TestExistingAfterOutputAloneSkipsBug(t *testing.T) {
	cfg := newConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.OutputRoot, "after", "ProjA", "3"), 0o755))

	tool := &fakeTool{}
	outcome := New(cfg, tool).ProcessBug(context.Background(), "ProjA", "3")
	assert.Equal(t, domain.BugStatusAlreadyProcessed, outcome.Status)
	assert.Empty(t, tool.probes)
}

func TestDeprecatedBugIsSkipped(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{
		bugs: map[domain.Project][]domain.BugID{"ProjA": {"9", "10"}},
		details: map[string]fakeBug{
			"ProjA/9":  {deprecated: true},
			"ProjA/10": {buggy: tree{"m.py": "1"}, fixed: tree{"m.py": "2"}},
		},
	}
	rec := &memRecorder{}

	report, err := New(cfg, tool, WithRecorder(rec)).Run(context.Background(), []domain.Project{"ProjA"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deprecated)
	assert.Equal(t, 1, report.Processed)

	assert.NoDirExists(t, filepath.Join(cfg.OutputRoot, "before", "ProjA", "9"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputRoot, "after", "ProjA", "9"))
	assert.DirExists(t, filepath.Join(cfg.OutputRoot, "before", "ProjA", "10"))
	assert.Equal(t, []string{"ProjA/10@buggy", "ProjA/10@fixed"}, tool.checkouts)

	require.Len(t, rec.outcomes, 2)
	assert.Equal(t, domain.BugStatusDeprecated, rec.outcomes[0].Status)
	assert.Equal(t, domain.BugStatusProcessed, rec.outcomes[1].Status)
}

func TestCheckoutFailureIsIsolatedAndRetried(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{
		bugs: map[domain.Project][]domain.BugID{"ProjA": {"1", "2"}},
		details: map[string]fakeBug{
			"ProjA/1": {failOn: revPtr(domain.RevisionFixed), buggy: tree{"a.py": "1"}},
			"ProjA/2": {buggy: tree{"b.py": "1"}, fixed: tree{"b.py": "2"}},
		},
	}
	p := New(cfg, tool)

	report, err := p.Run(context.Background(), []domain.Project{"ProjA"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Processed)
	assert.True(t, apperrors.IsToolFailure(report.Outcomes[0].Err))
	assert.NoDirExists(t, filepath.Join(cfg.OutputRoot, "before", "ProjA", "1"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputRoot, "after", "ProjA", "1"))

	fixed := tool.details["ProjA/1"]
	fixed.failOn = nil
	fixed.fixed = tree{"a.py": "2"}
	tool.details["ProjA/1"] = fixed
	tool.checkouts = nil

	report, err = p.Run(context.Background(), []domain.Project{"ProjA"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.AlreadyProcessed)
	assert.Equal(t, []string{"ProjA/1@buggy", "ProjA/1@fixed"}, tool.checkouts)
}

func TestFlattenCollisionLastWriteWins(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{details: map[string]fakeBug{
		"p/1": {
			buggy: tree{"a/b.py": "nested-old", "a_b.py": "flat-old"},
			fixed: tree{"a/b.py": "nested-new", "a_b.py": "flat-new"},
		},
	}}

	outcome := New(cfg, tool).ProcessBug(context.Background(), "p", "1")
	require.Equal(t, domain.BugStatusProcessed, outcome.Status)
	assert.Equal(t, []string{"a_b.py"}, outcome.Files)

	// "a" sorts before "a_b.py", so the flat file is copied last
	assert.Equal(t, map[string]string{"a_b.py": "flat-old"}, readDir(t, filepath.Join(cfg.OutputRoot, "before", "p", "1")))
	assert.Equal(t, map[string]string{"a_b.py": "flat-new"}, readDir(t, filepath.Join(cfg.OutputRoot, "after", "p", "1")))
}

func TestStaleCheckoutDoesNotLeakIntoNextBug(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{
		bugs: map[domain.Project][]domain.BugID{"p": {"1", "2"}},
		details: map[string]fakeBug{
			"p/1": {buggy: tree{"old.py": "1", "x.py": "a"}, fixed: tree{"old.py": "2", "x.py": "a"}},
			// bug 2 only checks out x.py in the buggy revision
			"p/2": {buggy: tree{"x.py": "a"}, fixed: tree{"x.py": "b", "old.py": "3"}},
		},
	}

	report, err := New(cfg, tool).Run(context.Background(), []domain.Project{"p"})
	require.NoError(t, err)
	require.Equal(t, 2, report.Processed)
	assert.Equal(t, []string{"old.py"}, report.Outcomes[0].Files)
	assert.Equal(t, []string{"x.py"}, report.Outcomes[1].Files)
}

func TestProjectListingFailureSkipsProject(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{listErr: errors.New("no such project")}

	report, err := New(cfg, tool).Run(context.Background(), []domain.Project{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Project{"a", "b"}, report.FailedProjects)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := newConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	tool := &fakeTool{
		bugs: map[domain.Project][]domain.BugID{"p": {"1", "2", "3"}},
		details: map[string]fakeBug{
			"p/1": {buggy: tree{"a.py": "1"}, fixed: tree{"a.py": "2"}},
			"p/2": {buggy: tree{"a.py": "1"}, fixed: tree{"a.py": "2"}},
		},
	}
	tool.onProbe = func() {
		if len(tool.probes) == 2 {
			cancel()
		}
	}

	report, err := New(cfg, tool).Run(ctx, []domain.Project{"p"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []string{"p/1", "p/2"}, tool.probes)
}

func TestMaterializeReportsCopyFailure(t *testing.T) {
	dir := t.TempDir()
	entry := domain.OutputEntry{BeforePath: filepath.Join(dir, "b"), AfterPath: filepath.Join(dir, "a")}
	require.NoError(t, os.MkdirAll(entry.BeforePath, 0o755))
	require.NoError(t, os.MkdirAll(entry.AfterPath, 0o755))

	_, err := Materialize([]domain.ChangedFile{{
		RelPath:     "x.py",
		PreFixPath:  filepath.Join(dir, "missing.py"),
		PostFixPath: filepath.Join(dir, "missing.py"),
	}}, entry, nil)
	require.Error(t, err)
	code, ok := apperrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeIO, code)
}

func TestOutcomeFilesAreSortedByWalkOrder(t *testing.T) {
	cfg := newConfig(t)
	tool := &fakeTool{details: map[string]fakeBug{
		"p/1": {
			buggy: tree{"z.py": "1", "m/n.py": "1", "a.py": "1"},
			fixed: tree{"z.py": "2", "m/n.py": "2", "a.py": "2"},
		},
	}}
	outcome := New(cfg, tool).ProcessBug(context.Background(), "p", "1")
	assert.True(t, sort.StringsAreSorted(outcome.Files))
	assert.Equal(t, []string{"a.py", "m_n.py", "z.py"}, outcome.Files)
}
