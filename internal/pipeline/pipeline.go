// Package pipeline harvests before/after file pairs for every bug of a
// dataset. Each (project, bug) unit is processed to completion before the
// next one starts, and a unit whose output directories already exist is
// never processed again, so an interrupted run can simply be restarted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/changeset"
	"github.com/kurihiro0119/bugfix-pairs/internal/config"
	"github.com/kurihiro0119/bugfix-pairs/internal/dataset"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
	"github.com/kurihiro0119/bugfix-pairs/internal/workspace"
)

// Recorder receives every bug outcome, e.g. to keep a run ledger
type Recorder interface {
	Record(ctx context.Context, outcome domain.BugOutcome) error
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// Pipeline drives one dataset tool over a list of projects
type Pipeline struct {
	cfg      config.HarvestConfig
	tool     dataset.Tool
	logger   log.Logger
	recorder Recorder
}

// New creates a pipeline. cfg is copied and never modified.
func New(cfg config.HarvestConfig, tool dataset.Tool, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		tool:   tool,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every project in order. It only returns an error when ctx
// is cancelled; per-bug and per-project failures are logged and reported.
func (p *Pipeline) Run(ctx context.Context, projects []domain.Project) (*domain.RunReport, error) {
	report := &domain.RunReport{Dataset: p.tool.Name()}
	p.logger.Infof("starting %s checkout of %d projects", p.tool.Name(), len(projects))

	for _, project := range projects {
		if err := p.ProcessProject(ctx, project, report); err != nil {
			return report, err
		}
	}

	p.logger.Infof("done: %d processed, %d already processed, %d deprecated, %d failed, %d files",
		report.Processed, report.AlreadyProcessed, report.Deprecated, report.Failed, report.Files)
	return report, nil
}

// ProcessProject enumerates the bugs of a project and processes each one
func (p *Pipeline) ProcessProject(ctx context.Context, project domain.Project, report *domain.RunReport) error {
	logger := p.logger.With(log.Fields{"project": string(project)})
	logger.Infof("processing %s", project)

	bugs, err := p.tool.Bugs(ctx, project)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Errorf(err, "cannot list bugs of %s, skipping project", project)
		report.FailedProjects = append(report.FailedProjects, project)
		return nil
	}
	logger.Infof("found %d active bugs", len(bugs))

	for _, bug := range bugs {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome := p.ProcessBug(ctx, project, bug)
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Add(outcome)
		p.record(ctx, outcome, logger)
	}
	return nil
}

// ProcessBug takes a single bug from the resumability check to the copied
// output files. It never panics on tool or I/O failures: they end up in the
// returned outcome with status failed.
func (p *Pipeline) ProcessBug(ctx context.Context, project domain.Project, bug domain.BugID) domain.BugOutcome {
	outcome := domain.BugOutcome{
		Dataset: p.tool.Name(),
		Project: project,
		Bug:     bug,
	}
	logger := p.logger.With(log.Fields{"project": string(project), "bug": string(bug)})
	logger.Debugf("checking bug %s", bug)

	entry := domain.NewOutputEntry(p.cfg.OutputRoot, project, bug)
	if exists(entry.BeforePath) || exists(entry.AfterPath) {
		logger.Infof("bug %s already processed, skipping", bug)
		outcome.Status = domain.BugStatusAlreadyProcessed
		return outcome
	}

	avail, err := p.tool.Probe(ctx, project, bug)
	if err != nil {
		logger.Errorf(err, "cannot probe bug %s", bug)
		outcome.Status = domain.BugStatusFailed
		outcome.Err = err
		return outcome
	}
	if avail == domain.AvailabilityDeprecated {
		logger.Infof("bug %s is deprecated, skipping", bug)
		outcome.Status = domain.BugStatusDeprecated
		return outcome
	}

	files, err := p.harvest(ctx, project, bug, entry, logger)
	if err != nil {
		logger.Errorf(err, "bug %s failed", bug)
		// Leave no completion marker behind so that the next run retries.
		if rmErr := errors.Join(os.RemoveAll(entry.BeforePath), os.RemoveAll(entry.AfterPath)); rmErr != nil {
			logger.Warningf("cannot remove partial output of bug %s: %v", bug, rmErr)
		}
		outcome.Status = domain.BugStatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = domain.BugStatusProcessed
	outcome.Files = files
	return outcome
}

func (p *Pipeline) harvest(ctx context.Context, project domain.Project, bug domain.BugID, entry domain.OutputEntry, logger log.Logger) ([]string, error) {
	for _, dir := range []string{entry.BeforePath, entry.AfterPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ws, err := workspace.Acquire(p.cfg.ScratchRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Warningf("cannot clean workspace: %v", err)
		}
	}()

	for _, rev := range []domain.Revision{domain.RevisionBuggy, domain.RevisionFixed} {
		if err := p.tool.Checkout(ctx, project, bug, rev, ws.Dir(rev)); err != nil {
			return nil, err
		}
	}

	detector := &changeset.Detector{
		Extension: p.tool.Extension(),
		OnError: func(rel string, err error) {
			logger.Warningf("skipping %s: %v", rel, err)
		},
	}
	changed, err := detector.Detect(
		p.tool.CheckoutRoot(ws.Before, project),
		p.tool.CheckoutRoot(ws.After, project),
	)
	if err != nil {
		return nil, err
	}

	return Materialize(changed, entry, logger)
}

func (p *Pipeline) record(ctx context.Context, outcome domain.BugOutcome, logger log.Logger) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, outcome); err != nil {
		logger.Warningf("cannot record bug %s: %v", outcome.Bug, err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
