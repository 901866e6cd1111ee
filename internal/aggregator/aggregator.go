package aggregator

import (
	"context"
	"sort"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage"
)

// Aggregator defines the interface for summarizing the run ledger
type Aggregator interface {
	// SummarizeDataset aggregates the ledger of a dataset per project
	SummarizeDataset(ctx context.Context, dataset domain.Dataset) (*domain.DatasetSummary, error)

	// SummarizeProject aggregates the ledger of one project
	SummarizeProject(ctx context.Context, dataset domain.Dataset, project domain.Project) (*domain.ProjectSummary, error)

	// LatestBugs returns the effective record of every bug of a project
	LatestBugs(ctx context.Context, dataset domain.Dataset, project domain.Project) ([]*domain.BugRecord, error)

	// StatsSummary aggregates stored diff statistics
	StatsSummary(ctx context.Context, dataset domain.Dataset) (*domain.StatsSummary, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage storage.Storage
}

// NewAggregator creates a new aggregator
func NewAggregator(storage storage.Storage) Aggregator {
	return &aggregator{
		storage: storage,
	}
}

// SummarizeDataset aggregates the ledger of a dataset per project
func (a *aggregator) SummarizeDataset(ctx context.Context, dataset domain.Dataset) (*domain.DatasetSummary, error) {
	records, err := a.storage.GetBugRecords(ctx, dataset, "")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read ledger", err)
	}

	byProject := make(map[domain.Project]*domain.ProjectSummary)
	summary := &domain.DatasetSummary{Dataset: dataset}
	summary.Total.Project = "total"

	for _, rec := range Effective(records) {
		ps, ok := byProject[rec.Project]
		if !ok {
			ps = &domain.ProjectSummary{Project: rec.Project}
			byProject[rec.Project] = ps
			summary.Projects = append(summary.Projects, ps)
		}
		count(ps, rec)
		count(&summary.Total, rec)
	}

	sort.Slice(summary.Projects, func(i, j int) bool {
		return summary.Projects[i].Project < summary.Projects[j].Project
	})
	return summary, nil
}

// SummarizeProject aggregates the ledger of one project
func (a *aggregator) SummarizeProject(ctx context.Context, dataset domain.Dataset, project domain.Project) (*domain.ProjectSummary, error) {
	records, err := a.LatestBugs(ctx, dataset, project)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("project " + string(project))
	}

	ps := &domain.ProjectSummary{Project: project}
	for _, rec := range records {
		count(ps, rec)
	}
	return ps, nil
}

// LatestBugs returns the effective record of every bug of a project
func (a *aggregator) LatestBugs(ctx context.Context, dataset domain.Dataset, project domain.Project) ([]*domain.BugRecord, error) {
	records, err := a.storage.GetBugRecords(ctx, dataset, project)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read ledger", err)
	}
	return Effective(records), nil
}

// StatsSummary aggregates stored diff statistics
func (a *aggregator) StatsSummary(ctx context.Context, dataset domain.Dataset) (*domain.StatsSummary, error) {
	stats, err := a.storage.GetFileStats(ctx, dataset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read statistics", err)
	}
	if len(stats) == 0 {
		return nil, apperrors.NewNotFoundError("statistics for " + string(dataset))
	}
	summary := SummarizeStats(dataset, stats)
	return &summary, nil
}

// SummarizeStats totals a set of file statistics
func SummarizeStats(dataset domain.Dataset, stats []domain.FileStat) domain.StatsSummary {
	summary := domain.StatsSummary{Dataset: dataset, Files: len(stats)}
	for _, st := range stats {
		summary.Inserted += int64(st.Inserted)
		summary.Deleted += int64(st.Deleted)
		summary.Modified += int64(st.Modified)
	}
	return summary
}

// Effective reduces ledger rows (oldest first) to one row per bug. A later
// row replaces an earlier one, except that "already processed" never hides
// the row of the run that actually did the work.
func Effective(records []*domain.BugRecord) []*domain.BugRecord {
	type bugKey struct {
		project domain.Project
		bug     domain.BugID
	}
	index := make(map[bugKey]int)
	var out []*domain.BugRecord

	for _, rec := range records {
		k := bugKey{rec.Project, rec.Bug}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.Status == domain.BugStatusAlreadyProcessed {
			continue
		}
		out[i] = rec
	}
	return out
}

func count(ps *domain.ProjectSummary, rec *domain.BugRecord) {
	switch rec.Status {
	case domain.BugStatusProcessed:
		ps.Processed++
	case domain.BugStatusAlreadyProcessed:
		ps.AlreadyProcessed++
	case domain.BugStatusDeprecated:
		ps.Deprecated++
	case domain.BugStatusFailed:
		ps.Failed++
	}
	ps.Files += len(rec.Files)
}
