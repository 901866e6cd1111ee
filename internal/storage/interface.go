package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

// Storage is the abstract interface for the run ledger. The ledger reports
// what happened; output directories remain the only completion marker.
type Storage interface {
	// Bug outcome operations
	SaveBugRecord(ctx context.Context, rec *domain.BugRecord) error

	// GetBugRecords returns records oldest first. An empty project selects
	// every project of the dataset.
	GetBugRecords(ctx context.Context, dataset domain.Dataset, project domain.Project) ([]*domain.BugRecord, error)

	// Diff statistics operations; saving replaces the dataset's rows
	SaveFileStats(ctx context.Context, dataset domain.Dataset, stats []domain.FileStat) error
	GetFileStats(ctx context.Context, dataset domain.Dataset) ([]domain.FileStat, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}

// Recorder writes pipeline outcomes to a Storage
type Recorder struct {
	Store Storage
	Now   func() time.Time
}

// NewRecorder creates a recorder backed by store
func NewRecorder(store Storage) *Recorder {
	return &Recorder{Store: store, Now: time.Now}
}

// Record saves one outcome as a new ledger row
func (r *Recorder) Record(ctx context.Context, outcome domain.BugOutcome) error {
	return r.Store.SaveBugRecord(ctx, outcome.ToRecord(uuid.New().String(), r.Now()))
}
