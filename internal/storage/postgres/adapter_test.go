package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

func TestDedupeStatsKeepsLastRow(t *testing.T) {
	out := dedupeStats([]domain.FileStat{
		{Filename: "a", Inserted: 1},
		{Filename: "b", Inserted: 2},
		{Filename: "a", Inserted: 3},
	})
	assert.Equal(t, []domain.FileStat{
		{Filename: "a", Inserted: 3},
		{Filename: "b", Inserted: 2},
	}, out)
}

// Runs against a live server when POSTGRES_TEST_URL is set.
func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	store, err := NewPostgresStorage(url)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	ds := domain.Dataset("pg-test-" + time.Now().Format("150405.000000"))
	require.NoError(t, store.SaveBugRecord(ctx, &domain.BugRecord{
		ID: string(ds) + "-1", Dataset: ds, Project: "Lang", Bug: "1",
		Status: domain.BugStatusProcessed, Files: []string{"A.java"}, CreatedAt: time.Now(),
	}))
	records, err := store.GetBugRecords(ctx, ds, "Lang")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"A.java"}, records[0].Files)

	require.NoError(t, store.SaveFileStats(ctx, ds, []domain.FileStat{{Filename: "x", Inserted: 1}}))
	stats, err := store.GetFileStats(ctx, ds)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}
