// Package stats computes diffstat-style line counts for every before/after
// pair of a harvested dataset.
package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
)

// Header is the column layout of `diffstat -t`
var Header = []string{"INSERTED", "DELETED", "MODIFIED", "FILENAME"}

// Options controls Compute
type Options struct {
	// Modified counts a removed line directly followed by an added line as
	// one modification instead of one deletion plus one insertion.
	Modified bool
	Logger   log.Logger
}

// Compute walks <datasetDir>/before and compares every file ending with ext
// against its sibling under <datasetDir>/after. Identical pairs produce no
// row. FILENAME holds the before path.
func Compute(ctx context.Context, datasetDir, ext string, opts Options) ([]domain.FileStat, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	beforeRoot := filepath.Join(datasetDir, domain.BeforeDir)
	afterRoot := filepath.Join(datasetDir, domain.AfterDir)

	var rows []domain.FileStat
	err := filepath.WalkDir(beforeRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}

		rel, err := filepath.Rel(beforeRoot, path)
		if err != nil {
			return err
		}
		afterPath := filepath.Join(afterRoot, rel)

		before, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		after, err := os.ReadFile(afterPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warningf("no after file for %s, skipping", path)
				return nil
			}
			return err
		}

		row, changed, err := Pair(path, afterPath, before, after, opts.Modified)
		if err != nil {
			return fmt.Errorf("failed to diff %s: %w", path, err)
		}
		if changed {
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("computed statistics for %d files", len(rows))
	return rows, nil
}

// noNewline marks a last line without a trailing newline so that it
// differs from the same text with one, as in `diff -u`.
const noNewline = "\x00"

// Pair diffs two file contents. changed is false when they are identical.
// Every contiguous run of removed and added lines is one change block; with
// modified set, min(added, removed) of a block counts as modified.
func Pair(beforeName, afterName string, before, after []byte, modified bool) (domain.FileStat, bool, error) {
	row := domain.FileStat{Filename: beforeName}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(before)),
		B:        splitLines(string(after)),
		FromFile: beforeName,
		ToFile:   afterName,
		Context:  3,
	})
	if err != nil {
		return row, false, err
	}
	if unified == "" {
		return row, false, nil
	}

	fd, err := diff.ParseFileDiff([]byte(unified))
	if err != nil {
		return row, false, err
	}

	var ins, del int
	flush := func() {
		m := 0
		if modified {
			m = min(ins, del)
		}
		row.Inserted += ins - m
		row.Deleted += del - m
		row.Modified += m
		ins, del = 0, 0
	}
	for _, h := range fd.Hunks {
		for _, line := range bytes.Split(h.Body, []byte{'\n'}) {
			switch {
			case len(line) > 0 && line[0] == '+':
				ins++
			case len(line) > 0 && line[0] == '-':
				del++
			default:
				flush()
			}
		}
		flush()
	}
	return row, true, nil
}

// splitLines keeps the trailing newline of every line and tags a last line
// that has none
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += noNewline + "\n"
	return lines
}

// WriteCSV writes rows with the diffstat header
func WriteCSV(w io.Writer, rows []domain.FileStat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(r.Modified),
			r.Filename,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVPath is where WriteFile stores the statistics of datasetDir
func CSVPath(datasetDir string) string {
	return filepath.Clean(datasetDir) + ".csv"
}

// WriteFile writes rows to <datasetDir>.csv and returns the path
func WriteFile(datasetDir string, rows []domain.FileStat) (string, error) {
	path := CSVPath(datasetDir)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
