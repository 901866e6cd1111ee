// Package cases renders gumtree HTML diffs for a list of before/after pairs.
package cases

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
)

const (
	// DefaultBinary is the gumtree executable looked up on PATH
	DefaultBinary = "gumtree"

	simpleMatcher = "gumtree-simple"
	pythonGrammar = "python-treesitter"
	optimalSuffix = "_opt.html"
	simpleSuffix  = "_simple.html"
	beforeColumn  = "before"
	afterColumn   = "after"
)

// pythonPrefixes select the tree-sitter grammar for Python datasets
var pythonPrefixes = []string{string(domain.DatasetBugsInPy), string(domain.DatasetGHPython)}

// Case is one row of the cases file
type Case struct {
	Before string
	After  string
}

// Report summarizes an extraction
type Report struct {
	Cases   int
	Written int
	Failed  int
}

// Extractor runs gumtree htmldiff for every case
type Extractor struct {
	Runner runner.Runner
	Binary string
	Logger log.Logger
}

// NewExtractor creates an extractor. An empty binary means DefaultBinary.
func NewExtractor(r runner.Runner, binary string, logger log.Logger) *Extractor {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{Runner: r, Binary: binary, Logger: logger}
}

// Extract reads casesFile and writes two HTML diffs per row into outDir,
// one with the default matcher and one with the simple matcher. A failing
// row is logged and counted.
func (e *Extractor) Extract(ctx context.Context, casesFile, outDir string) (*Report, error) {
	f, err := os.Open(casesFile)
	if err != nil {
		return nil, apperrors.NewIOError("failed to open cases file", err)
	}
	defer f.Close()

	list, err := ReadCases(f)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.NewIOError("failed to create output folder", err)
	}

	report := &Report{Cases: len(list)}
	for _, c := range list {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		logger := e.Logger.With(log.Fields{"before": c.Before})
		name := filepath.Join(outDir, domain.Flatten(c.Before))

		failed := false
		for _, v := range []struct {
			matcher string
			path    string
		}{
			{path: name + optimalSuffix},
			{matcher: simpleMatcher, path: name + simpleSuffix},
		} {
			if err := e.render(ctx, c, v.matcher, v.path); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				logger.Errorf(err, "htmldiff failed")
				failed = true
				continue
			}
			report.Written++
		}
		if failed {
			report.Failed++
		}
	}

	e.Logger.Infof("extracted %d cases, %d failed", report.Cases, report.Failed)
	return report, nil
}

func (e *Extractor) render(ctx context.Context, c Case, matcher, path string) error {
	args := Args(c, matcher)
	e.Logger.Debugf("%s", runner.CommandLine(e.Binary, args...))

	res, err := e.Runner.Run(ctx, e.Binary, args...)
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return apperrors.NewToolError("htmldiff", err)
	}
	if err := os.WriteFile(path, res.Stdout, 0o644); err != nil {
		return apperrors.NewIOError("failed to write "+path, err)
	}
	return nil
}

// Args builds the htmldiff arguments for c. An empty matcher keeps the
// gumtree default.
func Args(c Case, matcher string) []string {
	args := []string{"htmldiff", c.Before, c.After}
	if matcher != "" {
		args = append(args, "-m", matcher)
	}
	for _, prefix := range pythonPrefixes {
		if strings.HasPrefix(c.Before, prefix) {
			args = append(args, "-g", pythonGrammar)
			break
		}
	}
	return args
}

// ReadCases parses a CSV with a header containing before and after columns
func ReadCases(r io.Reader) ([]Case, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("cases file has no header: %v", err))
	}
	beforeIdx, afterIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case beforeColumn:
			beforeIdx = i
		case afterColumn:
			afterIdx = i
		}
	}
	if beforeIdx < 0 || afterIdx < 0 {
		return nil, apperrors.NewBadRequestError("cases file needs before and after columns")
	}

	var list []Case
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewBadRequestError(fmt.Sprintf("line %d: %v", line, err))
		}
		if beforeIdx >= len(rec) || afterIdx >= len(rec) {
			return nil, apperrors.NewBadRequestError(fmt.Sprintf("line %d: missing columns", line))
		}
		list = append(list, Case{Before: rec[beforeIdx], After: rec[afterIdx]})
	}
	return list, nil
}
