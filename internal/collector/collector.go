package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

// DefaultMaxFiles is the number of pairs gathered per project when a
// request does not set one
const DefaultMaxFiles = 100

// Miner gathers before/after file pairs from the commit history of
// GitHub repositories
type Miner interface {
	// MineProject gathers up to req.MaxFiles new pairs and returns how many
	// were written
	MineProject(ctx context.Context, req domain.MineRequest) (int, error)

	// MineAll mines every project in order. A failing project is logged and
	// skipped; only a cancelled context stops the loop.
	MineAll(ctx context.Context, projects []domain.GitHubProject, extension, baseDir string, maxFiles int) (int, error)
}

// ParseRepoURL extracts owner and repository name from a clone URL such as
// https://github.com/owner/repo.git
func ParseRepoURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository url %q: %w", raw, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository url %q", raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// CountFiles counts regular files under root ending with extension. A
// missing root counts as zero.
func CountFiles(root, extension string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && isNotExist(err) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			n++
		}
		return nil
	})
	return n, err
}

func normalizeExtension(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
