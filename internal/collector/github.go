package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
)

const (
	statusModified = "modified"
	statusRenamed  = "renamed"
)

// githubMiner implements Miner using the GitHub API
type githubMiner struct {
	client      *github.Client
	rateLimiter RateLimiter
	logger      log.Logger
}

// NewGitHubMiner creates a miner authenticated with token
func NewGitHubMiner(token string, logger log.Logger) Miner {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	if logger == nil {
		logger = logging.Nop()
	}
	return newGitHubMiner(github.NewClient(tc), NewRateLimiter(100*time.Millisecond, logger), logger)
}

func newGitHubMiner(client *github.Client, limiter RateLimiter, logger log.Logger) *githubMiner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &githubMiner{client: client, rateLimiter: limiter, logger: logger}
}

// MineAll mines every project in order
func (m *githubMiner) MineAll(ctx context.Context, projects []domain.GitHubProject, extension, baseDir string, maxFiles int) (int, error) {
	total := 0
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := m.MineProject(ctx, domain.MineRequest{
			Project:   p.Name,
			URL:       p.URL,
			Extension: extension,
			BaseDir:   baseDir,
			MaxFiles:  maxFiles,
		})
		total += n
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			m.logger.With(log.Fields{"project": p.Name}).Errorf(err, "mining failed")
			continue
		}
	}
	return total, nil
}

// MineProject walks the commit history of one repository
func (m *githubMiner) MineProject(ctx context.Context, req domain.MineRequest) (int, error) {
	if req.MaxFiles <= 0 {
		req.MaxFiles = DefaultMaxFiles
	}
	req.Extension = normalizeExtension(req.Extension)
	logger := m.logger.With(log.Fields{"project": req.Project})

	existing, err := CountFiles(filepath.Join(req.BaseDir, domain.BeforeDir, req.Project), req.Extension)
	if err != nil {
		return 0, apperrors.NewIOError("failed to count existing files", err)
	}
	if existing >= req.MaxFiles {
		logger.Infof("already enough files (%d), skipping", existing)
		return 0, nil
	}

	owner, repo, err := ParseRepoURL(req.URL)
	if err != nil {
		return 0, apperrors.NewBadRequestError(err.Error())
	}

	gathered := 0
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		if err := m.rateLimiter.Wait(ctx); err != nil {
			return gathered, err
		}
		commits, resp, err := m.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			// empty repository
			if resp != nil && resp.StatusCode == http.StatusConflict {
				return gathered, nil
			}
			return gathered, classify(fmt.Sprintf("failed to list commits for %s/%s", owner, repo), err)
		}
		m.updateRateLimitFromResponse(resp)

		for _, c := range commits {
			// merges have no single before version, root commits have none
			if len(c.Parents) != 1 {
				continue
			}
			n, err := m.mineCommit(ctx, owner, repo, req, c.GetSHA(), req.MaxFiles-gathered)
			gathered += n
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return gathered, ctxErr
				}
				if apperrors.IsRateLimited(err) {
					return gathered, err
				}
				logger.Warningf("skipping commit %s: %v", c.GetSHA(), err)
				continue
			}
			if gathered >= req.MaxFiles {
				logger.Infof("gathered %d files", gathered)
				return gathered, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Infof("history exhausted after %d files", gathered)
	return gathered, nil
}

// mineCommit writes the pairs of one commit, at most limit of them
func (m *githubMiner) mineCommit(ctx context.Context, owner, repo string, req domain.MineRequest, sha string, limit int) (int, error) {
	if err := m.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	commit, resp, err := m.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return 0, classify("failed to get commit "+sha, err)
	}
	m.updateRateLimitFromResponse(resp)
	if len(commit.Parents) != 1 {
		return 0, nil
	}
	parent := commit.Parents[0].GetSHA()

	n := 0
	for _, f := range commit.Files {
		if n >= limit {
			break
		}
		if !hasBothVersions(f) || !strings.HasSuffix(f.GetFilename(), req.Extension) {
			continue
		}

		name := path.Base(f.GetFilename())
		beforePath := filepath.Join(req.BaseDir, domain.BeforeDir, req.Project, sha, name)
		afterPath := filepath.Join(req.BaseDir, domain.AfterDir, req.Project, sha, name)
		if exists(beforePath) || exists(afterPath) {
			continue
		}

		var after []byte
		oldName := f.GetPreviousFilename()
		if oldName == "" {
			oldName = f.GetFilename()
		}
		before, err := m.fetch(ctx, owner, repo, oldName, parent)
		if err == nil {
			after, err = m.fetch(ctx, owner, repo, f.GetFilename(), sha)
		}
		if apperrors.IsNotFound(err) {
			m.logger.Debugf("%s: %v", sha, err)
			continue
		}
		if err != nil {
			return n, err
		}

		if err := writeFile(beforePath, before); err != nil {
			return n, err
		}
		if err := writeFile(afterPath, after); err != nil {
			os.Remove(beforePath)
			return n, err
		}
		n++
	}
	return n, nil
}

// fetch returns the content of file at ref
func (m *githubMiner) fetch(ctx context.Context, owner, repo, file, ref string) ([]byte, error) {
	if err := m.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	content, _, resp, err := m.client.Repositories.GetContents(ctx, owner, repo, file,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to get %s@%s", file, ref), err)
	}
	m.updateRateLimitFromResponse(resp)
	if content == nil {
		return nil, fmt.Errorf("%s@%s is not a file", file, ref)
	}
	text, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s@%s: %w", file, ref, err)
	}
	return []byte(text), nil
}

// hasBothVersions reports whether f existed before and after the commit
func hasBothVersions(f *github.CommitFile) bool {
	switch f.GetStatus() {
	case statusModified:
		return true
	case statusRenamed:
		return f.GetChanges() > 0
	}
	return false
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (m *githubMiner) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		m.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func classify(msg string, err error) error {
	var rle *github.RateLimitError
	var are *github.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &are) {
		return apperrors.NewRateLimitedError(msg)
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch er.Response.StatusCode {
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError(msg)
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(msg)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewIOError("failed to create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewIOError("failed to write "+path, err)
	}
	return nil
}
