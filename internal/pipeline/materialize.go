package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
)

// Materialize copies each changed file into the flat before/after output
// directories. Names that flatten to the same file overwrite each other in
// order (last write wins); the returned names are unique.
func Materialize(changed []domain.ChangedFile, entry domain.OutputEntry, logger log.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	var names []string
	seen := make(map[string]struct{}, len(changed))

	for _, c := range changed {
		name := domain.Flatten(c.RelPath)
		logger.Debugf("copying %s", c.RelPath)

		if err := copyFile(c.PreFixPath, filepath.Join(entry.BeforePath, name)); err != nil {
			return nil, apperrors.NewIOError("copy "+c.RelPath, err)
		}
		if err := copyFile(c.PostFixPath, filepath.Join(entry.AfterPath, name)); err != nil {
			return nil, apperrors.NewIOError("copy "+c.RelPath, err)
		}

		if _, ok := seen[name]; ok {
			logger.Warningf("%s overwrote an earlier file with the same flattened name %s", c.RelPath, name)
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
