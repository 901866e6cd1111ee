// Package workspace hands out the scratch checkout directories used for one
// bug at a time.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

// Workspace is a pair of empty directories that the checkout tool fills
// with the buggy and fixed revisions.
type Workspace struct {
	Before string
	After  string
}

// Acquire resets <root>/before and <root>/after so that nothing from the
// previous bug survives into the next checkout.
func Acquire(root string) (*Workspace, error) {
	ws := &Workspace{
		Before: filepath.Join(root, domain.BeforeDir),
		After:  filepath.Join(root, domain.AfterDir),
	}
	if err := ws.reset(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Dir returns the directory that receives the given revision
func (ws *Workspace) Dir(rev domain.Revision) string {
	if rev == domain.RevisionFixed {
		return ws.After
	}
	return ws.Before
}

// Release removes both checkouts. It is safe to call more than once.
func (ws *Workspace) Release() error {
	return errors.Join(os.RemoveAll(ws.Before), os.RemoveAll(ws.After))
}

func (ws *Workspace) reset() error {
	for _, dir := range []string{ws.Before, ws.After} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear workspace %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace %s: %w", dir, err)
		}
	}
	return nil
}
