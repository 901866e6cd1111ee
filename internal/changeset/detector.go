// Package changeset finds the files that differ between two checkouts of
// the same project.
package changeset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

const compareChunk = 32 * 1024

// Detector compares a pre-fix tree against a post-fix tree.
type Detector struct {
	// Extension restricts candidates to files whose name ends with it.
	// Empty means every regular file is a candidate.
	Extension string

	// OnError receives comparison failures for single candidates, which are
	// then skipped. When nil the first such failure aborts Detect.
	OnError func(rel string, err error)
}

// Detect walks preRoot and returns one record per file that exists at the
// same relative path under postRoot and whose content differs. Files that
// exist in only one of the trees are never reported.
func (d *Detector) Detect(preRoot, postRoot string) ([]domain.ChangedFile, error) {
	var changed []domain.ChangedFile

	err := filepath.WalkDir(preRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == preRoot {
				return err
			}
			return d.failAt(preRoot, path, err)
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if d.Extension != "" && !strings.HasSuffix(entry.Name(), d.Extension) {
			return nil
		}

		rel, err := filepath.Rel(preRoot, path)
		if err != nil {
			return d.failAt(preRoot, path, err)
		}
		other := filepath.Join(postRoot, rel)
		info, err := os.Stat(other)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return d.fail(rel, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		same, err := SameContent(path, other)
		if err != nil {
			return d.fail(rel, err)
		}
		if !same {
			changed = append(changed, domain.ChangedFile{
				RelPath:     rel,
				PreFixPath:  path,
				PostFixPath: other,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s with %s: %w", preRoot, postRoot, err)
	}

	return changed, nil
}

// failAt reports a failure under root with the path relative to root
func (d *Detector) failAt(root, path string, err error) error {
	rel, relErr := filepath.Rel(root, path)
	if relErr != nil {
		rel = filepath.Base(path)
	}
	return d.fail(rel, err)
}

func (d *Detector) fail(rel string, err error) error {
	if d.OnError == nil {
		return err
	}
	d.OnError(rel, err)
	return nil
}

// SameContent reports whether two files hold identical bytes.
func SameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, err
	}
	sb, err := fb.Stat()
	if err != nil {
		return false, err
	}
	if sa.Size() != sb.Size() {
		return false, nil
	}

	ra := bufio.NewReaderSize(fa, compareChunk)
	rb := bufio.NewReaderSize(fb, compareChunk)
	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)
	for {
		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, errA
		}
		if errB != nil && !doneB {
			return false, errB
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}
