package domain

import (
	"path/filepath"
	"strings"
)

const (
	BeforeDir = "before"
	AfterDir  = "after"
)

// BugID is scoped to one project. Defects4J lists its IDs directly while
// BugsInPy only reports a count, so IDs are kept as opaque strings.
type BugID string

// Revision distinguishes the pre-fix and post-fix state of a bug
type Revision int

const (
	RevisionBuggy Revision = iota
	RevisionFixed
)

func (r Revision) String() string {
	if r == RevisionFixed {
		return "fixed"
	}
	return "buggy"
}

// Availability is the typed result of the dataset tool's info probe
type Availability int

const (
	AvailabilityAvailable Availability = iota
	AvailabilityDeprecated
)

// ChangedFile is one file that differs between the two checkouts
type ChangedFile struct {
	RelPath     string
	PreFixPath  string
	PostFixPath string
}

// OutputEntry holds the per-bug output directories
type OutputEntry struct {
	BeforePath string
	AfterPath  string
}

// NewOutputEntry builds <root>/{before,after}/<project>/<bug>
func NewOutputEntry(root string, project Project, bug BugID) OutputEntry {
	return OutputEntry{
		BeforePath: filepath.Join(root, BeforeDir, string(project), string(bug)),
		AfterPath:  filepath.Join(root, AfterDir, string(project), string(bug)),
	}
}

// Flatten turns a relative path into a single file name by replacing
// separators with underscores. Distinct paths may collide (a/b.py, a_b.py).
func Flatten(rel string) string {
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}
