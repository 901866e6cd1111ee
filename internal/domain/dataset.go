package domain

// Dataset identifies a family of before/after pairs
type Dataset string

const (
	DatasetDefects4J Dataset = "defects4j"
	DatasetBugsInPy  Dataset = "bugsinpy"
	DatasetGHJava    Dataset = "gh-java"
	DatasetGHPython  Dataset = "gh-python"
)

// Valid reports whether d is one of the known dataset families
func (d Dataset) Valid() bool {
	switch d {
	case DatasetDefects4J, DatasetBugsInPy, DatasetGHJava, DatasetGHPython:
		return true
	}
	return false
}

// Project is an identifier known to the external bug-dataset tool
type Project string

// GitHubProject is a repository mined commit-by-commit
type GitHubProject struct {
	Name string
	URL  string
}

// MineRequest describes one GitHub mining job
type MineRequest struct {
	Project   string
	URL       string
	Extension string
	BaseDir   string
	MaxFiles  int
}
