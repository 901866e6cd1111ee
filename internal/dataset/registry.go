package dataset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

// Registry lists the projects harvested for each dataset family
type Registry struct {
	Defects4J        []domain.Project  `yaml:"defects4j"`
	BugsInPy         []domain.Project  `yaml:"bugsinpy"`
	BugsInPyExtended []domain.Project  `yaml:"bugsinpy_extended"`
	GitHubJava       map[string]string `yaml:"gh_java"`
	GitHubPython     map[string]string `yaml:"gh_python"`
}

// DefaultRegistry returns the built-in project lists
func DefaultRegistry() *Registry {
	return &Registry{
		Defects4J: projects(
			"Chart", "Cli", "Closure", "Codec", "Collections", "Compress", "Csv", "Gson",
			"JacksonCore", "JacksonDatabind", "JacksonXml", "Jsoup", "JxPath", "Lang",
			"Math", "Mockito", "Time",
		),
		BugsInPy: projects(
			"sanic", "spacy", "tornado", "youtube-dl", "ansible", "cookiecutter",
			"httpie", "luigi", "pandas", "scrapy", "thefuck", "tqdm",
		),
		BugsInPyExtended: projects(
			"PySnooper", "black", "fastapi", "keras", "matplotlib", "sanic", "spacy",
			"tornado", "youtube-dl", "ansible", "cookiecutter", "httpie", "luigi",
			"pandas", "scrapy", "thefuck", "tqdm",
		),
		GitHubJava: map[string]string{
			"apache-commons-cli": "https://github.com/apache/commons-cli.git",
			"google-guava":       "https://github.com/google/guava.git",
			"ok-http":            "https://github.com/square/okhttp.git",
			"h2":                 "https://github.com/h2database/h2database.git",
			"zaproxy":            "https://github.com/zaproxy/zaproxy.git",
			"jabref":             "https://github.com/JabRef/jabref.git",
			"elastic-search":     "https://github.com/elastic/elasticsearch.git",
			"killbill":           "https://github.com/killbill/killbill.git",
			"drool":              "https://github.com/kiegroup/drools.git",
			"signal-server":      "https://github.com/signalapp/Signal-Server.git",
		},
		GitHubPython: map[string]string{
			"black":          "https://github.com/psf/black.git",
			"scikit-learn":   "https://github.com/scikit-learn/scikit-learn.git",
			"wagtail":        "https://github.com/wagtail/wagtail.git",
			"home-assistant": "https://github.com/home-assistant/core.git",
			"textual":        "https://github.com/Textualize/textual.git",
			"pyxel":          "https://github.com/kitao/pyxel.git",
			"django":         "https://github.com/django/django.git",
			"keras":          "https://github.com/keras-team/keras.git",
			"ansible":        "https://github.com/ansible/ansible.git",
			"requests":       "https://github.com/psf/requests.git",
		},
	}
}

// LoadRegistry reads overrides from a YAML file on top of the defaults.
// Project lists present in the file replace the built-in ones, repository
// maps are merged key by key. An empty path returns the defaults.
func LoadRegistry(path string) (*Registry, error) {
	reg := DefaultRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return reg, nil
}

// Projects returns the checkout projects of a dataset
func (r *Registry) Projects(ds domain.Dataset, extended bool) []domain.Project {
	switch ds {
	case domain.DatasetDefects4J:
		return r.Defects4J
	case domain.DatasetBugsInPy:
		if extended {
			return r.BugsInPyExtended
		}
		return r.BugsInPy
	}
	return nil
}

// GitHubProjects returns the mined repositories of a dataset sorted by name
func (r *Registry) GitHubProjects(ds domain.Dataset) []domain.GitHubProject {
	var repos map[string]string
	switch ds {
	case domain.DatasetGHJava:
		repos = r.GitHubJava
	case domain.DatasetGHPython:
		repos = r.GitHubPython
	}

	out := make([]domain.GitHubProject, 0, len(repos))
	for name, url := range repos {
		out = append(out, domain.GitHubProject{Name: name, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Extension returns the source suffix harvested for a dataset
func Extension(ds domain.Dataset) string {
	switch ds {
	case domain.DatasetDefects4J, domain.DatasetGHJava:
		return ".java"
	case domain.DatasetBugsInPy, domain.DatasetGHPython:
		return ".py"
	}
	return ""
}

func projects(names ...string) []domain.Project {
	out := make([]domain.Project, len(names))
	for i, n := range names {
		out[i] = domain.Project(n)
	}
	return out
}
