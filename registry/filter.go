package registry

import (
	gitignore "github.com/sabhiram/go-gitignore"

	"repo-digest/model"
)

// dependencyManifests are dropped by base name, case-sensitively.
var dependencyManifests = map[string]struct{}{
	"requirements.txt": {},
	"package.json":     {},
	"yarn.lock":        {},
}

type fileFilter struct {
	excludes *gitignore.GitIgnore
}

func newFileFilter(patterns []string) *fileFilter {
	var matcher *gitignore.GitIgnore
	if len(patterns) > 0 {
		matcher = gitignore.CompileIgnoreLines(patterns...)
	}
	return &fileFilter{excludes: matcher}
}

// Drop reports whether rec is left out of dependency-free summaries.
func (f *fileFilter) Drop(rec model.FileRecord) bool {
	if _, ok := dependencyManifests[rec.Filename]; ok {
		return true
	}
	if f.excludes == nil {
		return false
	}
	p := rec.Path
	if p == "" {
		p = rec.Filename
	}
	return f.excludes.MatchesPath(p)
}
