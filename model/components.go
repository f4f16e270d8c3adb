package model

import "fmt"

// RepoRef identifies a remote repository parsed from a web URL
type RepoRef struct {
	Host   string
	Owner  string
	Name   string
	Branch string
}

// Slug returns the "<owner>-<name>" directory name used by the local cache.
func (r RepoRef) Slug() string {
	return fmt.Sprintf("%s-%s", r.Owner, r.Name)
}

// FullName returns "<owner>/<name>".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// FileRecord is one file of a repository. Filename is the base name only;
// Path is relative to the repository root and keeps same-named files apart.
type FileRecord struct {
	Filename      string `json:"filename"`
	Path          string `json:"path"`
	SourceLocator string `json:"downloadUrl"`
	Content       string `json:"content"`
}

// Summary is the uniform in-memory view of a repository.
// TotalFiles always equals len(Files); build it with NewSummary.
type Summary struct {
	TotalFiles int          `json:"totalFiles"`
	Files      []FileRecord `json:"files"`
}

func NewSummary(files []FileRecord) Summary {
	if files == nil {
		files = []FileRecord{}
	}
	return Summary{
		TotalFiles: len(files),
		Files:      files,
	}
}

// Without returns a copy of s with every file matching drop removed.
func (s Summary) Without(drop func(FileRecord) bool) Summary {
	kept := make([]FileRecord, 0, len(s.Files))
	for _, f := range s.Files {
		if drop(f) {
			continue
		}
		kept = append(kept, f)
	}
	return NewSummary(kept)
}
