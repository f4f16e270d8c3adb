// Package localcache owns the on-disk layout under <root>/repos and turns
// extracted directories back into summaries.
package localcache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"repo-digest/helpers"
	"repo-digest/model"
)

// RepoDir returns <root>/repos/<owner>-<name>.
func RepoDir(root string, ref model.RepoRef) string {
	return filepath.Join(root, "repos", ref.Slug())
}

// ArtifactPath returns <root>/repos/<owner>-<name>__all_code.txt.
func ArtifactPath(root string, ref model.RepoRef) string {
	return filepath.Join(root, "repos", ref.Slug()+"__all_code.txt")
}

// Exists reports whether a previous extraction is present at dir.
func Exists(dir string) bool {
	return helpers.Exists(dir)
}

// WriteArtifact writes every file of summary as "Filename: <name>\n<content>\n\n".
func WriteArtifact(path string, summary model.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &model.FilesystemError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &model.FilesystemError{Op: "create", Path: path, Err: err}
	}

	w := bufio.NewWriter(f)
	for _, file := range summary.Files {
		if _, err := fmt.Fprintf(w, "Filename: %s\n%s\n\n", file.Filename, file.Content); err != nil {
			f.Close()
			return &model.FilesystemError{Op: "write", Path: path, Err: err}
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return &model.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.FilesystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// Remove deletes an extracted repository tree.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return &model.FilesystemError{Op: "remove", Path: dir, Err: err}
	}
	return nil
}
