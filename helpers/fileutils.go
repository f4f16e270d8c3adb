package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// EnsureWithinRoot rejects targets that resolve outside root.
func EnsureWithinRoot(root string, target string) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes %s", target, root)
	}
	return nil
}

// SaveFile streams content into fullPath, creating parent directories.
func SaveFile(fullPath string, content io.Reader) (int64, error) {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return 0, fmt.Errorf("error creating output folder for %s: %w", fullPath, err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("error creating file %s: %w", fullPath, err)
	}

	n, err := io.Copy(f, content)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("error saving file %s: %w", fullPath, err)
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("error closing file %s: %w", fullPath, err)
	}

	return n, nil
}
