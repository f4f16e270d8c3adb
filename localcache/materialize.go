package localcache

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"repo-digest/model"
)

// Materialize loads every file under dir into a Summary.
//
// The walk is depth-first over an explicit stack of directories; entries of
// one directory come in os.ReadDir order. Symlinks to directories are not
// followed. Files that cannot be read are logged and left out.
func Materialize(dir string, logger *slog.Logger) (model.Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.ReadDir(dir); err != nil {
		return model.Summary{}, &model.FilesystemError{Op: "read dir", Path: dir, Err: err}
	}

	files := []model.FileRecord{}
	stack := []string{""}

	for len(stack) > 0 {
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		abs := filepath.Join(dir, filepath.FromSlash(rel))
		entries, err := os.ReadDir(abs)
		if err != nil {
			logger.Warn("error reading directory", "path", abs, "error", err)
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			relPath := path.Join(rel, entry.Name())
			fullPath := filepath.Join(abs, entry.Name())

			switch {
			case entry.IsDir():
				subdirs = append(subdirs, relPath)
				continue
			case entry.Type()&fs.ModeSymlink != 0:
				info, err := os.Stat(fullPath)
				if err != nil {
					logger.Warn("error reading file", "path", fullPath, "error", err)
					continue
				}
				if info.IsDir() {
					logger.Debug("not following directory symlink", "path", fullPath)
					continue
				}
			case !entry.Type().IsRegular():
				logger.Debug("skipping irregular file", "path", fullPath, "mode", entry.Type().String())
				continue
			}

			content, err := os.ReadFile(fullPath)
			if err != nil {
				logger.Warn("error reading file", "path", fullPath, "error", err)
				continue
			}

			files = append(files, model.FileRecord{
				Filename:      entry.Name(),
				Path:          relPath,
				SourceLocator: "",
				Content:       string(content),
			})
		}

		// reversed so the first subdirectory is walked first
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return model.NewSummary(files), nil
}
