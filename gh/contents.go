package gh

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"

	"repo-digest/model"
)

// ContentEntry is one item of a contents API directory listing.
type ContentEntry struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	DownloadURL *string `json:"download_url"`
}

// Walker enumerates a repository through the contents API, one request per
// directory and one per file.
type Walker struct {
	client *Client
	ref    model.RepoRef
}

func NewWalker(client *Client, ref model.RepoRef) *Walker {
	return &Walker{client: client, ref: ref}
}

// ListDirectory returns the immediate children of dir ("" for the root).
func (w *Walker) ListDirectory(ctx context.Context, dir string) ([]ContentEntry, error) {
	endpoint := w.client.ContentsURL(w.ref, dir)
	w.client.logger.Debug("fetching contents", "url", endpoint)

	resp, err := w.client.get(ctx, "list contents", endpoint, acceptV3, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []ContentEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &model.TransportError{Op: "list contents", URL: endpoint, Err: err}
	}
	return entries, nil
}

// walkItem is a pending directory listing or file download.
type walkItem struct {
	dir   string
	isDir bool
	entry ContentEntry
}

// FetchAllCode lists every directory of the repository and downloads each
// file. A failed listing aborts the walk; a failed download leaves that
// record's content empty.
func (w *Walker) FetchAllCode(ctx context.Context) (model.Summary, error) {
	logger := w.client.logger.With("repo", w.ref.FullName())
	logger.Info("starting to fetch all code files")

	files := []model.FileRecord{}
	// files and directories share one stack so a directory's files land
	// where the directory appeared in its parent's listing
	stack := []walkItem{{dir: "", isDir: true}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !item.isDir {
			files = append(files, w.fileRecord(ctx, logger, item.dir, item.entry))
			continue
		}

		entries, err := w.ListDirectory(ctx, item.dir)
		if err != nil {
			logger.Error("error fetching repository contents", "path", item.dir, "error", err)
			return model.Summary{}, err
		}

		var children []walkItem
		for _, entry := range entries {
			switch entry.Type {
			case "file":
				children = append(children, walkItem{dir: item.dir, entry: entry})
			case "dir":
				children = append(children, walkItem{dir: entry.Path, isDir: true})
			default:
				logger.Debug("ignoring entry", "type", entry.Type, "path", entry.Path)
			}
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	logger.Info("successfully fetched all code files", "files", len(files))
	return model.NewSummary(files), nil
}

func (w *Walker) fileRecord(ctx context.Context, logger *slog.Logger, dir string, entry ContentEntry) model.FileRecord {
	rec := model.FileRecord{
		Filename: entry.Name,
		Path:     entry.Path,
	}
	if rec.Path == "" {
		rec.Path = path.Join(dir, entry.Name)
	}

	if entry.DownloadURL == nil || *entry.DownloadURL == "" {
		return rec
	}
	rec.SourceLocator = *entry.DownloadURL

	content, err := w.client.FetchRawContent(ctx, rec.SourceLocator)
	if err != nil {
		logger.Warn("failed to fetch file content", "url", rec.SourceLocator, "error", err)
		return rec
	}
	rec.Content = content
	return rec
}
