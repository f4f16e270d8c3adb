package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"repo-digest/localcache"
	"repo-digest/model"
)

// CloneStrategy checks the branch out with git instead of downloading an
// archive. The working tree lands in the same cache layout; .git is dropped.
type CloneStrategy struct {
	Root          string
	Branch        string
	Depth         int
	Token         string
	DeleteAfter   bool
	WriteArtifact bool
	Logger        *slog.Logger
	Progress      io.Writer

	// URLFor overrides the remote; defaults to https://<host>/<owner>/<name>.git.
	URLFor func(model.RepoRef) string
}

func (s *CloneStrategy) Name() string { return StrategyClone }

func (s *CloneStrategy) FetchSummary(ctx context.Context, ref model.RepoRef) (model.Summary, error) {
	remote := s.remoteURL(ref)
	logger := loggerOrDefault(s.Logger).With("remote", remote, "branch", s.Branch)

	fill := func(staging string) error {
		opts := &git.CloneOptions{
			URL:          remote,
			SingleBranch: true,
			Depth:        s.Depth,
			Progress:     s.Progress,
		}
		if s.Branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(s.Branch)
		}
		if s.Token != "" {
			opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: s.Token}
		}

		if _, err := git.PlainCloneContext(ctx, staging, false, opts); err != nil {
			return &model.TransportError{Op: "git clone", URL: remote, Err: err}
		}

		gitDir := filepath.Join(staging, git.GitDirName)
		return localcache.Remove(gitDir)
	}

	return fetchIntoCache(s.Root, ref, fill, cacheOptions{
		deleteAfter:   s.DeleteAfter,
		writeArtifact: s.WriteArtifact,
		logger:        logger,
	})
}

func (s *CloneStrategy) remoteURL(ref model.RepoRef) string {
	if s.URLFor != nil {
		return s.URLFor(ref)
	}
	host := ref.Host
	if host == "" {
		host = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, ref.Owner, ref.Name)
}
