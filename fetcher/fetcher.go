package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"repo-digest/config"
	"repo-digest/gh"
	"repo-digest/helpers"
	"repo-digest/localcache"
	"repo-digest/model"
)

// Strategy obtains the full file set of one repository.
type Strategy interface {
	Name() string
	FetchSummary(ctx context.Context, ref model.RepoRef) (model.Summary, error)
}

const (
	StrategyArchive = "archive"
	StrategyTree    = "tree"
	StrategyClone   = "clone"
)

// Fetcher is bound to a single repository reference.
type Fetcher struct {
	ref           model.RepoRef
	client        *gh.Client
	logger        *slog.Logger
	token         string
	writeArtifact bool
}

type Option func(*Fetcher)

func WithClient(c *gh.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithToken is the credential handed to git when cloning. API calls use the
// client's own token.
func WithToken(token string) Option {
	return func(f *Fetcher) { f.token = token }
}

// WithWriteArtifact toggles the flattened <slug>__all_code.txt file.
func WithWriteArtifact(write bool) Option {
	return func(f *Fetcher) { f.writeArtifact = write }
}

// New parses repoURL and returns a Fetcher for it. Malformed URLs fail here,
// before any network call.
func New(repoURL string, opts ...Option) (*Fetcher, error) {
	ref, err := helpers.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		ref:           ref,
		logger:        slog.Default(),
		writeArtifact: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = gh.NewClient(gh.WithLogger(f.logger))
	}
	return f, nil
}

func (f *Fetcher) Ref() model.RepoRef {
	return f.ref
}

// FetchAndMaterialize returns the repository's files, downloading the branch
// archive into <root>/repos/<owner>-<name> unless that directory already exists.
func (f *Fetcher) FetchAndMaterialize(ctx context.Context, root, branch string, deleteAfter bool) (model.Summary, error) {
	return f.Fetch(ctx, f.archive(root, branch, deleteAfter))
}

// FetchAllCode walks the repository through the contents API.
func (f *Fetcher) FetchAllCode(ctx context.Context) (model.Summary, error) {
	return f.Fetch(ctx, &TreeWalkStrategy{Client: f.client})
}

// Strategy builds the named acquisition strategy.
func (f *Fetcher) Strategy(name, root, branch string, deleteAfter bool) (Strategy, error) {
	switch name {
	case "", StrategyArchive:
		return f.archive(root, branch, deleteAfter), nil
	case StrategyTree:
		return &TreeWalkStrategy{Client: f.client}, nil
	case StrategyClone:
		return &CloneStrategy{
			Root:          root,
			Branch:        f.branch(branch),
			Depth:         1,
			Token:         f.token,
			DeleteAfter:   deleteAfter,
			WriteArtifact: f.writeArtifact,
			Logger:        f.logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Fetch runs s against the fetcher's repository.
func (f *Fetcher) Fetch(ctx context.Context, s Strategy) (model.Summary, error) {
	logger := f.logger.With("fetch_id", uuid.NewString(), "repo", f.ref.FullName(), "strategy", s.Name())
	start := time.Now()
	logger.Info("fetch started")

	summary, err := s.FetchSummary(ctx, f.ref)
	if err != nil {
		logger.Error("fetch failed", "error", err, "duration", time.Since(start))
		return model.Summary{}, err
	}

	logger.Info("fetch finished", "files", summary.TotalFiles, "duration", time.Since(start))
	return summary, nil
}

func (f *Fetcher) archive(root, branch string, deleteAfter bool) *ArchiveStrategy {
	return &ArchiveStrategy{
		Client:        f.client,
		Root:          root,
		Branch:        f.branch(branch),
		DeleteAfter:   deleteAfter,
		WriteArtifact: f.writeArtifact,
		Logger:        f.logger,
	}
}

func (f *Fetcher) branch(branch string) string {
	switch {
	case branch != "":
		return branch
	case f.ref.Branch != "":
		return f.ref.Branch
	default:
		return config.DefaultBranch
	}
}

// ArchiveStrategy downloads the branch tarball into the local cache.
type ArchiveStrategy struct {
	Client        *gh.Client
	Root          string
	Branch        string
	DeleteAfter   bool
	WriteArtifact bool
	Logger        *slog.Logger
}

func (s *ArchiveStrategy) Name() string { return StrategyArchive }

func (s *ArchiveStrategy) FetchSummary(ctx context.Context, ref model.RepoRef) (model.Summary, error) {
	archiveURL := s.Client.ArchiveURL(ref, s.Branch)
	fill := func(staging string) error {
		return s.Client.DownloadAndExtract(ctx, archiveURL, staging)
	}
	return fetchIntoCache(s.Root, ref, fill, cacheOptions{
		deleteAfter:   s.DeleteAfter,
		writeArtifact: s.WriteArtifact,
		logger:        loggerOrDefault(s.Logger),
	})
}

// TreeWalkStrategy lists and downloads every file through the contents API.
// Nothing is written to disk.
type TreeWalkStrategy struct {
	Client *gh.Client
}

func (s *TreeWalkStrategy) Name() string { return StrategyTree }

func (s *TreeWalkStrategy) FetchSummary(ctx context.Context, ref model.RepoRef) (model.Summary, error) {
	return gh.NewWalker(s.Client, ref).FetchAllCode(ctx)
}

type cacheOptions struct {
	deleteAfter   bool
	writeArtifact bool
	logger        *slog.Logger
}

// fetchIntoCache materializes <root>/repos/<slug>, calling fill to populate
// it first when it does not exist yet. fill writes into a sibling staging
// directory which only becomes the cache directory once fill succeeds.
func fetchIntoCache(root string, ref model.RepoRef, fill func(staging string) error, opts cacheOptions) (model.Summary, error) {
	logger := opts.logger
	repoDir := localcache.RepoDir(root, ref)

	if localcache.Exists(repoDir) {
		logger.Info("repository already exists locally", "path", repoDir)
		return localcache.Materialize(repoDir, logger)
	}

	if err := os.MkdirAll(filepath.Dir(repoDir), 0o755); err != nil {
		return model.Summary{}, model.NewFetchError(&model.FilesystemError{Op: "mkdir", Path: filepath.Dir(repoDir), Err: err})
	}

	staging := repoDir + ".partial-" + uuid.NewString()
	logger.Info("downloading repository", "path", repoDir, "staging", staging)

	if err := fill(staging); err != nil {
		if rmErr := localcache.Remove(staging); rmErr != nil {
			logger.Warn("failed to clean up staging directory", "path", staging, "error", rmErr)
		}
		return model.Summary{}, model.NewFetchError(err)
	}

	if err := os.Rename(staging, repoDir); err != nil {
		_ = localcache.Remove(staging)
		return model.Summary{}, model.NewFetchError(&model.FilesystemError{Op: "rename", Path: repoDir, Err: err})
	}

	summary, err := localcache.Materialize(repoDir, logger)
	if err != nil {
		return model.Summary{}, model.NewFetchError(err)
	}

	if opts.writeArtifact {
		artifact := localcache.ArtifactPath(root, ref)
		if err := localcache.WriteArtifact(artifact, summary); err != nil {
			return model.Summary{}, model.NewFetchError(err)
		}
		logger.Info("wrote flattened artifact", "path", artifact)
	}

	if opts.deleteAfter {
		if err := localcache.Remove(repoDir); err != nil {
			logger.Warn("failed to delete extracted repository", "path", repoDir, "error", err)
		} else {
			logger.Info("deleted extracted repository", "path", repoDir)
		}
	}

	return summary, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
