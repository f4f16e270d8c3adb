// Package registry keeps the summaries of every repository added during the
// process lifetime, keyed by the URL they were added with.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"repo-digest/config"
	"repo-digest/fetcher"
	"repo-digest/gh"
	"repo-digest/helpers"
	"repo-digest/model"
)

type Registry struct {
	mu      sync.RWMutex
	entries map[string]model.Summary
	order   []string

	root          string
	branch        string
	strategy      string
	token         string
	baseURL       string
	deleteAfter   bool
	writeArtifact bool
	client        *gh.Client
	logger        *slog.Logger
	filter        *fileFilter
}

type Option func(*Registry)

// WithRoot sets the cache root; <root>/repos holds the extracted trees.
func WithRoot(root string) Option {
	return func(r *Registry) {
		if root != "" {
			r.root = root
		}
	}
}

func WithBranch(branch string) Option {
	return func(r *Registry) {
		if branch != "" {
			r.branch = branch
		}
	}
}

// WithStrategy selects "archive", "tree" or "clone".
func WithStrategy(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.strategy = name
		}
	}
}

func WithToken(token string) Option {
	return func(r *Registry) { r.token = token }
}

func WithBaseURL(baseURL string) Option {
	return func(r *Registry) { r.baseURL = baseURL }
}

// WithClient overrides the API client built from the token and base URL.
func WithClient(c *gh.Client) Option {
	return func(r *Registry) { r.client = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithDeleteAfter(deleteAfter bool) Option {
	return func(r *Registry) { r.deleteAfter = deleteAfter }
}

func WithWriteArtifact(write bool) Option {
	return func(r *Registry) { r.writeArtifact = write }
}

// WithExcludePatterns adds gitignore-style patterns matched against file
// paths in FetchAllWithoutDependencies.
func WithExcludePatterns(patterns ...string) Option {
	return func(r *Registry) { r.filter = newFileFilter(patterns) }
}

// FromConfig translates a loaded configuration into registry options.
func FromConfig(cfg config.Config) []Option {
	return []Option{
		WithRoot(cfg.TempDir),
		WithBranch(cfg.Branch),
		WithStrategy(cfg.Strategy),
		WithToken(cfg.GitHubToken),
		WithBaseURL(cfg.APIBaseURL),
		WithDeleteAfter(cfg.DeleteAfterExtraction),
		WithWriteArtifact(cfg.WriteArtifact),
		WithExcludePatterns(cfg.ExcludePatterns...),
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		entries:       map[string]model.Summary{},
		root:          config.DefaultTempDir,
		branch:        config.DefaultBranch,
		strategy:      config.DefaultStrategy,
		writeArtifact: true,
		logger:        slog.Default(),
		filter:        newFileFilter(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = gh.NewClient(
			gh.WithBaseURL(r.baseURL),
			gh.WithToken(r.token),
			gh.WithLogger(r.logger),
		)
	}
	return r
}

// Add fetches the repository at repoURL and stores its summary under
// repoURL exactly as given. A repository already on disk is not downloaded
// again.
func (r *Registry) Add(ctx context.Context, repoURL string) error {
	cleanURL := helpers.NormalizeURL(repoURL)
	r.logger.Info("cleaned repository url", "url", repoURL, "clean_url", cleanURL)

	f, err := fetcher.New(cleanURL,
		fetcher.WithClient(r.client),
		fetcher.WithLogger(r.logger),
		fetcher.WithToken(r.token),
		fetcher.WithWriteArtifact(r.writeArtifact),
	)
	if err != nil {
		return err
	}

	s, err := f.Strategy(r.strategy, r.root, r.branch, r.deleteAfter)
	if err != nil {
		return err
	}

	summary, err := f.Fetch(ctx, s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.entries[repoURL]; !ok {
		r.order = append(r.order, repoURL)
	}
	r.entries[repoURL] = summary
	r.mu.Unlock()

	r.logger.Info("added repository", "url", repoURL, "files", summary.TotalFiles)
	return nil
}

// Get looks up a summary by the exact URL it was added with.
func (r *Registry) Get(repoURL string) (model.Summary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[repoURL]
	return s, ok
}

// Keys returns the registered URLs in the order they were first added.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All returns a snapshot of every registered summary.
func (r *Registry) All() map[string]model.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Summary, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// FetchAllWithoutDependencies returns every summary with dependency
// manifests (and any configured exclusions) filtered out. Stored summaries
// are left untouched.
func (r *Registry) FetchAllWithoutDependencies() map[string]model.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Summary, len(r.entries))
	for k, v := range r.entries {
		out[k] = v.Without(r.filter.Drop)
	}
	return out
}

// ProcessSequentially adds each URL in turn. A failing URL is logged and
// skipped; the rest still run.
func (r *Registry) ProcessSequentially(ctx context.Context, urls []string) map[string]model.Summary {
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("stopping batch", "error", err)
			break
		}
		if err := r.Add(ctx, u); err != nil {
			r.logger.Error("failed to process repository", "url", u, "error", err)
			continue
		}
		r.logger.Info("successfully processed repository", "url", u)
	}
	return r.All()
}

// ProcessRepositories builds a registry from opts and runs urls through it.
func ProcessRepositories(ctx context.Context, urls []string, opts ...Option) map[string]model.Summary {
	return New(opts...).ProcessSequentially(ctx, urls)
}
