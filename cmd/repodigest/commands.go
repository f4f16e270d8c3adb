package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"repo-digest/config"
	"repo-digest/fetcher"
	"repo-digest/gh"
	"repo-digest/helpers"
	"repo-digest/localcache"
	"repo-digest/logging"
	"repo-digest/model"
	"repo-digest/registry"
	"repo-digest/report"
)

const responseHeaderTimeout = 30 * time.Second

// appContext holds what every command needs after loading the env file.
type appContext struct {
	cfg    config.Config
	logger *slog.Logger
	client *gh.Client
	out    io.Writer
}

func newAppContext(cmd *cli.Command, clientOpts ...gh.Option) (*appContext, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log)

	opts := append([]gh.Option{
		gh.WithHTTPClient(newHTTPClient()),
		gh.WithBaseURL(cfg.APIBaseURL),
		gh.WithToken(cfg.GitHubToken),
		gh.WithLogger(logger),
	}, clientOpts...)

	return &appContext{
		cfg:    cfg,
		logger: logger,
		client: gh.NewClient(opts...),
		out:    writer(cmd),
	}, nil
}

func (a *appContext) fetcher(repoURL string) (*fetcher.Fetcher, error) {
	return fetcher.New(repoURL,
		fetcher.WithClient(a.client),
		fetcher.WithLogger(a.logger),
		fetcher.WithToken(a.cfg.GitHubToken),
		fetcher.WithWriteArtifact(a.cfg.WriteArtifact),
	)
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	var clientOpts []gh.Option
	if cmd.Bool("progress") {
		clientOpts = append(clientOpts, gh.WithProgress(os.Stderr))
	}

	app, err := newAppContext(cmd, clientOpts...)
	if err != nil {
		return err
	}

	repoURL := cmd.String("url")
	f, err := app.fetcher(repoURL)
	if err != nil {
		return err
	}

	strategy := firstNonEmpty(cmd.String("strategy"), app.cfg.Strategy)
	branch := firstNonEmpty(cmd.String("branch"), f.Ref().Branch, app.cfg.Branch)
	deleteAfter := cmd.Bool("delete-after") || app.cfg.DeleteAfterExtraction

	s, err := f.Strategy(strategy, app.cfg.TempDir, branch, deleteAfter)
	if err != nil {
		return err
	}

	summary, err := f.Fetch(ctx, s)
	if err != nil {
		helpers.Failure(app.out, "Fetch", err)
		return err
	}

	if cmd.Bool("json") {
		return printJSON(app.out, summary)
	}

	ref := f.Ref()
	helpers.Status(app.out, "Repository", ref.FullName())
	helpers.Status(app.out, "Strategy", s.Name())
	helpers.Success(app.out, "Files", summary.TotalFiles)
	if s.Name() != fetcher.StrategyTree && app.cfg.WriteArtifact {
		helpers.Status(app.out, "Artifact", localcache.ArtifactPath(app.cfg.TempDir, ref))
	}
	return nil
}

func walkAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	f, err := app.fetcher(cmd.String("url"))
	if err != nil {
		return err
	}

	summary, err := f.FetchAllCode(ctx)
	if err != nil {
		helpers.Failure(app.out, "Walk", err)
		return err
	}

	if cmd.Bool("json") {
		return printJSON(app.out, summary)
	}

	helpers.Status(app.out, "Repository", f.Ref().FullName())
	helpers.Status(app.out, "Files", summary.TotalFiles)
	for _, file := range summary.Files {
		fmt.Fprintf(app.out, "    %s (%s)\n", file.Path, helpers.FormatBytes(int64(len(file.Content))))
	}
	return nil
}

func batchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	urls, err := config.LoadRepoList(cmd.String("file"))
	if err != nil {
		return err
	}

	opts := append(registry.FromConfig(app.cfg),
		registry.WithClient(app.client),
		registry.WithLogger(app.logger),
	)
	reg := registry.New(opts...)

	results := reg.ProcessSequentially(ctx, urls)
	if cmd.Bool("without-deps") {
		results = reg.FetchAllWithoutDependencies()
	}

	helpers.Status(app.out, "Processed", fmt.Sprintf("%d of %d", len(results), len(urls)))
	for _, u := range reg.Keys() {
		fmt.Fprintf(app.out, "    %s: %d files\n", u, results[u].TotalFiles)
	}

	if len(urls) > 0 && len(results) == 0 {
		return fmt.Errorf("no repository could be processed")
	}
	return nil
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	f, err := app.fetcher(cmd.String("url"))
	if err != nil {
		return err
	}

	s, err := f.Strategy(app.cfg.Strategy, app.cfg.TempDir, firstNonEmpty(f.Ref().Branch, app.cfg.Branch), app.cfg.DeleteAfterExtraction)
	if err != nil {
		return err
	}

	summary, err := f.Fetch(ctx, s)
	if err != nil {
		helpers.Failure(app.out, "Fetch", err)
		return err
	}

	var counter report.TokenCounter
	if !cmd.Bool("no-tokens") {
		tc, err := report.NewTiktokenCounter()
		if err != nil {
			app.logger.Warn("token estimate unavailable", "error", err)
			helpers.Warning(app.out, "Estimated tokens", "unavailable")
		} else {
			counter = tc
		}
	}

	report.Build(f.Ref().FullName(), summary, counter).Write(app.out)
	return nil
}

func infoAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	ref, err := helpers.ParseRepoURL(cmd.String("url"))
	if err != nil {
		return err
	}

	info, err := app.client.FetchRepoInfo(ctx, ref)
	if err != nil {
		helpers.Failure(app.out, "Info", err)
		return err
	}

	helpers.Status(app.out, "Repository", ref.FullName())
	helpers.Status(app.out, "Private", info.Private)
	helpers.Status(app.out, "Default branch", info.DefaultBranch)
	return nil
}

// newHTTPClient bounds the wait for response headers only; archive bodies
// may stream for as long as they need.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = responseHeaderTimeout
	return &http.Client{Transport: transport}
}

func printJSON(w io.Writer, summary model.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
