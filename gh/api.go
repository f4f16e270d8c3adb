package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"repo-digest/model"
)

const (
	DefaultBaseURL = "https://api.github.com"
	acceptV3       = "application/vnd.github.v3+json"
)

// Client talks to the GitHub REST API (or anything serving the same paths).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	progress   io.Writer
}

type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an Enterprise host or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithToken sets the credential sent as "Authorization: token <token>".
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress renders a byte progress bar to w while archives download.
func WithProgress(w io.Writer) Option {
	return func(c *Client) { c.progress = w }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoURL returns <base>/repos/<owner>/<name>.
func (c *Client) RepoURL(ref model.RepoRef) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
}

// ArchiveURL returns the tarball endpoint for branch.
func (c *Client) ArchiveURL(ref model.RepoRef, branch string) string {
	return c.RepoURL(ref) + "/tarball/" + escapePath(branch)
}

// ContentsURL returns the contents endpoint for a repository-relative path.
func (c *Client) ContentsURL(ref model.RepoRef, dir string) string {
	return c.RepoURL(ref) + "/contents/" + escapePath(dir)
}

// get issues a GET and returns the open response for any 2xx status.
// Other statuses are turned into a *model.TransportError.
func (c *Client) get(ctx context.Context, op, endpoint, accept string, authenticated bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &model.TransportError{Op: op, URL: endpoint, Err: err}
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if authenticated && c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: op, URL: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &model.TransportError{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp),
		}
	}

	return resp, nil
}

// statusError maps a failed GitHub response to a cause, preferring the API's
// own "message" field when present.
func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return model.ErrInvalidToken
	case http.StatusNotFound:
		return model.ErrRepositoryNotFound
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return model.ErrRateLimitExceeded
		}
	}

	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return errors.New(body.Message)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}

// RepoInfo represents information about a repository
type RepoInfo struct {
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
}

// FetchRepoInfo reads visibility and default branch of a repository.
func (c *Client) FetchRepoInfo(ctx context.Context, ref model.RepoRef) (*RepoInfo, error) {
	endpoint := c.RepoURL(ref)
	resp, err := c.get(ctx, "repo info", endpoint, acceptV3, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info RepoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &model.TransportError{Op: "repo info", URL: endpoint, Err: err}
	}
	return &info, nil
}

// escapePath escapes each segment of a slash separated path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
