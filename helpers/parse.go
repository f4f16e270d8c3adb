package helpers

import (
	"regexp"
	"strings"

	giturls "github.com/whilp/git-urls"

	"repo-digest/model"
)

// GitHubHost is the only web host whose repositories the API client can fetch.
const GitHubHost = "github.com"

var (
	// /tree/<branch> segment of a browser URL
	treeSegmentRegex = regexp.MustCompile(`/tree/[^/]+`)
	// /owner/repo/tree/branch - branch capture
	treeBranchRegex = regexp.MustCompile(`^/[^/]+/[^/]+/tree/([^/]+)`)
)

// NormalizeURL removes the first /tree/<branch> segment from a repository URL.
// Anything after the branch segment is left in place.
func NormalizeURL(repoURL string) string {
	loc := treeSegmentRegex.FindStringIndex(repoURL)
	if loc == nil {
		return repoURL
	}
	return repoURL[:loc[0]] + repoURL[loc[1]:]
}

// ParseRepoURL turns https://github.com/<owner>/<name>[/tree/<branch>/...] into a RepoRef.
// Owner and name are the first two non-empty path segments.
func ParseRepoURL(urlStr string) (model.RepoRef, error) {
	u, err := giturls.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return model.RepoRef{}, &model.InvalidReferenceError{URL: urlStr, Reason: err.Error()}
	}

	if u.Scheme != "https" {
		return model.RepoRef{}, &model.InvalidReferenceError{URL: urlStr, Reason: "expected an https URL"}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return model.RepoRef{}, &model.InvalidReferenceError{URL: urlStr, Reason: "missing host"}
	}
	if host != GitHubHost {
		return model.RepoRef{}, &model.InvalidReferenceError{URL: urlStr, Reason: "expected a " + GitHubHost + " URL"}
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return model.RepoRef{}, &model.InvalidReferenceError{
			URL:    urlStr,
			Reason: "expected https://<host>/<owner>/<name>",
		}
	}

	ref := model.RepoRef{
		Host:  host,
		Owner: segments[0],
		Name:  strings.TrimSuffix(segments[1], ".git"),
	}
	if match := treeBranchRegex.FindStringSubmatch(u.Path); len(match) == 2 {
		ref.Branch = match[1]
	}

	return ref, nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
