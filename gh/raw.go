package gh

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"repo-digest/model"
)

const (
	lfsPointerPrefix = "version https://git-lfs.github.com/spec/v1"
	rawHost          = "raw.githubusercontent.com"
	mediaHost        = "media.githubusercontent.com"
)

// FetchRawContent downloads a file body without credentials. Git LFS pointers
// served from raw.githubusercontent.com are swapped for the real object.
func (c *Client) FetchRawContent(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.get(ctx, "fetch raw", rawURL, "", false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if isLfsResponse(resp) {
		if mediaURL, ok := lfsMediaURL(rawURL); ok {
			c.logger.Debug("following git lfs pointer", "url", mediaURL)
			resp.Body.Close()

			resp, err = c.get(ctx, "fetch lfs", mediaURL, "", false)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.TransportError{Op: "fetch raw", URL: rawURL, Err: err}
	}
	return string(data), nil
}

// isLfsResponse checks if the HTTP response potentially contains a Git LFS pointer.
// It peeks at the response body and resets it for subsequent reads.
func isLfsResponse(res *http.Response) bool {
	if res.ContentLength < 128 || res.ContentLength > 140 {
		return false
	}

	// Peek at the beginning of the response
	bufr := make([]byte, len(lfsPointerPrefix))
	n, err := io.ReadFull(res.Body, bufr)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}

	// Put the peeked bytes back in front of the rest
	res.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(bufr[:n]), res.Body), res.Body}

	return string(bufr[:n]) == lfsPointerPrefix
}

// lfsMediaURL maps https://raw.githubusercontent.com/o/r/ref/path to
// https://media.githubusercontent.com/media/o/r/ref/path.
func lfsMediaURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != rawHost {
		return "", false
	}
	u.Host = mediaHost
	u.Path = "/media/" + strings.TrimPrefix(u.Path, "/")
	if u.RawPath != "" {
		u.RawPath = "/media/" + strings.TrimPrefix(u.RawPath, "/")
	}
	return u.String(), true
}
