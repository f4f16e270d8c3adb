package gh

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-digest/model"
)

func serveBytes(data []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-gzip")
		_, _ = w.Write(data)
	})
}

func TestDownloadAndExtract(t *testing.T) {
	archive := buildTarball(t, []tarEntry{
		{Name: "pax_global_header", Typeflag: tar.TypeXGlobalHeader},
		{Name: "octo-hello-abc123/", Typeflag: tar.TypeDir},
		{Name: "octo-hello-abc123/README.md", Body: "# hello"},
		{Name: "octo-hello-abc123/src/", Typeflag: tar.TypeDir},
		{Name: "octo-hello-abc123/src/main.go", Body: "package main"},
		{Name: "octo-hello-abc123/deep/nested/file.txt", Body: "no dir entry first"},
		{Name: "octo-hello-abc123/link", Typeflag: tar.TypeSymlink, Linkname: "README.md"},
	})

	var auth string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write(archive)
	}), WithToken("tok"))

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, c.DownloadAndExtract(context.Background(), srv.URL+"/tarball/main", dest))

	data, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	assert.FileExists(t, filepath.Join(dest, "deep", "nested", "file.txt"))
	assert.NoFileExists(t, filepath.Join(dest, "link"))
	assert.NoDirExists(t, filepath.Join(dest, "octo-hello-abc123"))
	assert.NoFileExists(t, filepath.Join(dest, "pax_global_header"))
	assert.Equal(t, "token tok", auth)
}

func TestDownloadAndExtractReportsProgress(t *testing.T) {
	archive := buildTarball(t, []tarEntry{{Name: "top/a.txt", Body: "a"}})

	var progress bytes.Buffer
	c, srv := newTestClient(t, serveBytes(archive), WithProgress(&progress))

	require.NoError(t, c.DownloadAndExtract(context.Background(), srv.URL, t.TempDir()))
	assert.NotEmpty(t, progress.String())
}

func TestDownloadAndExtractHTTPError(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())

	dest := filepath.Join(t.TempDir(), "out")
	err := c.DownloadAndExtract(context.Background(), srv.URL, dest)

	var transport *model.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.StatusNotFound, transport.StatusCode)
	assert.NoDirExists(t, dest)
}

func TestDownloadAndExtractTruncatedStream(t *testing.T) {
	archive := buildTarball(t, []tarEntry{
		{Name: "top/a.txt", Body: string(bytes.Repeat([]byte("a"), 64*1024))},
		{Name: "top/b.txt", Body: string(bytes.Repeat([]byte("b"), 64*1024))},
	})
	truncated := archive[:len(archive)/2]

	c, srv := newTestClient(t, serveBytes(truncated))

	err := c.DownloadAndExtract(context.Background(), srv.URL, t.TempDir())
	require.Error(t, err)
}

func TestDownloadAndExtractNotGzip(t *testing.T) {
	c, srv := newTestClient(t, serveBytes([]byte("<html>not an archive</html>")))

	err := c.DownloadAndExtract(context.Background(), srv.URL, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestDownloadAndExtractRejectsPathEscape(t *testing.T) {
	archive := buildTarball(t, []tarEntry{
		{Name: "top/ok.txt", Body: "fine"},
		{Name: "top/../../escaped.txt", Body: "evil"},
	})
	c, srv := newTestClient(t, serveBytes(archive))

	parent := t.TempDir()
	dest := filepath.Join(parent, "out")
	err := c.DownloadAndExtract(context.Background(), srv.URL, dest)

	var fsErr *model.FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))
}

func TestStripTopLevel(t *testing.T) {
	tests := map[string]string{
		"repo-sha/":             "",
		"repo-sha":              "",
		"repo-sha/a.txt":        "a.txt",
		"./repo-sha/src/b.go":   "src/b.go",
		"repo-sha//abs/c.go":    "abs/c.go",
		"repo-sha/../escape.sh": "../escape.sh",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripTopLevel(in), in)
	}
}
