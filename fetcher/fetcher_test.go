package fetcher

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-digest/gh"
	"repo-digest/logging"
	"repo-digest/model"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "octo-hello-0a1b2c/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type archiveServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newArchiveServer(t *testing.T, handler http.HandlerFunc) *archiveServer {
	t.Helper()
	s := &archiveServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) fetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	client := gh.NewClient(gh.WithBaseURL(s.URL), gh.WithHTTPClient(s.Client()), gh.WithLogger(logging.Discard()))
	opts = append([]Option{WithClient(client), WithLogger(logging.Discard())}, opts...)
	f, err := New("https://github.com/octo/hello", opts...)
	require.NoError(t, err)
	return f
}

func leftovers(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, "repos", "*.partial-*"))
	require.NoError(t, err)
	return matches
}

func TestFetchAndMaterializeDownloadsOnce(t *testing.T) {
	archive := tarball(t, map[string]string{
		"README.md":   "# hello",
		"src/main.go": "package main",
	})
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/hello/tarball/main", r.URL.Path)
		_, _ = w.Write(archive)
	})
	f := srv.fetcher(t)
	root := t.TempDir()

	first, err := f.FetchAndMaterialize(context.Background(), root, "main", false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalFiles)
	assert.DirExists(t, filepath.Join(root, "repos", "octo-hello"))

	artifact, err := os.ReadFile(filepath.Join(root, "repos", "octo-hello__all_code.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(artifact), "Filename: main.go\npackage main\n\n")

	second, err := f.FetchAndMaterialize(context.Background(), root, "main", false)
	require.NoError(t, err)
	assert.Equal(t, first.TotalFiles, second.TotalFiles)
	assert.Equal(t, int32(1), srv.hits.Load(), "cached repository is not downloaded again")
	assert.Empty(t, leftovers(t, root))
}

func TestFetchAndMaterializeDefaultsBranch(t *testing.T) {
	archive := tarball(t, map[string]string{"a.txt": "a"})
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/hello/tarball/main", r.URL.Path)
		_, _ = w.Write(archive)
	})

	_, err := srv.fetcher(t).FetchAndMaterialize(context.Background(), t.TempDir(), "", false)
	require.NoError(t, err)
}

func TestFetchAndMaterializeDeleteAfter(t *testing.T) {
	archive := tarball(t, map[string]string{"a.txt": "a"})
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	root := t.TempDir()

	summary, err := srv.fetcher(t, WithWriteArtifact(false)).FetchAndMaterialize(context.Background(), root, "main", true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalFiles)
	assert.Equal(t, "a", summary.Files[0].Content)
	assert.NoDirExists(t, filepath.Join(root, "repos", "octo-hello"))
	assert.NoFileExists(t, filepath.Join(root, "repos", "octo-hello__all_code.txt"))
}

func TestFetchAndMaterializeHTTPFailureLeavesNoDirectory(t *testing.T) {
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	root := t.TempDir()

	_, err := srv.fetcher(t).FetchAndMaterialize(context.Background(), root, "main", false)
	require.Error(t, err)

	var fetchErr *model.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, err.Error(), "failed to process repository")

	var transport *model.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.StatusInternalServerError, transport.StatusCode)

	assert.NoDirExists(t, filepath.Join(root, "repos", "octo-hello"))
	assert.Empty(t, leftovers(t, root))
}

func TestFetchAndMaterializeTruncatedArchiveLeavesNoDirectory(t *testing.T) {
	big := string(bytes.Repeat([]byte("0123456789abcdef"), 16*1024))
	archive := tarball(t, map[string]string{"one.txt": big, "two.txt": big})
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive[:len(archive)/2])
	})
	root := t.TempDir()
	f := srv.fetcher(t)

	_, err := f.FetchAndMaterialize(context.Background(), root, "main", false)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(root, "repos", "octo-hello"))
	assert.Empty(t, leftovers(t, root))

	// the next attempt downloads again instead of replaying a partial tree
	_, _ = f.FetchAndMaterialize(context.Background(), root, "main", false)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New("bad-url")

	var invalid *model.InvalidReferenceError
	require.True(t, errors.As(err, &invalid))
}

func TestStrategyByName(t *testing.T) {
	f, err := New("https://github.com/octo/hello/tree/dev", WithLogger(logging.Discard()))
	require.NoError(t, err)

	for _, name := range []string{StrategyArchive, StrategyTree, StrategyClone} {
		s, err := f.Strategy(name, t.TempDir(), "", false)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	s, err := f.Strategy("", t.TempDir(), "", false)
	require.NoError(t, err)
	archive, ok := s.(*ArchiveStrategy)
	require.True(t, ok)
	assert.Equal(t, "dev", archive.Branch, "branch from the url is used when none is given")

	_, err = f.Strategy("rsync", t.TempDir(), "", false)
	assert.Error(t, err)
}

func TestFetchAllCodeUsesContentsAPI(t *testing.T) {
	var srvURL string
	srv := newArchiveServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/hello/contents/":
			_, _ = w.Write([]byte(`[{"type":"file","name":"a.txt","path":"a.txt","download_url":"` + srvURL + `/raw/a.txt"}]`))
		case "/raw/a.txt":
			_, _ = w.Write([]byte("alpha"))
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = srv.URL

	summary, err := srv.fetcher(t).FetchAllCode(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, summary.TotalFiles)
	assert.Equal(t, "alpha", summary.Files[0].Content)
	assert.Equal(t, srv.URL+"/raw/a.txt", summary.Files[0].SourceLocator)
}
