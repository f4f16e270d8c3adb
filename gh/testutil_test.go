package gh

import (
	"archive/tar"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"repo-digest/logging"
)

type tarEntry struct {
	Name     string
	Body     string
	Typeflag byte
	Linkname string
}

// buildTarball gzips a tar stream containing entries in order.
func buildTarball(t testing.TB, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		typ := e.Typeflag
		if typ == 0 {
			typ = tar.TypeReg
		}
		hdr := &tar.Header{Name: e.Name, Typeflag: typ, Mode: 0o644, Linkname: e.Linkname}
		if typ == tar.TypeDir {
			hdr.Mode = 0o755
		}
		if typ == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if typ == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLogger(logging.Discard()),
	}, opts...)
	return NewClient(opts...), srv
}

// redirectTransport sends every request to target regardless of host.
type redirectTransport struct {
	target string
	hosts  []string
}

func (rt *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.hosts = append(rt.hosts, req.URL.Host)
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = rt.target
	clone.Host = rt.target
	return http.DefaultTransport.RoundTrip(clone)
}
