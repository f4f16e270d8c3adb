package gh

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"repo-digest/helpers"
	"repo-digest/model"
)

const copyBufferSize = 32 * 1024

// DownloadAndExtract streams the tarball at archiveURL into dest.
//
// The download and the extraction run as two stages joined by an io.Pipe, so
// the network read stalls while the disk is behind and the archive is never
// held in memory. The top-level directory GitHub wraps every archive in is
// stripped. A failure in either stage stops both.
func (c *Client) DownloadAndExtract(ctx context.Context, archiveURL, dest string) error {
	logger := c.logger.With("url", archiveURL, "dest", dest)

	g, gctx := errgroup.WithContext(ctx)

	resp, err := c.get(gctx, "download archive", archiveURL, "", true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if c.progress != nil {
		bar := helpers.NewByteBar(c.progress, resp.ContentLength, "downloading")
		defer bar.Finish()
		body = helpers.TrackReader(bar, body)
	}

	pr, pw := io.Pipe()

	g.Go(func() error {
		return pump(pw, body, archiveURL)
	})

	g.Go(func() error {
		if err := extractTarGz(gctx, pr, dest, logger); err != nil {
			pr.CloseWithError(err)
			return err
		}
		// trailing padding after the tar end marker
		_, err := io.Copy(io.Discard, pr)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("archive extracted")
	return nil
}

// pump copies body into pw. A failed write means the reader side gave up and
// already holds the error worth reporting, so only read failures are returned.
func pump(pw *io.PipeWriter, body io.Reader, archiveURL string) error {
	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := pw.Write(buf[:n]); werr != nil {
				return nil
			}
		}
		if rerr == io.EOF {
			return pw.Close()
		}
		if rerr != nil {
			err := &model.TransportError{Op: "download archive", URL: archiveURL, Err: rerr}
			pw.CloseWithError(err)
			return err
		}
	}
}

func extractTarGz(ctx context.Context, r io.Reader, dest string, logger *slog.Logger) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return &model.FilesystemError{Op: "mkdir", Path: dest, Err: err}
	}

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		rel := stripTopLevel(hdr.Name)
		if rel == "" {
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := helpers.EnsureWithinRoot(dest, target); err != nil {
			return &model.FilesystemError{Op: "extract", Path: hdr.Name, Err: err}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &model.FilesystemError{Op: "mkdir", Path: target, Err: err}
			}
		case tar.TypeReg:
			if _, err := helpers.SaveFile(target, tr); err != nil {
				return &model.FilesystemError{Op: "write", Path: target, Err: err}
			}
		default:
			logger.Debug("skipping archive entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		}
	}
}

// stripTopLevel drops the first path component, like tar --strip-components=1.
// Names are not cleaned first so "../" survives to the root check.
func stripTopLevel(name string) string {
	name = strings.TrimPrefix(name, "./")
	_, rest, found := strings.Cut(name, "/")
	if !found {
		return ""
	}
	rest = strings.TrimLeft(rest, "/")
	if rest == "" || path.Clean(rest) == "." {
		return ""
	}
	return rest
}
