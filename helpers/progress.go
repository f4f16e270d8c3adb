package helpers

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// NewByteBar starts a byte-count progress bar written to w.
// total may be -1 when the server did not send a Content-Length.
func NewByteBar(w io.Writer, total int64, description string) *pb.ProgressBar {
	if total < 0 {
		total = 0
	}
	bar := pb.New64(total).SetTemplate(pb.Full).SetWriter(w)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", description)
	return bar.Start()
}

// TrackReader wraps r so every byte read advances bar.
func TrackReader(bar *pb.ProgressBar, r io.Reader) io.Reader {
	return bar.NewProxyReader(r)
}
