package core

// streaming.go builds the reader chain used for every recording:
//
//	file -> decompressor (by extension) -> BOM skipping -> byte counting
//
// Compressed recordings (.csv.gz, .csv.zst) are decoded on the fly so the
// ingester only ever sees plain CSV text.

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// recordingExtensions lists the accepted file suffixes, longest first.
var recordingExtensions = []string{".csv.gz", ".csv.zst", ".csv"}

// recordingExt returns the accepted suffix of name, or "" if the file is not a recording.
func recordingExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range recordingExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// messageName derives the message name from a file name: everything before the first dot.
func messageName(file string) string {
	if i := strings.IndexByte(file, '.'); i >= 0 {
		return file[:i]
	}
	return file
}

// bomSkippingReader drops a leading UTF-8 byte order mark.
type bomSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: bufio.NewReader(r)}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// countingReader tracks how many decoded bytes have been read.
type countingReader struct {
	r         io.Reader
	BytesRead int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// recording is an open recording file wrapped for streaming.
type recording struct {
	*countingReader
	closers []io.Closer
}

func (r *recording) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, r.closers[i].Close())
	}
	return err
}

// openRecording opens path and applies the reader chain.
func openRecording(path string) (*recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	rec := &recording{closers: []io.Closer{f}}

	var src io.Reader = f
	switch recordingExt(path) {
	case ".csv.gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "gzip header in %s", path)
		}
		rec.closers = append(rec.closers, zr)
		src = zr
	case ".csv.zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "zstd stream in %s", path)
		}
		rec.closers = append(rec.closers, zstdCloser{zr})
		src = zr
	}

	rec.countingReader = &countingReader{r: newBOMSkippingReader(src)}
	return rec, nil
}

// zstdCloser adapts zstd.Decoder, whose Close returns nothing.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
