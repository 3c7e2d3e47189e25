package core

// streaming.go opens source files as decoded text streams.
//
// A Source stacks, from the disk outwards:
//
//   - StreamingCountingReader: compressed bytes read, for progress and metrics
//   - gzip.Reader: only when the file is compressed
//   - an x/text decoder: UTF-8 with the BOM skipped and invalid bytes replaced
//     by U+FFFD, or a legacy single-byte charset
//
// Nothing is buffered beyond the readers' own windows, so memory use does not
// depend on file size.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Compression selects how a source file is decompressed.
type Compression string

const (
	// CompressionInfer decompresses when the file starts with the gzip magic bytes.
	CompressionInfer Compression = "infer"
	CompressionGzip  Compression = "gzip"
	CompressionNone  Compression = "none"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ParseCompression validates a compression name. Empty means infer.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionInfer, nil
	case CompressionInfer, CompressionGzip, CompressionNone:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// StreamingCountingReader wraps an io.Reader to track bytes read.
type StreamingCountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewStreamingCountingReader creates a counting reader with optional total size.
func NewStreamingCountingReader(r io.Reader, total int64) *StreamingCountingReader {
	return &StreamingCountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *StreamingCountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// Source is an opened, decoded source file.
type Source struct {
	io.Reader
	Counter    *StreamingCountingReader
	Compressed bool

	closers []io.Closer
}

// Close releases the decompressor and the file.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenSource opens path for reading as text in the named encoding.
func OpenSource(path string, compression Compression, encoding string) (*Source, error) {
	dec, err := NewDecoder(encoding)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var total int64
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}

	src := &Source{
		Counter: NewStreamingCountingReader(f, total),
		closers: []io.Closer{f},
	}
	br := bufio.NewReader(src.Counter)

	switch compression {
	case CompressionGzip:
		src.Compressed = true
	case CompressionInfer, "":
		magic, _ := br.Peek(len(gzipMagic))
		src.Compressed = bytes.Equal(magic, gzipMagic)
	}

	var r io.Reader = br
	if src.Compressed {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		src.closers = append(src.closers, zr)
		r = zr
	}

	src.Reader = transform.NewReader(r, dec)
	return src, nil
}

// NewDecoder returns a transformer decoding the named charset to UTF-8.
// A leading UTF-8 byte order mark is always dropped.
func NewDecoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return unicode.BOMOverride(charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return unicode.BOMOverride(charmap.Windows1252.NewDecoder()), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}
