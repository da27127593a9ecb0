package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange      = errors.New("malformed range")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// ByteRange is an inclusive byte span of a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length is the number of bytes in the range.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ContentRange formats the Content-Range value for a file of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a single "bytes=<start>-<end>" range against a file of the
// given size. An omitted start means 0, so "bytes=-500" is the first 501
// bytes rather than the last 500. An omitted end, or one past the file, is
// clamped to size-1.
func ParseRange(header string, size int64) (ByteRange, error) {
	value := strings.ToLower(strings.TrimSpace(header))
	if !strings.HasPrefix(value, "bytes=") {
		return ByteRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, header)
	}
	value = strings.TrimSpace(strings.TrimPrefix(value, "bytes="))
	if strings.Contains(value, ",") {
		return ByteRange{}, fmt.Errorf("%w: multiple ranges", ErrMalformedRange)
	}

	startStr, endStr, ok := strings.Cut(value, "-")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, header)
	}

	var r ByteRange
	if startStr = strings.TrimSpace(startStr); startStr != "" {
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return ByteRange{}, fmt.Errorf("%w: bad start %q", ErrMalformedRange, startStr)
		}
		r.Start = start
	}

	r.End = size - 1
	if endStr = strings.TrimSpace(endStr); endStr != "" {
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return ByteRange{}, fmt.Errorf("%w: bad end %q", ErrMalformedRange, endStr)
		}
		r.End = min(end, size-1)
	}

	if r.Start >= size || r.Start > r.End {
		return ByteRange{}, fmt.Errorf("%w: %d-%d of %d", ErrRangeNotSatisfiable, r.Start, r.End, size)
	}
	return r, nil
}

// StreamResponse is a prepared full or partial file response. It owns an open
// file handle until Close.
type StreamResponse struct {
	Status int
	Header http.Header
	Length int64

	file *os.File
	body io.Reader
}

// StreamOptions adjusts how a file is presented.
type StreamOptions struct {
	// Attachment sets a Content-Disposition header naming the file.
	Attachment bool
}

// Stream opens path and prepares the response for rangeHeader. A header that
// cannot be parsed as a single byte range is ignored and the whole file is
// served. The returned response must be closed.
func Stream(path, contentType, rangeHeader string, opts StreamOptions) (*StreamResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotOnDisk, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrFileNotOnDisk, path)
	}
	size := info.Size()

	resp := &StreamResponse{
		Status: http.StatusOK,
		Header: make(http.Header),
		Length: size,
		file:   f,
		body:   f,
	}
	resp.Header.Set("Content-Type", contentType)
	resp.Header.Set("Accept-Ranges", "bytes")
	if opts.Attachment {
		resp.Header.Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(path)}))
	}

	if rangeHeader != "" {
		r, err := ParseRange(rangeHeader, size)
		switch {
		case errors.Is(err, ErrRangeNotSatisfiable):
			f.Close()
			resp.file, resp.body = nil, nil
			resp.Status = http.StatusRequestedRangeNotSatisfiable
			resp.Length = 0
			resp.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		case err == nil:
			resp.Status = http.StatusPartialContent
			resp.Length = r.Length()
			resp.body = io.NewSectionReader(f, r.Start, r.Length())
			resp.Header.Set("Content-Range", r.ContentRange(size))
		}
	}

	resp.Header.Set("Content-Length", strconv.FormatInt(resp.Length, 10))
	return resp, nil
}

// Send writes the headers, the status and, when withBody is set, the body.
func (s *StreamResponse) Send(w http.ResponseWriter, withBody bool) (int64, error) {
	for k, v := range s.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(s.Status)
	if !withBody || s.body == nil {
		return 0, nil
	}
	return io.CopyN(w, s.body, s.Length)
}

// Close releases the file. It is safe to call more than once.
func (s *StreamResponse) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
