package core

// streaming.go provides writers for delivering artifacts incrementally.
//
//   - CountingWriter: tracks bytes written for history and logs
//   - FlushingWriter: flushes the transport after every write so a slow or
//     gone client is noticed by the next write instead of after buffering
//   - ChunkedCopy: copies a finished buffer in fixed chunks, checking ctx
//     between them

import (
	"context"
	"io"
)

// CopyChunkSize is the unit in which buffered artifacts are streamed.
const CopyChunkSize = 32 * 1024

// CountingWriter wraps an io.Writer to track bytes written.
type CountingWriter struct {
	writer       io.Writer
	BytesWritten int64
}

// NewCountingWriter wraps w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{writer: w}
}

// Write implements io.Writer.
func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.BytesWritten += int64(n)
	return n, err
}

// Flusher is implemented by transports that buffer, like http.ResponseWriter.
type Flusher interface {
	Flush()
}

// FlushingWriter flushes after each write.
type FlushingWriter struct {
	writer  io.Writer
	flusher Flusher
}

// NewFlushingWriter wraps w; if flusher is nil it behaves like w.
func NewFlushingWriter(w io.Writer, flusher Flusher) *FlushingWriter {
	return &FlushingWriter{writer: w, flusher: flusher}
}

// Write implements io.Writer.
func (f *FlushingWriter) Write(p []byte) (int, error) {
	n, err := f.writer.Write(p)
	if err == nil && f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}

// ChunkedCopy writes data to w in CopyChunkSize pieces, stopping when ctx
// is cancelled.
func ChunkedCopy(ctx context.Context, w io.Writer, data []byte) error {
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := CopyChunkSize
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
